// Package badger persists encoded hypervectors in an embedded BadgerDB.
//
// Each entry is stored under "v/<id>" as an index.Record encoded with the
// configured codec. LoadInto streams every record into an index.Index, and
// SaveFrom writes an index back in a single batch.
//
//	st, err := badger.Open(badger.DefaultConfig("/var/lib/genohdc"))
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	idx, _ := index.New()
//	n, err := st.LoadInto(ctx, idx)
package badger
