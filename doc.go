// Package genohdc encodes genomic and clinical data as hyperdimensional
// binary vectors and compares them.
//
// The subpackages do the work:
//
//   - hypervector: the 16,384-bit vector type, bind/bundle/permute and the
//     cosine, Hamming and Jaccard similarities
//   - codebook: deterministic token → vector tables (random or learned)
//   - encoder: DNA k-mer, multi-scale, SNP panel, HLA and pharmacogenomic
//     encoders
//   - vcf: streaming VCF reader and variant-set encoder
//   - confidence: statistical significance of a similarity
//   - privacy, privacy/randomized, privacy/numeric: differential privacy
//   - index: top-k and threshold search over stored vectors
//   - batch: batch encoding and similarity matrices
//
// Engine is the facade that a CLI or service calls. It resolves metric names,
// builds a search index over a database, fans batch queries out over the
// resource controller's workers and reports every call to a Logger and a
// MetricsCollector.
//
// # Quick Start
//
//	eng, err := genohdc.New(genohdc.WithSeed(hypervector.SeedFromString("cohort-2026")))
//	if err != nil {
//	    return err
//	}
//
//	a, _ := eng.EncodeDNA(ctx, "ACGTACGTACGT", 6)
//	b, _ := eng.EncodeDNA(ctx, "ACGTACGTACGA", 6)
//
//	res, _ := eng.Similarity(ctx, a.Vector, b.Vector, "cosine", true)
//	fmt.Println(res.Similarity, res.Confidence.Level)
//
// # Search
//
//	db, _ := index.ReadDatabase(f, nil)
//	hits, _ := eng.Search(ctx, query, db, genohdc.SearchParams{TopK: 10, Metric: "hamming"})
package genohdc
