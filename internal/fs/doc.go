// Package fs abstracts the file operations of the local blob store so tests
// can inject I/O faults.
//
// Production code uses [Default], which is [LocalFS]. Tests wrap it in a
// [FaultyFS] and add rules keyed by a file name substring:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".tmp-", fs.Fault{FailOnSync: true})
package fs
