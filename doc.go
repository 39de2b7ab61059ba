// Package kextinfo reads the loaded kernel extension table on macOS and
// cross-references the dependencies between extensions.
//
// The table comes from kextstat, whose output is a space-delimited text
// table with nine positional columns:
//
//	Index Refs Address            Size       Wired      Name (Version) UUID <Linked Against>
//	    1  148 0                  0          0          com.apple.kpi.bsd (20.6.0) 2A4D3E0C-... <>
//	   48    0 0xffffff7f80e8f000 0x5000     0x5000     com.apple.driver.AppleFoo (1.0) 5F3B...-... <8 6 5 3 1>
//
// Version and dependency columns contain spaces inside their brackets, so
// rows are split with [Tokenize], which tracks bracket depth instead of
// splitting on every space.
//
// # Usage
//
// Run kextstat and index the result:
//
//	exts, err := kextinfo.Stat()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ix, err := kextinfo.NewIndex(exts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, ref := range ix.LinkedBy(1) {
//	    fmt.Println(ref)
//	}
//
// Saved output can be parsed with [Parse] or [Load] instead.
//
// # Errors
//
// Every failure is fatal for the snapshot:
//   - *[InvocationError]: kextstat missing or exited non-zero
//   - *[FormatError]: header column count is not [HeaderFields]
//   - *[RecordParseError]: a row has the wrong arity, a bad number or UUID
//   - *[DuplicateIndexError]: two rows share an index
//
// Dependencies on indices with no row are not fatal. [Index.Resolve]
// returns them as unresolved [Reference] values, [Index.Dangling] lists
// them as *[DanglingReferenceError], and [Index.Validate] turns them into
// an error for callers that want to fail.
package kextinfo
