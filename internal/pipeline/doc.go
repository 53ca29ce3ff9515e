// Package pipeline coordinates translation runs.
//
// Each input file moves through Pending, Parsing, Chunking,
// Translating(k/K), Reassembling and ends Written or Failed. Files run
// concurrently up to Options.FileConcurrency; inside a file, chunks are
// translated concurrently up to Options.ChunkConcurrency and merged strictly
// in chunk order, so completion order never affects output order.
//
// Failure isolation:
//
//   - parse and write errors fail only their file
//   - validation or exhausted transient errors fall the chunk back to its
//     original text (or fail the file in strict mode)
//   - a fatal error cancels every in-flight chunk and file and is returned
//     from Run; files that have not been written by then stay unwritten
//
// Output files are written atomically, only after a file is fully merged.
package pipeline
