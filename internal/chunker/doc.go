// Package chunker partitions an ordered subtitle entry sequence into
// contiguous batches bounded by entry count and aggregate text length.
package chunker
