// Package muxer merges translated subtitles into video containers with
// mkvmerge.
//
// FindPairs matches each .mp4/.mkv in a directory with the same-stem .srt
// file; Muxer.Mux runs mkvmerge for one pair, writing to a hidden temp file
// that is renamed into place only after mkvmerge succeeds. MuxAll processes
// a whole directory and keeps going past individual failures.
package muxer
