// Package srt parses SubRip subtitle text into ordered cue entries and writes
// them back in the same block syntax.
//
// Parsing is pure: it never touches the filesystem or logs. Malformed blocks
// either fail the parse with a ParseError (strict mode, the default) or are
// skipped and reported through File.Warnings. The writer reproduces the
// input's conventions: line ending style, a leading UTF-8 BOM, index numbers,
// and time-range lines byte-for-byte.
//
// StripAnnotations implements the cleanup pass that removes bracketed and
// parenthesized annotations (sound cues, speaker labels) and renumbers cues.
package srt
