// Package reassemble merges per-chunk translation outcomes back into the
// original subtitle file. Cue indices and time ranges are copied verbatim;
// only text lines change, and only for chunks that translated successfully.
package reassemble
