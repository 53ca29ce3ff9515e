// Package language normalizes the language names and codes users type.
//
// Prompt labels ("Romanian") feed the translation request, ISO 639-2
// codes ("ron") feed mkvmerge, and display names label muxed subtitle
// tracks. A small table covers common subtitle languages; anything else
// falls back to golang.org/x/text tag parsing.
package language
