// Package main hosts the subtrans CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into pipeline
// runs (translate), subtitle cleanup (clean), mkvmerge merges (mux), run
// journal queries (history), environment checks (check), and configuration
// scaffolding. It centralizes configuration resolution and structured
// logging setup so subcommands can focus on user experience instead of
// wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
