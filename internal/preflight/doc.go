// Package preflight provides readiness checks for the remote translation
// service, the filesystem paths, and the external binaries subtrans uses.
//
// The CLI "subtrans check" command runs RunAll and renders each Result.
// The translate command calls CheckDirectoryAccess on the output directory
// before it starts spending API calls.
package preflight
