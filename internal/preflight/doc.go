// Package preflight provides readiness checks for the filesystem paths,
// session jar, publisher command, and ntfy server that postline depends on.
//
// The daemon runs RunAll at startup and logs failures as warnings; the CLI
// "postline status" command renders the same results alongside queue state.
package preflight
