// Package preflight provides readiness checks for the filesystem paths and
// credentials the assistant depends on.
//
// The run commands call RunAll before any diary is read and stop when a
// check fails, so a read-only summary directory is reported before an API
// call is paid for. The "config validate" and "status" commands display the
// same results.
package preflight
