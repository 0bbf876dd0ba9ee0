// Package priority adjusts the OS scheduling priority of a live child process.
//
// Adjustment is a capability, not a guarantee: TrySet maps the five portable
// levels onto nice values on Unix and priority classes on Windows, and returns
// ErrUnsupported on platforms without either mechanism. Callers treat any
// error as a warning; a job never fails because its priority could not be
// changed. Raising priority above Normal usually needs elevated privileges.
package priority
