// Package logs reads the batchenc log file for the `logs` command.
//
// Last returns the trailing lines with bounded memory. Follow polls for
// appended lines until its context ends, restarting from the top when the
// file is truncated.
package logs
