// Package session guards a state directory so only one batch run uses it at
// a time. The guard is an advisory file lock released automatically if the
// process dies.
package session
