// Package errs implements curated errors for dwarfview: a plain Go error
// value composed of a message template, a category code and a set of
// interpolation values.
//
// Adapted from the error-handling idiom of github.com/jetsetilly/gopher2600's
// "errors" package: errors carry a normalised causal chain (no duplicated
// adjacent parts when one curated error wraps another) and a category that
// callers can test for with Is/Has without string matching.
package errs
