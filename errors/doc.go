// Package errors provides the structured error type shared by every
// hypermodel package. Errors carry a machine-readable code, so the command
// layer can report UNKNOWN_TASK or CYCLIC_DEPENDENCY without string matching.
package errors
