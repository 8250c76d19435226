package models

// Arithmetic is implemented by every sample record usable inside a
// ProcessInfo: Add performs element-wise addition (timestamp excluded),
// DivScalar performs element-wise division by a scalar, truncating
// integer fields. This is the Go re-expression of the original's
// dynamic _recursive_op dispatch: each concrete record type implements
// the trait directly instead of an interpreter walking a field mapping.
type Arithmetic[T any] interface {
	Add(T) T
	DivScalar(int64) T
}
