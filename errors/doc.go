// Package errors provides structured error types for the matchy binding.
//
// Errors are categorized by Op (which operation failed) and Code (what went
// wrong). Codes cover both the engine's native error integers, mapped via
// FromNative, and conditions the binding detects itself, such as use of a
// closed handle or a typed accessor that does not match a value's tag.
//
// Construct errors with the convenience helpers:
//
//	err := errors.FromNative(errors.OpBuild, rc, key)
//	err := errors.Closed(errors.OpQuery, "database")
//	err := errors.TypeMismatch("uint32", "utf8_string")
//
// All errors support errors.Is with sentinel values:
//
//	if errors.Is(err, &errors.Error{Code: errors.CodeClosed}) { ... }
package errors
