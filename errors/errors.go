package errors

import (
	"fmt"
	"strings"
)

// Op indicates which operation on the binding failed.
type Op string

const (
	OpLoad     Op = "load"     // shared library binding
	OpOpen     Op = "open"     // database construction
	OpQuery    Op = "query"    // lookup operations
	OpBuild    Op = "build"    // builder mutation and build
	OpSave     Op = "save"     // builder save-to-path
	OpExtract  Op = "extract"  // IoC extraction
	OpValidate Op = "validate" // database file validation
	OpDecode   Op = "decode"   // tagged value decoding
	OpClose    Op = "close"    // resource release
)

// Code categorizes the error. The first group mirrors the engine's native
// error codes; the second group is produced by the binding itself.
type Code string

const (
	CodeFileNotFound     Code = "file_not_found"
	CodeInvalidFormat    Code = "invalid_format"
	CodeCorruptData      Code = "corrupt_data"
	CodeOutOfMemory      Code = "out_of_memory"
	CodeInvalidParam     Code = "invalid_param"
	CodeIO               Code = "io_error"
	CodeSchemaValidation Code = "schema_validation"
	CodeUnknownSchema    Code = "unknown_schema"
	CodeDataParse        Code = "data_parse"
	CodeUnknown          Code = "unknown"

	CodeClosed       Code = "closed"        // operation on a closed handle
	CodeNilHandle    Code = "nil_handle"    // native factory returned null
	CodeTypeMismatch Code = "type_mismatch" // accessor does not match tag
	CodeNoData       Code = "no_data"       // entry data has no payload
	CodeUnknownTag   Code = "unknown_tag"   // tag outside the known set
	CodeLoadFailed   Code = "load_failed"   // library could not be bound
)

// Error is the structured error type used throughout matchy-go.
type Error struct {
	Op     Op
	Code   Code
	Target string // offending key, path, or resource name
	Detail string
	Native int32 // raw engine code, 0 when the binding produced the error
	Cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Op))
	b.WriteString("] ")
	b.WriteString(string(e.Code))

	if e.Target != "" {
		b.WriteString(": ")
		b.WriteString(e.Target)
	}
	if e.Detail != "" {
		if e.Target != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}
	if e.Native != 0 {
		fmt.Fprintf(&b, " (native %d)", e.Native)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two Errors match when their
// Op and Code agree; an empty Op or Code in the target acts as a wildcard,
// so sentinel comparisons like errors.Is(err, &Error{Code: CodeClosed})
// work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op != "" && t.Op != e.Op {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// nativeCodes maps the engine's integer error codes to categories.
var nativeCodes = map[int32]Code{
	-1: CodeFileNotFound,
	-2: CodeInvalidFormat,
	-3: CodeCorruptData,
	-4: CodeOutOfMemory,
	-5: CodeInvalidParam,
	-6: CodeIO,
	-7: CodeSchemaValidation,
	-8: CodeUnknownSchema,
	-9: CodeDataParse,
}

// FromNative converts a non-zero engine error code into an Error carrying
// the offending target. Unknown codes map to CodeUnknown.
func FromNative(op Op, code int32, target string) *Error {
	c, ok := nativeCodes[code]
	if !ok {
		c = CodeUnknown
	}
	return &Error{Op: op, Code: c, Target: target, Native: code}
}

// Closed reports an operation attempted on a closed resource.
func Closed(op Op, resource string) *Error {
	return &Error{Op: op, Code: CodeClosed, Target: resource, Detail: "resource is closed"}
}

// NilHandle reports a native factory call that returned a null handle.
func NilHandle(op Op, target string) *Error {
	return &Error{Op: op, Code: CodeNilHandle, Target: target, Detail: "native factory returned null handle"}
}

// TypeMismatch reports a typed accessor invoked on a value with a
// different tag.
func TypeMismatch(want, got string) *Error {
	return &Error{Op: OpDecode, Code: CodeTypeMismatch, Detail: fmt.Sprintf("data type is %s, not %s", got, want)}
}

// NoData reports an accessor invoked on entry data with no payload.
func NoData() *Error {
	return &Error{Op: OpDecode, Code: CodeNoData, Detail: "entry data has no payload"}
}

// UnknownTag reports a type tag outside the known set.
func UnknownTag(tag int32) *Error {
	return &Error{Op: OpDecode, Code: CodeUnknownTag, Detail: fmt.Sprintf("unknown data type tag %d", tag)}
}

// LoadFailed reports that the shared library could not be bound.
func LoadFailed(cause error) *Error {
	return &Error{Op: OpLoad, Code: CodeLoadFailed, Cause: cause}
}
