// Package ffi contains pure-Go representations of the C ABI structs and
// functions exposed by the native matchy engine.
//
// Every struct in this package must exactly match the field layout declared
// in matchy.h for the target architecture: field order, widths, and
// alignment. A mismatch is not a recoverable runtime error, it corrupts
// memory. Layouts are pinned by layout_test.go, which asserts byte sizes and
// field offsets for the architecture the tests run on.
//
// # Binding
//
// Load binds the shared library exactly once per process and never unloads
// it. The API struct is a flat function table; production code fills it with
// purego-registered symbols, tests fill it with an instrumented in-process
// fake. All pointers exchanged through these functions are address-sized
// values with no caller-visible structure beyond what the struct mirrors
// declare.
//
// # Ownership
//
// Memory returned by the engine (result internals, serialized strings, match
// containers, entry data lists, built buffers) stays engine-owned until the
// matching free function is called. Callers copy data out first, then free,
// exactly once. The higher-level matchy package enforces this with deferred
// releases; nothing in this package frees implicitly.
package ffi
