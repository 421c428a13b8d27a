// Package matchy is a Go binding for the native matchy matching engine:
// IP/CIDR and pattern indexing, LRU-cached queries, and IoC extraction,
// consumed through the engine's C ABI.
//
// # Architecture Overview
//
// The module is organized into a small set of packages:
//
//	matchy/          Root package: Database, Builder, Extractor, decoding
//	├── ffi/         C ABI struct mirrors and the purego-bound function table
//	├── errors/      Structured error types (Op/Code)
//	└── cmd/matchy/  CLI with an optional interactive TUI
//
// # Quick Start
//
// Open a database and query it:
//
//	db, err := matchy.Open("threats.mxy")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	res, err := db.Query("192.168.1.1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if res.Found() {
//	    fmt.Println(res.Raw())
//	}
//
// Build a database in memory:
//
//	b, _ := matchy.NewBuilder()
//	defer b.Close()
//	b.AddJSON("10.0.0.0/8", `{"type":"internal"}`)
//	db, _ := b.Build()
//
// # Resource Lifecycle
//
// Database, Builder, and Extractor each own exactly one opaque native
// handle. Every operation fails with a closed-resource error after Close;
// Close itself is idempotent and releases the handle exactly once. Native
// buffers produced by queries, extraction, and entry-data walks are copied
// into Go-owned values and released before the wrapping call returns, on
// every exit path.
//
// # Thread Safety
//
// Database and Extractor are safe for concurrent use; the engine
// serializes its own internal mutable state. Builder is NOT thread-safe
// and must be confined to a single goroutine.
//
// # Native Library
//
// The shared library is located by name (libmatchy.so, libmatchy.dylib,
// matchy.dll) or through the MATCHY_LIBRARY environment variable, bound
// once per process, and never unloaded.
package matchy
