package matchy

import (
	"runtime"
	"sync/atomic"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	merrors "github.com/matchylabs/matchy-go/errors"
	"github.com/matchylabs/matchy-go/ffi"
)

// Database wraps one opaque native database handle.
//
// A Database is either Open or Closed; every operation on a Closed database
// fails with a closed-resource error, and Close is an idempotent one-way
// transition. Queries and introspection are safe to call concurrently from
// multiple goroutines.
type Database struct {
	api    *ffi.API
	handle uintptr
	closed atomic.Bool

	// buf keeps FromBuffer memory reachable: the engine reads the buffer
	// in place for the lifetime of the handle.
	buf []byte

	// pins keeps native-pointed option memory (cache dir string) and the
	// reload bridge alive until Close.
	pins   []any
	bridge *reloadBridge
}

// Open opens a database file with default options.
func Open(path string) (*Database, error) {
	return OpenWithOptions(path, nil)
}

// OpenWithOptions opens a database file with custom options. A nil opts is
// equivalent to DefaultOpenOptions().
func OpenWithOptions(path string, opts *OpenOptions) (*Database, error) {
	api, err := loadAPI()
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = DefaultOpenOptions()
	}

	var bridge *reloadBridge
	if opts.OnReload != nil {
		bridge = newReloadBridge(opts.OnReload, opts.ReloadQueueSize)
	}
	nat, pins := opts.toNative(bridge)

	handle := api.OpenWithOptions(path, &nat)
	runtime.KeepAlive(&nat)
	if handle == 0 {
		if bridge != nil {
			bridge.stop()
		}
		return nil, merrors.NilHandle(merrors.OpOpen, path)
	}

	return &Database{api: api, handle: handle, pins: pins, bridge: bridge}, nil
}

// FromBuffer opens a database from an in-memory buffer. The engine reads
// the buffer in place, so the Database keeps it referenced until Close.
func FromBuffer(buf []byte) (*Database, error) {
	api, err := loadAPI()
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		return nil, &merrors.Error{Op: merrors.OpOpen, Code: merrors.CodeInvalidParam, Detail: "buffer is empty"}
	}

	handle := api.OpenBuffer(&buf[0], uint64(len(buf)))
	runtime.KeepAlive(buf)
	if handle == 0 {
		return nil, merrors.NilHandle(merrors.OpOpen, "in-memory buffer")
	}

	return &Database{api: api, handle: handle, buf: buf}, nil
}

// Query looks up an IP address, literal, or pattern and materializes the
// result. The query kind is detected by the engine.
//
// When the key matches but its payload cannot be parsed, the result is
// still Found with an empty payload: the match signal is preserved over
// the payload by policy.
func (db *Database) Query(query string) (*QueryResult, error) {
	if err := db.checkOpen(merrors.OpQuery); err != nil {
		return nil, err
	}

	// Zeroed scratch struct, populated in place by the engine.
	var res ffi.Result
	db.api.QueryInto(db.handle, query, &res)

	if !res.Found {
		// Nothing native was allocated for a miss; return without
		// further native calls.
		return &QueryResult{}, nil
	}
	defer db.api.FreeResult(&res)

	raw := ""
	if p := db.api.ResultToJSON(&res); p != 0 {
		raw = ffi.GoString(p)
		db.api.FreeString(p)
	}
	if raw != "" && !gjson.Valid(raw) {
		Logger().Debug("unparseable match payload, degrading to empty",
			zap.String("query", query))
		raw = ""
	}
	return &QueryResult{found: true, prefixLen: res.PrefixLen, raw: raw}, nil
}

// QueryEntry looks up a key and, on a match, hands the structured entry to
// fn. The entry and anything derived from it are only valid inside fn; the
// native result is released when QueryEntry returns. found reports whether
// the key matched at all.
func (db *Database) QueryEntry(query string, fn func(*Entry) error) (found bool, err error) {
	if err := db.checkOpen(merrors.OpQuery); err != nil {
		return false, err
	}

	var res ffi.Result
	db.api.QueryInto(db.handle, query, &res)
	if !res.Found {
		return false, nil
	}
	defer db.api.FreeResult(&res)

	var nat ffi.Entry
	if rc := db.api.ResultGetEntry(&res, &nat); rc != ffi.Success {
		return true, merrors.FromNative(merrors.OpQuery, rc, query)
	}
	return true, fn(&Entry{api: db.api, nat: &nat})
}

// Stats returns the engine's query and cache counters.
func (db *Database) Stats() (*Stats, error) {
	if err := db.checkOpen(merrors.OpQuery); err != nil {
		return nil, err
	}
	var nat ffi.Stats
	db.api.GetStats(db.handle, &nat)
	return statsFromNative(&nat), nil
}

// ClearCache empties the LRU query cache. Subsequent queries perform
// fresh lookups and show up as cache misses.
func (db *Database) ClearCache() error {
	if err := db.checkOpen(merrors.OpQuery); err != nil {
		return err
	}
	db.api.ClearCache(db.handle)
	return nil
}

// Metadata returns the database metadata as JSON, or "" when the database
// carries none.
func (db *Database) Metadata() (string, error) {
	if err := db.checkOpen(merrors.OpQuery); err != nil {
		return "", err
	}
	return db.api.Metadata(db.handle), nil
}

// HasIPData reports whether the database supports IP lookups.
func (db *Database) HasIPData() (bool, error) {
	if err := db.checkOpen(merrors.OpQuery); err != nil {
		return false, err
	}
	return db.api.HasIPData(db.handle) != 0, nil
}

// HasStringData reports whether the database supports string lookups.
func (db *Database) HasStringData() (bool, error) {
	if err := db.checkOpen(merrors.OpQuery); err != nil {
		return false, err
	}
	return db.api.HasStringData(db.handle) != 0, nil
}

// HasLiteralData reports whether the database contains exact-string data.
func (db *Database) HasLiteralData() (bool, error) {
	if err := db.checkOpen(merrors.OpQuery); err != nil {
		return false, err
	}
	return db.api.HasLiteralData(db.handle) != 0, nil
}

// HasGlobData reports whether the database contains glob pattern data.
func (db *Database) HasGlobData() (bool, error) {
	if err := db.checkOpen(merrors.OpQuery); err != nil {
		return false, err
	}
	return db.api.HasGlobData(db.handle) != 0, nil
}

// Format returns the engine's description of the database layout, e.g.
// "Combined IP+Pattern database".
func (db *Database) Format() (string, error) {
	if err := db.checkOpen(merrors.OpQuery); err != nil {
		return "", err
	}
	return db.api.Format(db.handle), nil
}

// PatternCount returns the number of patterns in the database.
func (db *Database) PatternCount() (uint64, error) {
	if err := db.checkOpen(merrors.OpQuery); err != nil {
		return 0, err
	}
	return db.api.PatternCount(db.handle), nil
}

// PatternString returns the pattern with the given ID, or "" when the ID
// is unknown.
func (db *Database) PatternString(patternID int) (string, error) {
	if err := db.checkOpen(merrors.OpQuery); err != nil {
		return "", err
	}
	return db.api.PatternString(db.handle, int32(patternID)), nil
}

// UpdateURL returns the auto-update URL embedded in the database, or "".
func (db *Database) UpdateURL() (string, error) {
	if err := db.checkOpen(merrors.OpQuery); err != nil {
		return "", err
	}
	return db.api.UpdateURL(db.handle), nil
}

// Closed reports whether Close has been called.
func (db *Database) Closed() bool {
	return db.closed.Load()
}

// Close releases the native handle. The first call transitions the
// database to Closed and frees the handle exactly once; later calls are
// no-ops. Close does not wait for an in-flight reload callback on the
// engine's watcher thread.
func (db *Database) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	db.api.Close(db.handle)
	if db.bridge != nil {
		db.bridge.stop()
	}
	db.pins = nil
	db.buf = nil
	return nil
}

func (db *Database) checkOpen(op merrors.Op) error {
	if db.closed.Load() {
		return merrors.Closed(op, "database")
	}
	return nil
}
