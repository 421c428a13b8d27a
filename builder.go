package matchy

import (
	"fmt"
	"sync/atomic"

	"github.com/tidwall/sjson"

	merrors "github.com/matchylabs/matchy-go/errors"
	"github.com/matchylabs/matchy-go/ffi"
)

// Builder creates matchy databases programmatically. Keys may be IP
// addresses ("1.2.3.4"), CIDR ranges ("10.0.0.0/8"), exact strings, or
// glob patterns ("*.evil.com"); the engine detects the kind.
//
// Builder is NOT safe for concurrent use: mutation is single-threaded by
// contract, not by internal locking.
type Builder struct {
	api    *ffi.API
	handle uintptr
	closed atomic.Bool
}

// NewBuilder creates an empty database builder.
func NewBuilder() (*Builder, error) {
	api, err := loadAPI()
	if err != nil {
		return nil, err
	}
	handle := api.BuilderNew()
	if handle == 0 {
		return nil, merrors.NilHandle(merrors.OpBuild, "builder")
	}
	return &Builder{api: api, handle: handle}, nil
}

// Add associates a key with a data payload. The payload map is assembled
// into a JSON object field by field.
func (b *Builder) Add(key string, data map[string]any) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	payload := "{}"
	for k, v := range data {
		var err error
		if payload, err = sjson.Set(payload, k, v); err != nil {
			return &merrors.Error{
				Op: merrors.OpBuild, Code: merrors.CodeInvalidParam,
				Target: key, Detail: fmt.Sprintf("field %q: %v", k, err),
			}
		}
	}
	return b.AddJSON(key, payload)
}

// AddJSON associates a key with a raw JSON payload.
func (b *Builder) AddJSON(key, jsonData string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if rc := b.api.BuilderAdd(b.handle, key, jsonData); rc != ffi.Success {
		return merrors.FromNative(merrors.OpBuild, rc, key)
	}
	return nil
}

// SetDescription sets the database description stored in its metadata.
func (b *Builder) SetDescription(description string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if rc := b.api.BuilderSetDescription(b.handle, description); rc != ffi.Success {
		return merrors.FromNative(merrors.OpBuild, rc, "description")
	}
	return nil
}

// SetCaseInsensitive controls case folding for string keys.
func (b *Builder) SetCaseInsensitive(enabled bool) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	var v uint8
	if enabled {
		v = 1
	}
	if rc := b.api.BuilderSetCaseInsensitive(b.handle, v); rc != ffi.Success {
		return merrors.FromNative(merrors.OpBuild, rc, "case_insensitive")
	}
	return nil
}

// SetSchema declares the schema payloads are validated against.
func (b *Builder) SetSchema(schema string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if rc := b.api.BuilderSetSchema(b.handle, schema); rc != ffi.Success {
		return merrors.FromNative(merrors.OpBuild, rc, schema)
	}
	return nil
}

// SetUpdateURL embeds the URL auto-updating consumers poll.
func (b *Builder) SetUpdateURL(url string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if rc := b.api.BuilderSetUpdateURL(b.handle, url); rc != ffi.Success {
		return merrors.FromNative(merrors.OpBuild, rc, url)
	}
	return nil
}

// Save builds the database and writes it to path.
func (b *Builder) Save(path string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if rc := b.api.BuilderSave(b.handle, path); rc != ffi.Success {
		return merrors.FromNative(merrors.OpSave, rc, path)
	}
	return nil
}

// Bytes builds the database into an engine-allocated buffer, copies it
// into Go-owned memory, and releases the native buffer.
func (b *Builder) Bytes() ([]byte, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var (
		bufPtr uintptr
		size   uint64
	)
	if rc := b.api.BuilderBuild(b.handle, &bufPtr, &size); rc != ffi.Success {
		return nil, merrors.FromNative(merrors.OpBuild, rc, "buffer")
	}
	if bufPtr == 0 || size == 0 {
		return nil, &merrors.Error{
			Op: merrors.OpBuild, Code: merrors.CodeNilHandle, Detail: "engine returned empty buffer",
		}
	}
	out := ffi.GoBytes(bufPtr, int(size))
	b.api.FreeBuffer(bufPtr)
	return out, nil
}

// Build builds the database in memory and opens it.
func (b *Builder) Build() (*Database, error) {
	data, err := b.Bytes()
	if err != nil {
		return nil, err
	}
	return FromBuffer(data)
}

// Closed reports whether Close has been called.
func (b *Builder) Closed() bool {
	return b.closed.Load()
}

// Close releases the builder. Idempotent.
func (b *Builder) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.api.BuilderFree(b.handle)
	return nil
}

func (b *Builder) checkOpen() error {
	if b.closed.Load() {
		return merrors.Closed(merrors.OpBuild, "builder")
	}
	return nil
}
