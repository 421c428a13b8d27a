package matchy

import (
	"time"
	"unsafe"

	"github.com/matchylabs/matchy-go/ffi"
)

// DefaultCacheCapacity matches the engine's default LRU capacity.
const DefaultCacheCapacity = 10_000

// OpenOptions configures how a database is opened.
type OpenOptions struct {
	// CacheCapacity is the LRU query cache capacity. Zero disables
	// caching entirely; a negative value selects the engine default.
	CacheCapacity int

	// AutoReload makes the engine watch the source file and reload it on
	// change. Queries transparently use the latest generation.
	AutoReload bool

	// AutoUpdate enables periodic refresh from the database's update URL,
	// when the engine was built with auto-update support.
	AutoUpdate bool

	// UpdateInterval is the auto-update polling interval. Zero selects
	// the engine default.
	UpdateInterval time.Duration

	// CacheDir overrides where auto-update stores downloaded databases.
	CacheDir string

	// OnReload is invoked after each reload attempt. See ReloadFunc for
	// the delivery contract.
	OnReload ReloadFunc

	// ReloadQueueSize bounds the reload event queue between the engine's
	// watcher thread and the dispatcher. Zero selects a small default;
	// events beyond the bound are dropped, never blocked on.
	ReloadQueueSize int
}

// DefaultOpenOptions returns the options used by Open.
func DefaultOpenOptions() *OpenOptions {
	return &OpenOptions{CacheCapacity: DefaultCacheCapacity}
}

// toNative translates the options into the ABI struct. The returned pin
// slice holds everything the native side may point into (cache dir string)
// and must stay reachable for the lifetime of the handle.
func (o *OpenOptions) toNative(bridge *reloadBridge) (ffi.OpenOptions, []any) {
	nat := ffi.OpenOptions{
		CacheCapacity:      int32(o.CacheCapacity),
		AutoReload:         o.AutoReload,
		AutoUpdate:         o.AutoUpdate,
		UpdateIntervalSecs: int32(o.UpdateInterval / time.Second),
	}
	if o.CacheCapacity < 0 {
		nat.CacheCapacity = DefaultCacheCapacity
	}
	var pins []any
	if o.CacheDir != "" {
		dir := ffi.CString(o.CacheDir)
		nat.CacheDir = uintptr(unsafe.Pointer(&dir[0]))
		pins = append(pins, dir)
	}
	if bridge != nil {
		nat.ReloadCallback = bridge.trampoline
		pins = append(pins, bridge)
	}
	return nat, pins
}
