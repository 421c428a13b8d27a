package matchy

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/matchylabs/matchy-go/ffi"
)

// ReloadEvent describes one reload attempt by the engine's file watcher.
// It is immutable once constructed.
type ReloadEvent struct {
	Path       string
	Success    bool
	Err        string // empty on success
	Generation uint64
}

func (e ReloadEvent) String() string {
	if e.Success {
		return fmt.Sprintf("ReloadEvent{path=%q, success=true, generation=%d}", e.Path, e.Generation)
	}
	return fmt.Sprintf("ReloadEvent{path=%q, success=false, error=%q}", e.Path, e.Err)
}

// ReloadFunc receives reload events. It runs on a dispatcher goroutine
// owned by the Database, not on the engine's watcher thread, so it may
// block briefly and may not call back into the owning Database. Events
// arrive in order; if the callback falls far enough behind to fill the
// queue, newer events are dropped.
type ReloadFunc func(ReloadEvent)

const defaultReloadQueue = 16

// reloadBridge carries reload events from the engine's watcher thread into
// host code. The native trampoline only decodes the event struct into an
// immutable ReloadEvent and enqueues it; the user callback runs on the
// bridge's own dispatcher goroutine. Both the trampoline and the callback
// stay referenced for the lifetime of the owning Database.
type reloadBridge struct {
	fn         ReloadFunc
	trampoline uintptr
	events     chan ReloadEvent
	stopOnce   sync.Once
	done       chan struct{}
}

func newReloadBridge(fn ReloadFunc, queueSize int) *reloadBridge {
	if queueSize <= 0 {
		queueSize = defaultReloadQueue
	}
	b := &reloadBridge{
		fn:     fn,
		events: make(chan ReloadEvent, queueSize),
		done:   make(chan struct{}),
	}
	b.trampoline = ffi.NewReloadCallback(b.enqueue)
	go b.dispatch()
	return b
}

// enqueue runs on the engine's watcher thread. It copies everything out of
// the native event before returning and never blocks: a full queue drops
// the event rather than stalling the engine.
func (b *reloadBridge) enqueue(nat *ffi.ReloadEvent, _ uintptr) {
	evt := ReloadEvent{
		Path:       ffi.GoString(nat.Path),
		Success:    nat.Success,
		Err:        ffi.GoString(nat.Error),
		Generation: nat.Generation,
	}
	select {
	case b.events <- evt:
	case <-b.done:
	default:
		Logger().Warn("reload event dropped, queue full",
			zap.String("path", evt.Path), zap.Uint64("generation", evt.Generation))
	}
}

func (b *reloadBridge) dispatch() {
	for {
		select {
		case evt := <-b.events:
			b.invoke(evt)
		case <-b.done:
			// Drain whatever the watcher managed to enqueue before the
			// owning handle closed.
			for {
				select {
				case evt := <-b.events:
					b.invoke(evt)
				default:
					return
				}
			}
		}
	}
}

func (b *reloadBridge) invoke(evt ReloadEvent) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("reload callback panicked",
				zap.Any("panic", r), zap.String("path", evt.Path))
		}
	}()
	b.fn(evt)
}

// stop shuts the dispatcher down. It does not wait for an in-flight
// enqueue on the watcher thread; the trampoline stays valid for the
// process lifetime, and a late enqueue is discarded via done.
func (b *reloadBridge) stop() {
	b.stopOnce.Do(func() {
		close(b.done)
	})
}
