package ffi

import (
	"unsafe"

	"github.com/ebitengine/purego"
)

// NewReloadCallback wraps fn in a native-callable trampoline suitable for
// OpenOptions.ReloadCallback and returns its code pointer.
//
// The engine invokes the trampoline from its own watcher thread. The event
// struct and the C strings it addresses are only valid while fn is on the
// stack, so fn must copy anything it wants to keep before returning.
//
// Trampolines are process-wide and are never released: purego callbacks
// cannot be freed, which conveniently matches the contract that the
// trampoline must outlive the database handle it is registered on.
func NewReloadCallback(fn func(evt *ReloadEvent, userData uintptr)) uintptr {
	return purego.NewCallback(func(evt uintptr, userData uintptr) uintptr {
		if evt != 0 {
			fn((*ReloadEvent)(unsafe.Pointer(evt)), userData)
		}
		return 0
	})
}
