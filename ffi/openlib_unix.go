//go:build !windows

package ffi

import (
	"fmt"
	"runtime"

	"github.com/ebitengine/purego"
)

var defaultLibraryNames = func() []string {
	if runtime.GOOS == "darwin" {
		return []string{"libmatchy.dylib", "matchy.dylib"}
	}
	return []string{"libmatchy.so", "matchy.so"}
}()

func openLibrary(path string) (uintptr, error) {
	// RTLD_NOW: resolve all symbols immediately so a partial library fails
	// at load time. RTLD_LOCAL: keep symbols out of the global namespace.
	const (
		rtldNow   = 0x2
		rtldLocal = 0x0
	)
	return purego.Dlopen(path, rtldNow|rtldLocal)
}

func bindFree(api *API) error {
	// Builder buffers are allocated with the process malloc; release them
	// through the matching free from the default symbol namespace.
	fptr, err := purego.Dlsym(purego.RTLD_DEFAULT, "free")
	if err != nil {
		return fmt.Errorf("ffi: bind free: %w", err)
	}
	purego.RegisterFunc(&api.FreeBuffer, fptr)
	return nil
}
