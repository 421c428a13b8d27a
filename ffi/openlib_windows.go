//go:build windows

package ffi

import (
	"fmt"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/windows"
)

var defaultLibraryNames = []string{"matchy.dll", "libmatchy.dll"}

func openLibrary(path string) (uintptr, error) {
	handle, err := windows.LoadLibrary(path)
	if err != nil {
		return 0, err
	}
	return uintptr(handle), nil
}

func bindFree(api *API) error {
	// The engine allocates builder buffers with the C runtime malloc; pair
	// it with the same runtime's free.
	crt, err := windows.LoadLibrary("msvcrt.dll")
	if err != nil {
		return fmt.Errorf("ffi: load msvcrt: %w", err)
	}
	fptr, err := windows.GetProcAddress(crt, "free")
	if err != nil {
		return fmt.Errorf("ffi: bind free: %w", err)
	}
	purego.RegisterFunc(&api.FreeBuffer, fptr)
	return nil
}
