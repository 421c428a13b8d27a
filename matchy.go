package matchy

import (
	merrors "github.com/matchylabs/matchy-go/errors"
	"github.com/matchylabs/matchy-go/ffi"
)

// loadAPI resolves the native function table. Tests swap this out to
// inject an instrumented in-process fake engine.
var loadAPI = func() (*ffi.API, error) {
	api, err := ffi.Load()
	if err != nil {
		return nil, merrors.LoadFailed(err)
	}
	return api, nil
}

// Version returns the native engine's version string.
func Version() (string, error) {
	api, err := loadAPI()
	if err != nil {
		return "", err
	}
	return api.Version(), nil
}

// HasAutoUpdate reports whether the engine was built with auto-update
// support.
func HasAutoUpdate() (bool, error) {
	api, err := loadAPI()
	if err != nil {
		return false, err
	}
	return api.HasAutoUpdate() != 0, nil
}

// ItemTypeName returns the engine's display name for an extracted item
// type, e.g. "domain" or "sha256".
func ItemTypeName(t ItemType) (string, error) {
	api, err := loadAPI()
	if err != nil {
		return "", err
	}
	return api.ItemTypeName(uint8(t)), nil
}
