package matchy

import (
	merrors "github.com/matchylabs/matchy-go/errors"
	"github.com/matchylabs/matchy-go/ffi"
)

// ValidationLevel selects how thoroughly Validate checks a database file.
type ValidationLevel int32

const (
	// ValidationStandard verifies structure and checksums.
	ValidationStandard ValidationLevel = ValidationLevel(ffi.ValidationStandard)
	// ValidationStrict additionally walks every entry.
	ValidationStrict ValidationLevel = ValidationLevel(ffi.ValidationStrict)
)

// Validate checks a database file without opening it. A nil return means
// the file is valid at the requested level; otherwise the error carries
// the engine's category and message.
func Validate(path string, level ValidationLevel) error {
	api, err := loadAPI()
	if err != nil {
		return err
	}

	var msg uintptr
	rc := api.Validate(path, int32(level), &msg)
	if rc == ffi.Success {
		return nil
	}

	nerr := merrors.FromNative(merrors.OpValidate, rc, path)
	if msg != 0 {
		nerr.Detail = ffi.GoString(msg)
		api.FreeString(msg)
	}
	return nerr
}
