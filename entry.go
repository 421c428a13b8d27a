package matchy

import (
	"runtime"
	"strings"
	"unsafe"

	"go.uber.org/zap"

	merrors "github.com/matchylabs/matchy-go/errors"
	"github.com/matchylabs/matchy-go/ffi"
)

// Entry is a structured view into a matched record. Entries are only
// reachable through Database.QueryEntry and are valid only inside its
// callback; the native result backing the entry is released when the
// callback returns.
type Entry struct {
	api *ffi.API
	nat *ffi.Entry
}

// Value resolves a path of map keys (and decimal array indexes) inside the
// entry and decodes the value found there.
func (e *Entry) Value(path ...string) (EntryData, error) {
	if len(path) == 0 {
		return EntryData{}, &merrors.Error{
			Op: merrors.OpQuery, Code: merrors.CodeInvalidParam, Detail: "empty path",
		}
	}

	ptrs, bufs := ffi.CStringArray(path)
	var out ffi.EntryData
	rc := e.api.AGetValue(e.nat, &out, &ptrs[0])
	runtime.KeepAlive(ptrs)
	runtime.KeepAlive(bufs)
	if rc != ffi.Success {
		return EntryData{}, merrors.FromNative(merrors.OpQuery, rc, strings.Join(path, "."))
	}
	return decodeEntryData(&out)
}

// DataList walks the entry's full data section as a flat list of tagged
// values in document order. Ownership of the native chain transfers here
// on retrieval; it is walked, copied, and released with a single free.
// Nodes with a tag outside the known set are skipped.
func (e *Entry) DataList() ([]EntryData, error) {
	var head uintptr
	rc := e.api.GetEntryDataList(e.nat, &head)
	if rc != ffi.Success {
		return nil, merrors.FromNative(merrors.OpQuery, rc, "entry data list")
	}
	if head == 0 {
		return nil, nil
	}
	defer e.api.FreeEntryDataList(head)

	var out []EntryData
	for p := head; p != 0; {
		node := (*ffi.EntryDataList)(unsafe.Pointer(p))
		d, err := decodeEntryData(&node.Data)
		if err != nil {
			Logger().Debug("skipping entry data node",
				zap.Int32("tag", node.Data.Type), zap.Error(err))
		} else {
			out = append(out, d)
		}
		p = node.Next
	}
	return out, nil
}
