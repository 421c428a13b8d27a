package ffi

import "unsafe"

// GoString copies a NUL-terminated C string into a Go string. A zero
// pointer yields "".
func GoString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	p := (*byte)(unsafe.Pointer(ptr))
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}

// GoBytes copies n bytes of native memory into a Go slice. The source may
// be freed immediately after this returns.
func GoBytes(ptr uintptr, n int) []byte {
	if ptr == 0 || n <= 0 {
		return nil
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n)
	out := make([]byte, n)
	copy(out, src)
	return out
}

// CString returns s as a NUL-terminated byte slice. The slice must be kept
// reachable for as long as the engine may read the pointer taken from it.
func CString(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

// CStringArray builds a NUL-terminated char* array for the given strings,
// as consumed by matchy_aget_value. It returns the pointer array and the
// backing buffers; both must stay reachable across the native call.
func CStringArray(strs []string) ([]uintptr, [][]byte) {
	bufs := make([][]byte, len(strs))
	ptrs := make([]uintptr, len(strs)+1)
	for i, s := range strs {
		bufs[i] = CString(s)
		ptrs[i] = uintptr(unsafe.Pointer(&bufs[i][0]))
	}
	ptrs[len(strs)] = 0
	return ptrs, bufs
}
