package matchy

import (
	"unsafe"

	merrors "github.com/matchylabs/matchy-go/errors"
	"github.com/matchylabs/matchy-go/ffi"
)

// DataType tags an entry data value. The numbering is the engine's (MMDB
// data section encoding).
type DataType int32

const (
	TypePointer DataType = DataType(ffi.DataPointer)
	TypeString  DataType = DataType(ffi.DataUTF8String)
	TypeDouble  DataType = DataType(ffi.DataDouble)
	TypeBytes   DataType = DataType(ffi.DataBytes)
	TypeUint16  DataType = DataType(ffi.DataUint16)
	TypeUint32  DataType = DataType(ffi.DataUint32)
	TypeMap     DataType = DataType(ffi.DataMap)
	TypeInt32   DataType = DataType(ffi.DataInt32)
	TypeUint64  DataType = DataType(ffi.DataUint64)
	TypeUint128 DataType = DataType(ffi.DataUint128)
	TypeArray   DataType = DataType(ffi.DataArray)
	TypeBool    DataType = DataType(ffi.DataBoolean)
	TypeFloat   DataType = DataType(ffi.DataFloat)
)

var dataTypeNames = map[DataType]string{
	TypePointer: "pointer",
	TypeString:  "utf8_string",
	TypeDouble:  "double",
	TypeBytes:   "bytes",
	TypeUint16:  "uint16",
	TypeUint32:  "uint32",
	TypeMap:     "map",
	TypeInt32:   "int32",
	TypeUint64:  "uint64",
	TypeUint128: "uint128",
	TypeArray:   "array",
	TypeBool:    "boolean",
	TypeFloat:   "float",
}

func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// EntryData is a decoded tagged value. It is constructed exclusively by
// decodeEntryData, which resolves the tag before touching any union byte
// and copies variable-length payloads out of native memory. Typed
// accessors fail with a type-mismatch error when the tag differs; they
// never reinterpret the payload.
type EntryData struct {
	typ     DataType
	hasData bool
	size    int
	offset  int

	str  string
	raw  []byte
	u128 [16]byte
	u64v uint64
	u32v uint32
	u16v uint16
	i32v int32
	f64v float64
	f32v float32
	bv   bool
}

// decodeEntryData materializes a native entry data struct. The union is
// interpreted strictly by tag: pointers for variable-length types are
// followed and their payloads copied using the explicit DataSize, fixed
// 128-bit values are copied verbatim, and unknown tags are rejected.
func decodeEntryData(nat *ffi.EntryData) (EntryData, error) {
	d := EntryData{
		typ:     DataType(nat.Type),
		hasData: nat.HasData,
		size:    int(nat.DataSize),
		offset:  int(nat.Offset),
	}
	if !nat.HasData {
		return d, nil
	}

	union := unsafe.Pointer(&nat.Value[0])
	switch d.typ {
	case TypePointer:
		d.u32v = *(*uint32)(union)
	case TypeString:
		p := *(*uintptr)(union)
		d.str = string(ffi.GoBytes(p, d.size))
	case TypeBytes:
		p := *(*uintptr)(union)
		d.raw = ffi.GoBytes(p, d.size)
	case TypeDouble:
		d.f64v = *(*float64)(union)
	case TypeFloat:
		d.f32v = *(*float32)(union)
	case TypeUint16:
		d.u16v = *(*uint16)(union)
	case TypeUint32:
		d.u32v = *(*uint32)(union)
	case TypeInt32:
		d.i32v = *(*int32)(union)
	case TypeUint64:
		d.u64v = *(*uint64)(union)
	case TypeUint128:
		copy(d.u128[:], nat.Value[:])
	case TypeBool:
		d.bv = nat.Value[0] != 0
	case TypeMap, TypeArray:
		// Size carries the element count; the union holds nothing the
		// host can follow.
	default:
		return EntryData{}, merrors.UnknownTag(nat.Type)
	}
	return d, nil
}

// Type returns the value's tag.
func (d EntryData) Type() DataType {
	return d.typ
}

// HasData reports whether the value carries a payload.
func (d EntryData) HasData() bool {
	return d.hasData
}

// Size returns the payload length in bytes for strings and byte values,
// and the element count for maps and arrays.
func (d EntryData) Size() int {
	return d.size
}

// Offset returns the value's offset in the database's data section.
func (d EntryData) Offset() int {
	return d.offset
}

func (d EntryData) check(want DataType) error {
	if !d.hasData {
		return merrors.NoData()
	}
	if d.typ != want {
		return merrors.TypeMismatch(want.String(), d.typ.String())
	}
	return nil
}

// StringValue returns a utf8_string payload.
func (d EntryData) StringValue() (string, error) {
	if err := d.check(TypeString); err != nil {
		return "", err
	}
	return d.str, nil
}

// Bytes returns a bytes payload.
func (d EntryData) Bytes() ([]byte, error) {
	if err := d.check(TypeBytes); err != nil {
		return nil, err
	}
	return d.raw, nil
}

// Double returns a double payload.
func (d EntryData) Double() (float64, error) {
	if err := d.check(TypeDouble); err != nil {
		return 0, err
	}
	return d.f64v, nil
}

// Float returns a float payload.
func (d EntryData) Float() (float32, error) {
	if err := d.check(TypeFloat); err != nil {
		return 0, err
	}
	return d.f32v, nil
}

// Uint16 returns a uint16 payload.
func (d EntryData) Uint16() (uint16, error) {
	if err := d.check(TypeUint16); err != nil {
		return 0, err
	}
	return d.u16v, nil
}

// Uint32 returns a uint32 payload.
func (d EntryData) Uint32() (uint32, error) {
	if err := d.check(TypeUint32); err != nil {
		return 0, err
	}
	return d.u32v, nil
}

// Int32 returns an int32 payload.
func (d EntryData) Int32() (int32, error) {
	if err := d.check(TypeInt32); err != nil {
		return 0, err
	}
	return d.i32v, nil
}

// Uint64 returns a uint64 payload.
func (d EntryData) Uint64() (uint64, error) {
	if err := d.check(TypeUint64); err != nil {
		return 0, err
	}
	return d.u64v, nil
}

// Uint128 returns a uint128 payload as 16 verbatim bytes.
func (d EntryData) Uint128() ([16]byte, error) {
	if err := d.check(TypeUint128); err != nil {
		return [16]byte{}, err
	}
	return d.u128, nil
}

// Bool returns a boolean payload.
func (d EntryData) Bool() (bool, error) {
	if err := d.check(TypeBool); err != nil {
		return false, err
	}
	return d.bv, nil
}

// Pointer returns a pointer payload: an offset into the database's data
// section.
func (d EntryData) Pointer() (uint32, error) {
	if err := d.check(TypePointer); err != nil {
		return 0, err
	}
	return d.u32v, nil
}

// MapSize returns the element count of a map value.
func (d EntryData) MapSize() (int, error) {
	if err := d.check(TypeMap); err != nil {
		return 0, err
	}
	return d.size, nil
}

// ArrayLen returns the element count of an array value.
func (d EntryData) ArrayLen() (int, error) {
	if err := d.check(TypeArray); err != nil {
		return 0, err
	}
	return d.size, nil
}

// Value returns the decoded payload as a natural Go value: string, []byte,
// float64, float32, uint16, uint32, int32, uint64, [16]byte, bool, or, for
// pointers, maps, and arrays, the uint32 offset or element count. It is
// nil when the value has no payload.
func (d EntryData) Value() any {
	if !d.hasData {
		return nil
	}
	switch d.typ {
	case TypeString:
		return d.str
	case TypeBytes:
		return d.raw
	case TypeDouble:
		return d.f64v
	case TypeFloat:
		return d.f32v
	case TypeUint16:
		return d.u16v
	case TypeUint32:
		return d.u32v
	case TypeInt32:
		return d.i32v
	case TypeUint64:
		return d.u64v
	case TypeUint128:
		return d.u128
	case TypeBool:
		return d.bv
	case TypePointer:
		return d.u32v
	case TypeMap, TypeArray:
		return d.size
	}
	return nil
}
