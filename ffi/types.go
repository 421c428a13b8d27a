package ffi

import "unsafe"

// Native error codes returned by the engine. Zero is success, everything
// else is negative.
const (
	Success              int32 = 0
	ErrFileNotFound      int32 = -1
	ErrInvalidFormat     int32 = -2
	ErrCorruptData       int32 = -3
	ErrOutOfMemory       int32 = -4
	ErrInvalidParam      int32 = -5
	ErrIO                int32 = -6
	ErrSchemaValidation  int32 = -7
	ErrUnknownSchema     int32 = -8
	ErrDataParse         int32 = -9
)

// Data type tags used in EntryData.Type. The numbering follows the MMDB
// data section encoding, which the engine reuses for its entry data.
const (
	DataPointer    int32 = 1
	DataUTF8String int32 = 2
	DataDouble     int32 = 3
	DataBytes      int32 = 4
	DataUint16     int32 = 5
	DataUint32     int32 = 6
	DataMap        int32 = 7
	DataInt32      int32 = 8
	DataUint64     int32 = 9
	DataUint128    int32 = 10
	DataArray      int32 = 11
	DataBoolean    int32 = 14
	DataFloat      int32 = 15
)

// Item type tags produced by the extractor (Match.ItemType).
const (
	ItemDomain   uint8 = 0
	ItemEmail    uint8 = 1
	ItemIPv4     uint8 = 2
	ItemIPv6     uint8 = 3
	ItemMD5      uint8 = 4
	ItemSHA1     uint8 = 5
	ItemSHA256   uint8 = 6
	ItemSHA384   uint8 = 7
	ItemSHA512   uint8 = 8
	ItemBitcoin  uint8 = 9
	ItemEthereum uint8 = 10
	ItemMonero   uint8 = 11
)

// Extractor configuration flags. Combine with bitwise OR.
const (
	ExtractDomains  uint32 = 1 << 0
	ExtractEmails   uint32 = 1 << 1
	ExtractIPv4     uint32 = 1 << 2
	ExtractIPv6     uint32 = 1 << 3
	ExtractHashes   uint32 = 1 << 4
	ExtractBitcoin  uint32 = 1 << 5
	ExtractEthereum uint32 = 1 << 6
	ExtractMonero   uint32 = 1 << 7
	ExtractAll      uint32 = 0xFFFFFFFF
)

// Validation levels accepted by matchy_validate.
const (
	ValidationStandard int32 = 0
	ValidationStrict   int32 = 1
)

// Result mirrors matchy_result_t. It is allocated zeroed by the caller and
// populated in place by matchy_query_into. CacheRef and DBRef are
// engine-internal; the caller never dereferences them, but they are why a
// found result must be released with matchy_free_result.
type Result struct {
	Found     bool
	PrefixLen uint8
	CacheRef  uintptr
	DBRef     uintptr
}

// OpenOptions mirrors matchy_open_options_t. CacheDir and ReloadCallback
// are raw native pointers; the caller keeps whatever they point at alive
// for the lifetime of the database handle.
type OpenOptions struct {
	CacheCapacity      int32
	AutoReload         bool
	AutoUpdate         bool
	UpdateIntervalSecs int32
	CacheDir           uintptr // const char*
	ReloadCallback     uintptr // matchy_reload_callback_t
	ReloadUserData     uintptr // void*
}

// Stats mirrors matchy_stats_t: seven u64 counters, populated in place.
type Stats struct {
	TotalQueries        uint64
	QueriesWithMatch    uint64
	QueriesWithoutMatch uint64
	CacheHits           uint64
	CacheMisses         uint64
	IPQueries           uint64
	StringQueries       uint64
}

// Match mirrors matchy_match_t, one element of the array addressed by
// Matches.Items. Value points at an engine-owned NUL-terminated string;
// Start and End are byte offsets into the scanned input, End exclusive.
type Match struct {
	ItemType uint8
	Value    uintptr // const char*
	Start    uint64
	End      uint64
}

// MatchSize is the per-item stride used to index Matches.Items.
const MatchSize = unsafe.Sizeof(Match{})

// Matches mirrors matchy_matches_t. The whole container, including every
// Match it addresses, is released by a single matchy_matches_free call.
type Matches struct {
	Items    uintptr // matchy_match_t*
	Count    uint64
	Internal uintptr
}

// Entry mirrors matchy_entry_s. Both fields are engine-internal; the struct
// is only ever passed back into the engine by pointer.
type Entry struct {
	DB     uintptr
	Offset uint32
}

// EntryData mirrors matchy_entry_data_s. Value is the raw union; its valid
// interpretation depends on Type and must not be read before Type is
// known. For variable-length types the union holds a pointer and DataSize
// gives the payload length in bytes; for maps and arrays DataSize is the
// element count.
type EntryData struct {
	HasData  bool
	Type     int32
	Value    [16]byte // union: ptr / u16 / u32 / i32 / u64 / u128 / f32 / f64 / bool
	DataSize int32
	Offset   int32
}

// EntryDataList mirrors matchy_entry_data_list_s, a singly linked list of
// entry data nodes. The whole chain is released by one
// matchy_free_entry_data_list call on the head pointer.
type EntryDataList struct {
	Data EntryData
	Next uintptr // matchy_entry_data_list_s*
}

// ReloadEvent mirrors matchy_reload_event_t as delivered to the reload
// callback. Path and Error are engine-owned C strings valid only for the
// duration of the callback; Error is null on success.
type ReloadEvent struct {
	Path       uintptr // const char*
	Success    bool
	Error      uintptr // const char*, nullable
	Generation uint64
}
