package matchy

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	merrors "github.com/matchylabs/matchy-go/errors"
	"github.com/matchylabs/matchy-go/ffi"
)

// ItemType classifies an extracted indicator.
type ItemType uint8

const (
	ItemDomain   ItemType = ItemType(ffi.ItemDomain)
	ItemEmail    ItemType = ItemType(ffi.ItemEmail)
	ItemIPv4     ItemType = ItemType(ffi.ItemIPv4)
	ItemIPv6     ItemType = ItemType(ffi.ItemIPv6)
	ItemMD5      ItemType = ItemType(ffi.ItemMD5)
	ItemSHA1     ItemType = ItemType(ffi.ItemSHA1)
	ItemSHA256   ItemType = ItemType(ffi.ItemSHA256)
	ItemSHA384   ItemType = ItemType(ffi.ItemSHA384)
	ItemSHA512   ItemType = ItemType(ffi.ItemSHA512)
	ItemBitcoin  ItemType = ItemType(ffi.ItemBitcoin)
	ItemEthereum ItemType = ItemType(ffi.ItemEthereum)
	ItemMonero   ItemType = ItemType(ffi.ItemMonero)
)

var itemTypeNames = map[ItemType]string{
	ItemDomain:   "domain",
	ItemEmail:    "email",
	ItemIPv4:     "ipv4",
	ItemIPv6:     "ipv6",
	ItemMD5:      "md5",
	ItemSHA1:     "sha1",
	ItemSHA256:   "sha256",
	ItemSHA384:   "sha384",
	ItemSHA512:   "sha512",
	ItemBitcoin:  "bitcoin",
	ItemEthereum: "ethereum",
	ItemMonero:   "monero",
}

func (t ItemType) String() string {
	if name, ok := itemTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("item(%d)", uint8(t))
}

func itemTypeKnown(tag uint8) bool {
	_, ok := itemTypeNames[ItemType(tag)]
	return ok
}

// ExtractFlags selects which indicator types an Extractor looks for.
// Combine with bitwise OR.
type ExtractFlags uint32

const (
	ExtractDomains  ExtractFlags = ExtractFlags(ffi.ExtractDomains)
	ExtractEmails   ExtractFlags = ExtractFlags(ffi.ExtractEmails)
	ExtractIPv4     ExtractFlags = ExtractFlags(ffi.ExtractIPv4)
	ExtractIPv6     ExtractFlags = ExtractFlags(ffi.ExtractIPv6)
	ExtractHashes   ExtractFlags = ExtractFlags(ffi.ExtractHashes)
	ExtractBitcoin  ExtractFlags = ExtractFlags(ffi.ExtractBitcoin)
	ExtractEthereum ExtractFlags = ExtractFlags(ffi.ExtractEthereum)
	ExtractMonero   ExtractFlags = ExtractFlags(ffi.ExtractMonero)
	ExtractAll      ExtractFlags = ExtractFlags(ffi.ExtractAll)
)

// ExtractedMatch is one indicator found in the input. Value is copied out
// of native memory; Start and End are byte offsets into the input, End
// exclusive, so input[Start:End] == Value.
type ExtractedMatch struct {
	Type  ItemType
	Value string
	Start uint64
	End   uint64
}

func (m ExtractedMatch) String() string {
	return fmt.Sprintf("ExtractedMatch{type=%s, value=%q, start=%d, end=%d}", m.Type, m.Value, m.Start, m.End)
}

// Extractor finds indicators of compromise (domains, addresses, hashes,
// wallet addresses) in text. Safe for concurrent use.
type Extractor struct {
	api    *ffi.API
	handle uintptr
	closed atomic.Bool
}

// NewExtractor creates an extractor for all supported indicator types.
func NewExtractor() (*Extractor, error) {
	return NewExtractorFlags(ExtractAll)
}

// NewExtractorFlags creates an extractor for the selected indicator types.
func NewExtractorFlags(flags ExtractFlags) (*Extractor, error) {
	api, err := loadAPI()
	if err != nil {
		return nil, err
	}
	handle := api.ExtractorCreate(uint32(flags))
	if handle == 0 {
		return nil, merrors.NilHandle(merrors.OpExtract, "extractor")
	}
	return &Extractor{api: api, handle: handle}, nil
}

// Extract scans a string. See ExtractBytes.
func (ex *Extractor) Extract(text string) ([]ExtractedMatch, error) {
	return ex.ExtractBytes([]byte(text))
}

// ExtractBytes scans data and returns every recognized indicator with its
// byte offsets. The native match container is released exactly once before
// returning, on every path; items with an unknown type tag are skipped.
func (ex *Extractor) ExtractBytes(data []byte) ([]ExtractedMatch, error) {
	if err := ex.checkOpen(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var nat ffi.Matches
	rc := ex.api.ExtractChunk(ex.handle, &data[0], uint64(len(data)), &nat)
	runtime.KeepAlive(data)
	if rc != ffi.Success {
		return nil, merrors.FromNative(merrors.OpExtract, rc, "chunk")
	}
	defer ex.api.MatchesFree(&nat)

	if nat.Count == 0 || nat.Items == 0 {
		return nil, nil
	}
	out := make([]ExtractedMatch, 0, nat.Count)
	for i := uint64(0); i < nat.Count; i++ {
		item := (*ffi.Match)(unsafe.Pointer(nat.Items + uintptr(i)*ffi.MatchSize))
		if !itemTypeKnown(item.ItemType) || item.Value == 0 {
			continue
		}
		out = append(out, ExtractedMatch{
			Type:  ItemType(item.ItemType),
			Value: ffi.GoString(item.Value),
			Start: item.Start,
			End:   item.End,
		})
	}
	return out, nil
}

// Closed reports whether Close has been called.
func (ex *Extractor) Closed() bool {
	return ex.closed.Load()
}

// Close releases the extractor. Idempotent.
func (ex *Extractor) Close() error {
	if !ex.closed.CompareAndSwap(false, true) {
		return nil
	}
	ex.api.ExtractorFree(ex.handle)
	return nil
}

func (ex *Extractor) checkOpen() error {
	if ex.closed.Load() {
		return merrors.Closed(merrors.OpExtract, "extractor")
	}
	return nil
}
