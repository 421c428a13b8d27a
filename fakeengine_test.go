package matchy

import (
	"encoding/json"
	"net/netip"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"unsafe"

	"github.com/matchylabs/matchy-go/ffi"
)

// fakeEngine implements the native function table in-process with
// real-enough semantics: exact and CIDR IP matching, literal and glob
// string matching, a query cache with counters, regexp-based extraction,
// and instrumented allocation tracking. Every allocation it hands across
// the "boundary" must come back through the matching free exactly once;
// double frees fail the test immediately and leaks fail it at cleanup.
type fakeEngine struct {
	t   *testing.T
	api *ffi.API

	mu         sync.Mutex
	nextHandle uintptr
	dbs        map[uintptr]*fakeDB
	builders   map[uintptr]*fakeBuilder
	extractors map[uintptr]*fakeExtractor

	// Outstanding allocations, keyed by the pointer handed out.
	cstrings map[uintptr][]byte
	// Payload buffers that mimic engine-owned data section memory: handed
	// out by pointer, never freed by the caller.
	permanent [][]byte
	results  map[uintptr]*fakeResultAlloc
	matches  map[uintptr]*fakeMatchesAlloc
	lists    map[uintptr]*fakeListAlloc
	buffers  map[uintptr][]byte

	closedDBs        int
	closedBuilders   int
	closedExtractors int
}

type fakeEntry struct {
	key    string
	prefix *netip.Prefix // set for IP and CIDR keys
	json   string
}

type fakeDB struct {
	entries       []fakeEntry
	caseFold      bool
	description   string
	updateURL     string
	cacheCapacity int
	cache         map[string]fakeHit
	stats         ffi.Stats
	freed         bool
}

type fakeHit struct {
	found     bool
	prefixLen uint8
	entryIdx  int
}

type fakeBuilder struct {
	entries     []fakeEntry
	description string
	caseFold    bool
	schema      string
	updateURL   string
	freed       bool
}

type fakeExtractor struct {
	flags uint32
	freed bool
}

// fakeResultAlloc backs one found Result. The pointer key is the CacheRef
// written into the scratch struct.
type fakeResultAlloc struct {
	db       uintptr
	entryIdx int
	buf      []byte // anchor so the uintptr key stays valid
}

type fakeMatchesAlloc struct {
	items  []ffi.Match
	values [][]byte
}

type fakeListAlloc struct {
	nodes   []ffi.EntryDataList
	anchors [][]byte
}

// dbSerialized is the fake's on-disk / in-buffer format.
type dbSerialized struct {
	Magic       string `json:"magic"`
	Description string `json:"description,omitempty"`
	CaseFold    bool   `json:"case_fold,omitempty"`
	UpdateURL   string `json:"update_url,omitempty"`
	Entries     []struct {
		Key  string          `json:"key"`
		Data json.RawMessage `json:"data"`
	} `json:"entries"`
}

const fakeMagic = "mxy-fake"

func newFakeEngine(t *testing.T) *fakeEngine {
	e := &fakeEngine{
		t:          t,
		nextHandle: 0x1000,
		dbs:        make(map[uintptr]*fakeDB),
		builders:   make(map[uintptr]*fakeBuilder),
		extractors: make(map[uintptr]*fakeExtractor),
		cstrings:   make(map[uintptr][]byte),
		results:    make(map[uintptr]*fakeResultAlloc),
		matches:    make(map[uintptr]*fakeMatchesAlloc),
		lists:      make(map[uintptr]*fakeListAlloc),
		buffers:    make(map[uintptr][]byte),
	}
	e.api = &ffi.API{
		Open:            func(path string) uintptr { return e.open(path, nil) },
		OpenWithOptions: e.open,
		OpenBuffer:      e.openBuffer,
		Close:           e.closeDB,

		QueryInto:      e.queryInto,
		FreeResult:     e.freeResult,
		ResultToJSON:   e.resultToJSON,
		FreeString:     e.freeString,
		ResultGetEntry: e.resultGetEntry,

		BuilderNew:                e.builderNew,
		BuilderAdd:                e.builderAdd,
		BuilderSetDescription:     e.builderSetDescription,
		BuilderSetCaseInsensitive: e.builderSetCaseInsensitive,
		BuilderSetSchema:          e.builderSetSchema,
		BuilderSetUpdateURL:       e.builderSetUpdateURL,
		BuilderSave:               e.builderSave,
		BuilderBuild:              e.builderBuild,
		BuilderFree:               e.builderFree,

		GetStats:   e.getStats,
		ClearCache: e.clearCache,

		HasIPData:      func(db uintptr) uint8 { return e.hasData(db, true) },
		HasStringData:  func(db uintptr) uint8 { return e.hasData(db, false) },
		HasLiteralData: func(db uintptr) uint8 { return e.hasData(db, false) },
		HasGlobData: func(db uintptr) uint8 {
			d := e.db(db)
			for _, ent := range d.entries {
				if ent.prefix == nil && strings.Contains(ent.key, "*") {
					return 1
				}
			}
			return 0
		},
		Format:        func(db uintptr) string { e.db(db); return "Combined IP+Pattern database" },
		PatternCount:  e.patternCount,
		PatternString: e.patternString,
		Metadata: func(db uintptr) string {
			d := e.db(db)
			meta, _ := json.Marshal(map[string]any{"description": d.description})
			return string(meta)
		},
		UpdateURL:     func(db uintptr) string { return e.db(db).updateURL },
		HasAutoUpdate: func() uint8 { return 0 },
		Version:       func() string { return "9.9.9-fake" },

		AGetValue:         e.agetValue,
		GetEntryDataList:  e.getEntryDataList,
		FreeEntryDataList: e.freeEntryDataList,

		ExtractorCreate: e.extractorCreate,
		ExtractChunk:    e.extractChunk,
		MatchesFree:     e.matchesFree,
		ExtractorFree:   e.extractorFree,
		ItemTypeName:    func(itemType uint8) string { return ItemType(itemType).String() },

		Validate: e.validate,

		FreeBuffer: e.freeBuffer,
	}
	return e
}

// withFakeEngine installs the fake as the package's native layer, restores
// the real loader at cleanup, and fails the test if any native allocation
// leaked or any handle stayed open.
func withFakeEngine(t *testing.T) *fakeEngine {
	t.Helper()
	e := newFakeEngine(t)
	prev := loadAPI
	loadAPI = func() (*ffi.API, error) { return e.api, nil }
	t.Cleanup(func() {
		loadAPI = prev
		e.verifyNoLeaks()
	})
	return e
}

func (e *fakeEngine) verifyNoLeaks() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n := len(e.results); n != 0 {
		e.t.Errorf("leaked %d native results", n)
	}
	if n := len(e.cstrings); n != 0 {
		e.t.Errorf("leaked %d native strings", n)
	}
	if n := len(e.matches); n != 0 {
		e.t.Errorf("leaked %d match containers", n)
	}
	if n := len(e.lists); n != 0 {
		e.t.Errorf("leaked %d entry data lists", n)
	}
	if n := len(e.buffers); n != 0 {
		e.t.Errorf("leaked %d built buffers", n)
	}
}

func (e *fakeEngine) handle() uintptr {
	e.nextHandle += 0x10
	return e.nextHandle
}

func (e *fakeEngine) db(h uintptr) *fakeDB {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.dbs[h]
	if !ok {
		e.t.Fatalf("native call on unknown database handle %#x", h)
	}
	if d.freed {
		e.t.Fatalf("native call on closed database handle %#x", h)
	}
	return d
}

func (e *fakeEngine) builder(h uintptr) *fakeBuilder {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.builders[h]
	if !ok {
		e.t.Fatalf("native call on unknown builder handle %#x", h)
	}
	if b.freed {
		e.t.Fatalf("native call on freed builder handle %#x", h)
	}
	return b
}

// newCString registers a NUL-terminated allocation and returns its address.
func (e *fakeEngine) newCString(s string) uintptr {
	buf := append([]byte(s), 0)
	p := uintptr(unsafe.Pointer(&buf[0]))
	e.mu.Lock()
	e.cstrings[p] = buf
	e.mu.Unlock()
	return p
}

func (e *fakeEngine) freeString(p uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.cstrings[p]; !ok {
		e.t.Errorf("free of unknown or already-freed string %#x", p)
		return
	}
	delete(e.cstrings, p)
}

// Lifecycle.

func (e *fakeEngine) open(path string, _ *ffi.OpenOptions) uintptr {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	return e.openParsed(data)
}

func (e *fakeEngine) openBuffer(buf *byte, size uint64) uintptr {
	return e.openParsed(unsafe.Slice(buf, size))
}

func (e *fakeEngine) openParsed(data []byte) uintptr {
	var ser dbSerialized
	if err := json.Unmarshal(data, &ser); err != nil || ser.Magic != fakeMagic {
		return 0
	}
	d := &fakeDB{
		description:   ser.Description,
		caseFold:      ser.CaseFold,
		updateURL:     ser.UpdateURL,
		cacheCapacity: DefaultCacheCapacity,
		cache:         make(map[string]fakeHit),
	}
	for _, ent := range ser.Entries {
		d.entries = append(d.entries, parseFakeEntry(ent.Key, string(ent.Data)))
	}
	h := e.handle()
	e.mu.Lock()
	e.dbs[h] = d
	e.mu.Unlock()
	return h
}

func parseFakeEntry(key, jsonData string) fakeEntry {
	ent := fakeEntry{key: key, json: jsonData}
	if p, err := netip.ParsePrefix(key); err == nil {
		ent.prefix = &p
	} else if a, err := netip.ParseAddr(key); err == nil {
		p := netip.PrefixFrom(a, a.BitLen())
		ent.prefix = &p
	}
	return ent
}

func (e *fakeEngine) closeDB(h uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.dbs[h]
	if !ok {
		e.t.Errorf("close of unknown database handle %#x", h)
		return
	}
	if d.freed {
		e.t.Errorf("double close of database handle %#x", h)
		return
	}
	d.freed = true
	e.closedDBs++
}

// Query.

func (d *fakeDB) lookup(query string) fakeHit {
	if addr, err := netip.ParseAddr(query); err == nil {
		for i, ent := range d.entries {
			if ent.prefix != nil && ent.prefix.Contains(addr) {
				return fakeHit{found: true, prefixLen: uint8(ent.prefix.Bits()), entryIdx: i}
			}
		}
		return fakeHit{}
	}
	q := query
	if d.caseFold {
		q = strings.ToLower(q)
	}
	for i, ent := range d.entries {
		if ent.prefix != nil {
			continue
		}
		key := ent.key
		if d.caseFold {
			key = strings.ToLower(key)
		}
		if key == q || (strings.HasPrefix(key, "*") && strings.HasSuffix(q, key[1:])) {
			return fakeHit{found: true, entryIdx: i}
		}
	}
	return fakeHit{}
}

func (e *fakeEngine) queryInto(h uintptr, query string, out *ffi.Result) {
	d := e.db(h)
	e.mu.Lock()
	defer e.mu.Unlock()

	d.stats.TotalQueries++
	isIP := false
	if _, err := netip.ParseAddr(query); err == nil {
		isIP = true
		d.stats.IPQueries++
	} else {
		d.stats.StringQueries++
	}
	_ = isIP

	hit, cached := d.cache[query]
	if d.cacheCapacity > 0 {
		if cached {
			d.stats.CacheHits++
		} else {
			d.stats.CacheMisses++
		}
	}
	if !cached {
		hit = d.lookup(query)
		if d.cacheCapacity > 0 && len(d.cache) < d.cacheCapacity {
			d.cache[query] = hit
		}
	}

	out.Found = hit.found
	out.PrefixLen = hit.prefixLen
	out.CacheRef = 0
	out.DBRef = 0
	if !hit.found {
		d.stats.QueriesWithoutMatch++
		return
	}
	d.stats.QueriesWithMatch++

	// A found result owns one native allocation, released by FreeResult.
	anchor := make([]byte, 1)
	ref := uintptr(unsafe.Pointer(&anchor[0]))
	e.results[ref] = &fakeResultAlloc{db: h, entryIdx: hit.entryIdx, buf: anchor}
	out.CacheRef = ref
	out.DBRef = h
}

func (e *fakeEngine) resultAlloc(res *ffi.Result) *fakeResultAlloc {
	e.mu.Lock()
	defer e.mu.Unlock()
	if res.CacheRef == 0 {
		e.t.Fatalf("native call on a result without a match")
	}
	alloc, ok := e.results[res.CacheRef]
	if !ok {
		e.t.Fatalf("native call on freed result %#x", res.CacheRef)
	}
	return alloc
}

func (e *fakeEngine) freeResult(res *ffi.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if res.CacheRef == 0 {
		e.t.Errorf("free_result on a result that holds no allocation")
		return
	}
	if _, ok := e.results[res.CacheRef]; !ok {
		e.t.Errorf("double free of result %#x", res.CacheRef)
		return
	}
	delete(e.results, res.CacheRef)
	res.CacheRef = 0
}

func (e *fakeEngine) resultToJSON(res *ffi.Result) uintptr {
	alloc := e.resultAlloc(res)
	e.mu.Lock()
	d := e.dbs[alloc.db]
	payload := d.entries[alloc.entryIdx].json
	e.mu.Unlock()
	if payload == "" {
		return 0
	}
	return e.newCString(payload)
}

func (e *fakeEngine) resultGetEntry(res *ffi.Result, out *ffi.Entry) int32 {
	alloc := e.resultAlloc(res)
	out.DB = alloc.db
	out.Offset = uint32(alloc.entryIdx)
	return ffi.Success
}

// Builder.

func (e *fakeEngine) builderNew() uintptr {
	h := e.handle()
	e.mu.Lock()
	e.builders[h] = &fakeBuilder{}
	e.mu.Unlock()
	return h
}

func (e *fakeEngine) builderAdd(h uintptr, key, jsonData string) int32 {
	b := e.builder(h)
	if key == "" {
		return ffi.ErrInvalidParam
	}
	if !json.Valid([]byte(jsonData)) {
		return ffi.ErrDataParse
	}
	e.mu.Lock()
	b.entries = append(b.entries, parseFakeEntry(key, jsonData))
	e.mu.Unlock()
	return ffi.Success
}

func (e *fakeEngine) builderSetDescription(h uintptr, description string) int32 {
	e.builder(h).description = description
	return ffi.Success
}

func (e *fakeEngine) builderSetCaseInsensitive(h uintptr, ci uint8) int32 {
	e.builder(h).caseFold = ci != 0
	return ffi.Success
}

func (e *fakeEngine) builderSetSchema(h uintptr, schema string) int32 {
	b := e.builder(h)
	if schema == "bogus-schema" {
		return ffi.ErrUnknownSchema
	}
	b.schema = schema
	return ffi.Success
}

func (e *fakeEngine) builderSetUpdateURL(h uintptr, url string) int32 {
	e.builder(h).updateURL = url
	return ffi.Success
}

func (e *fakeEngine) serialize(b *fakeBuilder) []byte {
	ser := dbSerialized{
		Magic:       fakeMagic,
		Description: b.description,
		CaseFold:    b.caseFold,
		UpdateURL:   b.updateURL,
	}
	for _, ent := range b.entries {
		ser.Entries = append(ser.Entries, struct {
			Key  string          `json:"key"`
			Data json.RawMessage `json:"data"`
		}{Key: ent.key, Data: json.RawMessage(ent.json)})
	}
	out, err := json.Marshal(ser)
	if err != nil {
		e.t.Fatalf("serialize: %v", err)
	}
	return out
}

func (e *fakeEngine) builderSave(h uintptr, path string) int32 {
	b := e.builder(h)
	if err := os.WriteFile(path, e.serialize(b), 0o644); err != nil {
		return ffi.ErrIO
	}
	return ffi.Success
}

func (e *fakeEngine) builderBuild(h uintptr, bufOut *uintptr, sizeOut *uint64) int32 {
	b := e.builder(h)
	data := e.serialize(b)
	p := uintptr(unsafe.Pointer(&data[0]))
	e.mu.Lock()
	e.buffers[p] = data
	e.mu.Unlock()
	*bufOut = p
	*sizeOut = uint64(len(data))
	return ffi.Success
}

func (e *fakeEngine) builderFree(h uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.builders[h]
	if !ok {
		e.t.Errorf("free of unknown builder handle %#x", h)
		return
	}
	if b.freed {
		e.t.Errorf("double free of builder handle %#x", h)
		return
	}
	b.freed = true
	e.closedBuilders++
}

func (e *fakeEngine) freeBuffer(p uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.buffers[p]; !ok {
		e.t.Errorf("free of unknown or already-freed buffer %#x", p)
		return
	}
	delete(e.buffers, p)
}

// Stats.

func (e *fakeEngine) getStats(h uintptr, out *ffi.Stats) {
	d := e.db(h)
	e.mu.Lock()
	*out = d.stats
	e.mu.Unlock()
}

func (e *fakeEngine) clearCache(h uintptr) {
	d := e.db(h)
	e.mu.Lock()
	d.cache = make(map[string]fakeHit)
	e.mu.Unlock()
}

// Introspection.

func (e *fakeEngine) hasData(h uintptr, ip bool) uint8 {
	d := e.db(h)
	for _, ent := range d.entries {
		if (ent.prefix != nil) == ip {
			return 1
		}
	}
	return 0
}

func (e *fakeEngine) patternCount(h uintptr) uint64 {
	d := e.db(h)
	var n uint64
	for _, ent := range d.entries {
		if ent.prefix == nil {
			n++
		}
	}
	return n
}

func (e *fakeEngine) patternString(h uintptr, id int32) string {
	d := e.db(h)
	var n int32
	for _, ent := range d.entries {
		if ent.prefix == nil {
			if n == id {
				return ent.key
			}
			n++
		}
	}
	return ""
}

// Structured access. The union encoding mirrors what the engine does:
// variable-length payloads live behind a pointer in the union with the
// size in DataSize, scalars are stored in the union in place.

func (e *fakeEngine) entryJSON(ent *ffi.Entry) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.dbs[ent.DB]
	if !ok || int(ent.Offset) >= len(d.entries) {
		return "", false
	}
	return d.entries[ent.Offset].json, true
}

func (e *fakeEngine) encodeEntryData(out *ffi.EntryData, v any) [][]byte {
	var anchors [][]byte
	*out = ffi.EntryData{HasData: true}
	union := unsafe.Pointer(&out.Value[0])
	switch val := v.(type) {
	case string:
		buf := append([]byte(val), 0)
		anchors = append(anchors, buf)
		out.Type = ffi.DataUTF8String
		out.DataSize = int32(len(val))
		*(*uintptr)(union) = uintptr(unsafe.Pointer(&buf[0]))
	case float64:
		out.Type = ffi.DataDouble
		out.DataSize = 8
		*(*float64)(union) = val
	case bool:
		out.Type = ffi.DataBoolean
		out.DataSize = 1
		if val {
			out.Value[0] = 1
		}
	case map[string]any:
		out.Type = ffi.DataMap
		out.DataSize = int32(len(val))
	case []any:
		out.Type = ffi.DataArray
		out.DataSize = int32(len(val))
	default:
		e.t.Fatalf("fake engine cannot encode %T", v)
	}
	return anchors
}

func (e *fakeEngine) agetValue(ent *ffi.Entry, out *ffi.EntryData, path *uintptr) int32 {
	raw, ok := e.entryJSON(ent)
	if !ok {
		return ffi.ErrInvalidParam
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return ffi.ErrDataParse
	}

	// Walk the NUL-terminated char* array.
	for p := path; *p != 0; p = (*uintptr)(unsafe.Pointer(uintptr(unsafe.Pointer(p)) + unsafe.Sizeof(uintptr(0)))) {
		key := ffi.GoString(*p)
		m, ok := doc.(map[string]any)
		if !ok {
			return ffi.ErrInvalidParam
		}
		if doc, ok = m[key]; !ok {
			*out = ffi.EntryData{}
			return ffi.ErrInvalidParam
		}
	}

	anchors := e.encodeEntryData(out, doc)
	e.anchor(anchors)
	return ffi.Success
}

// anchor keeps payload buffers reachable for the engine's lifetime, the
// way real entry data points into the mapped data section. These are not
// caller-freed and are exempt from the leak check.
func (e *fakeEngine) anchor(bufs [][]byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.permanent = append(e.permanent, bufs...)
}

func (e *fakeEngine) getEntryDataList(ent *ffi.Entry, listOut *uintptr) int32 {
	raw, ok := e.entryJSON(ent)
	if !ok {
		return ffi.ErrInvalidParam
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return ffi.ErrDataParse
	}

	alloc := &fakeListAlloc{}
	var flatten func(v any)
	flatten = func(v any) {
		var node ffi.EntryDataList
		alloc.anchors = append(alloc.anchors, e.encodeEntryData(&node.Data, v)...)
		alloc.nodes = append(alloc.nodes, node)
		switch val := v.(type) {
		case map[string]any:
			for _, k := range sortedKeys(val) {
				var knode ffi.EntryDataList
				alloc.anchors = append(alloc.anchors, e.encodeEntryData(&knode.Data, k)...)
				alloc.nodes = append(alloc.nodes, knode)
				flatten(val[k])
			}
		case []any:
			for _, item := range val {
				flatten(item)
			}
		}
	}
	flatten(doc)

	for i := range alloc.nodes[:len(alloc.nodes)-1] {
		alloc.nodes[i].Next = uintptr(unsafe.Pointer(&alloc.nodes[i+1]))
	}
	head := uintptr(unsafe.Pointer(&alloc.nodes[0]))
	e.mu.Lock()
	e.lists[head] = alloc
	e.mu.Unlock()
	*listOut = head
	return ffi.Success
}

func (e *fakeEngine) freeEntryDataList(head uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.lists[head]; !ok {
		e.t.Errorf("double free of entry data list %#x", head)
		return
	}
	delete(e.lists, head)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

// Extraction.

var (
	fakeIPv4RE   = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	fakeEmailRE  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	fakeDomainRE = regexp.MustCompile(`\b[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)*\.(?:com|net|org|io|dev)\b`)
	fakeMD5RE    = regexp.MustCompile(`\b[a-f0-9]{32}\b`)
)

func (e *fakeEngine) extractorCreate(flags uint32) uintptr {
	if flags == 0 {
		return 0
	}
	h := e.handle()
	e.mu.Lock()
	e.extractors[h] = &fakeExtractor{flags: flags}
	e.mu.Unlock()
	return h
}

func (e *fakeEngine) extractChunk(h uintptr, data *byte, length uint64, out *ffi.Matches) int32 {
	e.mu.Lock()
	ex, ok := e.extractors[h]
	if !ok || ex.freed {
		e.mu.Unlock()
		e.t.Fatalf("extract on unknown or freed extractor handle %#x", h)
	}
	flags := ex.flags
	e.mu.Unlock()

	input := string(unsafe.Slice(data, length))
	type span struct {
		tag        uint8
		start, end int
	}
	var spans []span
	add := func(tag uint8, re *regexp.Regexp) {
		for _, loc := range re.FindAllStringIndex(input, -1) {
			spans = append(spans, span{tag: tag, start: loc[0], end: loc[1]})
		}
	}
	if flags&ffi.ExtractIPv4 != 0 {
		add(ffi.ItemIPv4, fakeIPv4RE)
	}
	if flags&ffi.ExtractEmails != 0 {
		add(ffi.ItemEmail, fakeEmailRE)
	}
	if flags&ffi.ExtractDomains != 0 {
		add(ffi.ItemDomain, fakeDomainRE)
	}
	if flags&ffi.ExtractHashes != 0 {
		add(ffi.ItemMD5, fakeMD5RE)
	}
	// One deliberately unknown tag so wrappers must skip it.
	if strings.Contains(input, "UNKNOWN-TAG") {
		i := strings.Index(input, "UNKNOWN-TAG")
		spans = append(spans, span{tag: 0xEE, start: i, end: i + len("UNKNOWN-TAG")})
	}

	*out = ffi.Matches{}
	if len(spans) == 0 {
		return ffi.Success
	}

	alloc := &fakeMatchesAlloc{items: make([]ffi.Match, len(spans))}
	for i, s := range spans {
		val := append([]byte(input[s.start:s.end]), 0)
		alloc.values = append(alloc.values, val)
		alloc.items[i] = ffi.Match{
			ItemType: s.tag,
			Value:    uintptr(unsafe.Pointer(&val[0])),
			Start:    uint64(s.start),
			End:      uint64(s.end),
		}
	}
	items := uintptr(unsafe.Pointer(&alloc.items[0]))
	e.mu.Lock()
	e.matches[items] = alloc
	e.mu.Unlock()
	*out = ffi.Matches{Items: items, Count: uint64(len(spans)), Internal: items}
	return ffi.Success
}

func (e *fakeEngine) matchesFree(m *ffi.Matches) {
	if m.Items == 0 {
		return // empty container owns nothing
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.matches[m.Items]; !ok {
		e.t.Errorf("double free of match container %#x", m.Items)
		return
	}
	delete(e.matches, m.Items)
}

func (e *fakeEngine) extractorFree(h uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ex, ok := e.extractors[h]
	if !ok {
		e.t.Errorf("free of unknown extractor handle %#x", h)
		return
	}
	if ex.freed {
		e.t.Errorf("double free of extractor handle %#x", h)
		return
	}
	ex.freed = true
	e.closedExtractors++
}

// Validation.

func (e *fakeEngine) validate(path string, level int32, msgOut *uintptr) int32 {
	data, err := os.ReadFile(path)
	if err != nil {
		return ffi.ErrFileNotFound
	}
	var ser dbSerialized
	if err := json.Unmarshal(data, &ser); err != nil || ser.Magic != fakeMagic {
		*msgOut = e.newCString("bad magic or malformed container")
		return ffi.ErrInvalidFormat
	}
	if level == ffi.ValidationStrict {
		for _, ent := range ser.Entries {
			if !json.Valid(ent.Data) {
				*msgOut = e.newCString("entry " + ent.Key + ": malformed payload")
				return ffi.ErrCorruptData
			}
		}
	}
	return ffi.Success
}
