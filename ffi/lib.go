package ffi

import (
	"fmt"
	"os"
	"sync"

	"github.com/ebitengine/purego"
)

// API is the function table for the native matchy engine. Production code
// obtains a table bound to the shared library via Load; tests inject their
// own implementations.
//
// Handles (uintptr return/parameter values named db, b, ex) are opaque and
// engine-owned. A zero handle from a factory function means construction
// failed. String parameters are marshalled to temporary C strings by
// purego; string returns are copied, so they are only used for engine-owned
// static storage. Anything the caller must free explicitly is typed uintptr.
type API struct {
	// Lifecycle.
	Open            func(path string) uintptr
	OpenWithOptions func(path string, opts *OpenOptions) uintptr
	OpenBuffer      func(buf *byte, size uint64) uintptr
	Close           func(db uintptr)

	// Query.
	QueryInto      func(db uintptr, query string, out *Result)
	FreeResult     func(res *Result)
	ResultToJSON   func(res *Result) uintptr // char*, release with FreeString
	FreeString     func(s uintptr)
	ResultGetEntry func(res *Result, out *Entry) int32

	// Builder.
	BuilderNew                func() uintptr
	BuilderAdd                func(b uintptr, key, jsonData string) int32
	BuilderSetDescription     func(b uintptr, description string) int32
	BuilderSetCaseInsensitive func(b uintptr, caseInsensitive uint8) int32
	BuilderSetSchema          func(b uintptr, schema string) int32
	BuilderSetUpdateURL       func(b uintptr, url string) int32
	BuilderSave               func(b uintptr, path string) int32
	BuilderBuild              func(b uintptr, bufOut *uintptr, sizeOut *uint64) int32
	BuilderFree               func(b uintptr)

	// Stats.
	GetStats   func(db uintptr, out *Stats)
	ClearCache func(db uintptr)

	// Introspection.
	HasIPData      func(db uintptr) uint8
	HasStringData  func(db uintptr) uint8
	HasLiteralData func(db uintptr) uint8
	HasGlobData    func(db uintptr) uint8
	Format         func(db uintptr) string
	PatternCount   func(db uintptr) uint64
	PatternString  func(db uintptr, patternID int32) string
	Metadata       func(db uintptr) string
	UpdateURL      func(db uintptr) string
	HasAutoUpdate  func() uint8
	Version        func() string

	// Structured data access.
	AGetValue         func(e *Entry, out *EntryData, path *uintptr) int32
	GetEntryDataList  func(e *Entry, listOut *uintptr) int32
	FreeEntryDataList func(list uintptr)

	// Extraction.
	ExtractorCreate func(flags uint32) uintptr
	ExtractChunk    func(ex uintptr, data *byte, length uint64, out *Matches) int32
	MatchesFree     func(m *Matches)
	ExtractorFree   func(ex uintptr)
	ItemTypeName    func(itemType uint8) string

	// Validation.
	Validate func(path string, level int32, msgOut *uintptr) int32

	// FreeBuffer releases buffers the engine allocates with malloc
	// (matchy_builder_build output). Bound to the process allocator's free.
	FreeBuffer func(p uintptr)
}

// EnvLibrary overrides library resolution when set to a shared object path.
const EnvLibrary = "MATCHY_LIBRARY"

var (
	loadOnce sync.Once
	loadAPI  *API
	loadErr  error
)

// Load binds the native library exactly once for the process lifetime and
// returns the shared function table. The binding is never torn down; a load
// failure is sticky and returned on every subsequent call.
func Load() (*API, error) {
	loadOnce.Do(func() {
		loadAPI, loadErr = load()
	})
	return loadAPI, loadErr
}

func load() (*API, error) {
	var lastErr error
	for _, candidate := range libraryCandidates() {
		lib, err := openLibrary(candidate)
		if err != nil {
			lastErr = err
			continue
		}
		return bind(lib)
	}
	return nil, fmt.Errorf("ffi: cannot load matchy library (set %s to override): %w", EnvLibrary, lastErr)
}

func libraryCandidates() []string {
	if p := os.Getenv(EnvLibrary); p != "" {
		return []string{p}
	}
	return defaultLibraryNames
}

func bind(lib uintptr) (*API, error) {
	api := &API{}
	for _, sym := range []struct {
		fn   any
		name string
	}{
		{&api.Open, "matchy_open"},
		{&api.OpenWithOptions, "matchy_open_with_options"},
		{&api.OpenBuffer, "matchy_open_buffer"},
		{&api.Close, "matchy_close"},
		{&api.QueryInto, "matchy_query_into"},
		{&api.FreeResult, "matchy_free_result"},
		{&api.ResultToJSON, "matchy_result_to_json"},
		{&api.FreeString, "matchy_free_string"},
		{&api.ResultGetEntry, "matchy_result_get_entry"},
		{&api.BuilderNew, "matchy_builder_new"},
		{&api.BuilderAdd, "matchy_builder_add"},
		{&api.BuilderSetDescription, "matchy_builder_set_description"},
		{&api.BuilderSetCaseInsensitive, "matchy_builder_set_case_insensitive"},
		{&api.BuilderSetSchema, "matchy_builder_set_schema"},
		{&api.BuilderSetUpdateURL, "matchy_builder_set_update_url"},
		{&api.BuilderSave, "matchy_builder_save"},
		{&api.BuilderBuild, "matchy_builder_build"},
		{&api.BuilderFree, "matchy_builder_free"},
		{&api.GetStats, "matchy_get_stats"},
		{&api.ClearCache, "matchy_clear_cache"},
		{&api.HasIPData, "matchy_has_ip_data"},
		{&api.HasStringData, "matchy_has_string_data"},
		{&api.HasLiteralData, "matchy_has_literal_data"},
		{&api.HasGlobData, "matchy_has_glob_data"},
		{&api.Format, "matchy_format"},
		{&api.PatternCount, "matchy_pattern_count"},
		{&api.PatternString, "matchy_get_pattern_string"},
		{&api.Metadata, "matchy_metadata"},
		{&api.UpdateURL, "matchy_get_update_url"},
		{&api.HasAutoUpdate, "matchy_has_auto_update"},
		{&api.Version, "matchy_version"},
		{&api.AGetValue, "matchy_aget_value"},
		{&api.GetEntryDataList, "matchy_get_entry_data_list"},
		{&api.FreeEntryDataList, "matchy_free_entry_data_list"},
		{&api.ExtractorCreate, "matchy_extractor_create"},
		{&api.ExtractChunk, "matchy_extractor_extract_chunk"},
		{&api.MatchesFree, "matchy_matches_free"},
		{&api.ExtractorFree, "matchy_extractor_free"},
		{&api.ItemTypeName, "matchy_item_type_name"},
		{&api.Validate, "matchy_validate"},
	} {
		if err := registerFunc(sym.fn, lib, sym.name); err != nil {
			return nil, fmt.Errorf("ffi: bind %s: %w", sym.name, err)
		}
	}
	if err := bindFree(api); err != nil {
		return nil, err
	}
	return api, nil
}

func registerFunc(fptr any, lib uintptr, name string) (err error) {
	// purego panics on missing symbols; surface that as an error so a
	// partially exported library is a load failure, not a crash.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	purego.RegisterLibFunc(fptr, lib, name)
	return nil
}
