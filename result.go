package matchy

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// QueryResult is the host-owned materialization of a single query. The
// zero value is a miss.
type QueryResult struct {
	found     bool
	prefixLen uint8
	raw       string
}

// Found reports whether the query matched.
func (r *QueryResult) Found() bool {
	return r.found
}

// PrefixLen returns the network prefix length for IP matches (0-32 for
// IPv4, 0-128 for IPv6) and 0 for non-IP matches.
func (r *QueryResult) PrefixLen() int {
	return int(r.prefixLen)
}

// Raw returns the match payload as JSON. It is "" for a miss, and also for
// a match whose payload could not be parsed.
func (r *QueryResult) Raw() string {
	return r.raw
}

// Data returns the match payload as a generic map. It is nil for a miss
// and empty (non-nil) for a match without a usable payload.
func (r *QueryResult) Data() map[string]any {
	if !r.found {
		return nil
	}
	if v, ok := gjson.Parse(r.raw).Value().(map[string]any); ok {
		return v
	}
	return map[string]any{}
}

// Get resolves a gjson path inside the match payload, e.g. "threat.level".
func (r *QueryResult) Get(path string) gjson.Result {
	return gjson.Get(r.raw, path)
}

func (r *QueryResult) String() string {
	if !r.found {
		return "QueryResult{found=false}"
	}
	return fmt.Sprintf("QueryResult{found=true, prefixLen=%d, data=%s}", r.prefixLen, r.raw)
}
