package matchy

import (
	"fmt"

	"github.com/matchylabs/matchy-go/ffi"
)

// Stats is a snapshot of the engine's query and cache counters.
type Stats struct {
	TotalQueries        uint64
	QueriesWithMatch    uint64
	QueriesWithoutMatch uint64
	CacheHits           uint64
	CacheMisses         uint64
	IPQueries           uint64
	StringQueries       uint64
}

func statsFromNative(nat *ffi.Stats) *Stats {
	return &Stats{
		TotalQueries:        nat.TotalQueries,
		QueriesWithMatch:    nat.QueriesWithMatch,
		QueriesWithoutMatch: nat.QueriesWithoutMatch,
		CacheHits:           nat.CacheHits,
		CacheMisses:         nat.CacheMisses,
		IPQueries:           nat.IPQueries,
		StringQueries:       nat.StringQueries,
	}
}

// CacheHitRate returns hits/(hits+misses) in [0, 1], or 0 when the cache
// has not been exercised.
func (s *Stats) CacheHitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

func (s *Stats) String() string {
	return fmt.Sprintf(
		"Stats{total=%d, matches=%d, noMatch=%d, cacheHits=%d, cacheMisses=%d, hitRate=%.1f%%, ipQueries=%d, stringQueries=%d}",
		s.TotalQueries, s.QueriesWithMatch, s.QueriesWithoutMatch,
		s.CacheHits, s.CacheMisses, s.CacheHitRate()*100,
		s.IPQueries, s.StringQueries,
	)
}
