package cache

import (
	"fmt"
	"strings"
)

// Stats counts cache traffic since the last initialization.
type Stats struct {
	Inserts uint64
	Gets    uint64
	Hits    uint64
	Misses  uint64
}

// HitRatio is hits/gets as a percentage, or 0 if nothing was requested.
func (s Stats) HitRatio() float64 {
	if s.Gets == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Gets) * 100
}

// String renders the counters and the hit ratio, one per line.
func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cache inserts    [%d]\n", s.Inserts)
	fmt.Fprintf(&b, "Cache gets       [%d]\n", s.Gets)
	fmt.Fprintf(&b, "Cache hits       [%d]\n", s.Hits)
	fmt.Fprintf(&b, "Cache misses     [%d]\n", s.Misses)
	fmt.Fprintf(&b, "Cache hit ratio  [%.2f%%]", s.HitRatio())
	return b.String()
}
