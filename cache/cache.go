// Package cache implements the fixed-capacity sector cache that sits between
// the driver and the remote controller.
package cache

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/c2h5oh/datasize"
	"github.com/tobiasfamos/fs3/logging"
	"github.com/tobiasfamos/fs3/proto"
)

const (
	// DefaultCapacity is the number of lines used when none is configured.
	DefaultCapacity = 2048
	// MaxCapacity is the largest number of lines a cache may hold.
	MaxCapacity = 1<<16 - 1
)

var (
	ErrAlreadyInitialized = errors.New("cache already initialized")
	ErrNotInitialized     = errors.New("cache not initialized")
	ErrInvalidCapacity    = fmt.Errorf("cache capacity must be between 1 and %d", MaxCapacity)
)

// Config provides parameters used to build a SectorCache.
type Config struct {
	Capacity int    // Number of lines; 0 means DefaultCapacity
	Policy   Policy // Eviction policy
	Logger   *slog.Logger
}

// line holds one resident sector. data is owned by the cache.
type line struct {
	loc  proto.Location
	data []byte
}

/*
SectorCache keeps the contents of recently touched sectors, keyed by their
track and sector.

Lines are appended until the capacity is reached; after that every insert
of a new key overwrites the slot elected by the eviction policy. Each
location occupies at most one line.

A SectorCache is not safe for concurrent use.
*/
type SectorCache struct {
	lines       []*line
	lookup      map[proto.Location]int
	capacity    int
	policy      Policy
	eviction    Eviction
	stats       Stats
	initialized bool
	logger      *slog.Logger
}

// New creates an uninitialized cache. Call Init before use.
func New(cfg Config) *SectorCache {
	return &SectorCache{
		policy: cfg.Policy,
		logger: logging.For(cfg.Logger, logging.ComponentCache),
	}
}

// Open creates a cache and initializes it with cfg.Capacity lines.
func Open(cfg Config) (*SectorCache, error) {
	c := New(cfg)
	capacity := cfg.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if err := c.Init(capacity); err != nil {
		return nil, err
	}
	return c, nil
}

/*
Init prepares the cache to hold capacity lines and resets the statistics.

Returns an error if the cache is already initialized or capacity is out of
range.
*/
func (c *SectorCache) Init(capacity int) error {
	if c.initialized {
		c.logger.Warn("cache already initialized")
		return ErrAlreadyInitialized
	}
	if capacity < 1 || capacity > MaxCapacity {
		return ErrInvalidCapacity
	}

	c.lines = make([]*line, 0, capacity)
	c.lookup = make(map[proto.Location]int, capacity)
	c.capacity = capacity
	c.eviction = c.policy.newEviction(capacity)
	c.stats = Stats{}
	c.initialized = true

	c.logger.Info("initialized cache", "lines", capacity, "policy", c.policy.String())
	return nil
}

/*
Close releases every resident line. The cache returns to the uninitialized
state and may be initialized again.

Returns an error if the cache is not initialized.
*/
func (c *SectorCache) Close() error {
	if !c.initialized {
		c.logger.Warn("cache already closed")
		return ErrNotInitialized
	}

	deleted := len(c.lines)
	for i := range c.lines {
		c.lines[i].data = nil
		c.lines[i] = nil
	}
	c.lines = nil
	c.lookup = nil
	c.eviction = nil
	c.initialized = false

	c.logger.Info("cache closed", "deleted", deleted)
	return nil
}

/*
Put stores one sector. buf is copied; at most proto.SectorSize bytes are
kept and a shorter buf is zero-padded.

If loc is resident its line is overwritten in place and marked as accessed.
Otherwise a new line is appended, or, with the cache full, the eviction
victim is replaced.
*/
func (c *SectorCache) Put(loc proto.Location, buf []byte) error {
	if !c.initialized {
		return ErrNotInitialized
	}
	c.stats.Inserts++

	if slot, ok := c.lookup[loc]; ok {
		fill(c.lines[slot].data, buf)
		c.eviction.Access(slot)
		c.logger.Debug("updated cache item", "track", loc.Track, "sector", loc.Sector)
		return nil
	}

	if len(c.lines) < c.capacity {
		l := &line{loc: loc, data: make([]byte, proto.SectorSize)}
		fill(l.data, buf)
		c.lines = append(c.lines, l)
		slot := len(c.lines) - 1
		c.lookup[loc] = slot
		c.eviction.Insert(slot)
		c.logger.Debug("added cache item", "track", loc.Track, "sector", loc.Sector)
		return nil
	}

	slot, ok := c.eviction.Victim()
	if !ok || slot < 0 || slot >= len(c.lines) {
		return fmt.Errorf("no eviction victim among %d lines", len(c.lines))
	}
	victim := c.lines[slot]
	c.logger.Debug("ejecting cache item", "track", victim.loc.Track, "sector", victim.loc.Sector)

	delete(c.lookup, victim.loc)
	victim.loc = loc
	fill(victim.data, buf)
	c.lookup[loc] = slot
	c.eviction.Insert(slot)
	c.logger.Debug("added cache item", "track", loc.Track, "sector", loc.Sector)
	return nil
}

/*
Get returns the resident contents of loc. The returned slice is owned by
the cache and stays valid until the line is overwritten, evicted or the
cache is closed; callers copy what they keep.

An uninitialized cache reports every location as absent without counting.
*/
func (c *SectorCache) Get(loc proto.Location) ([]byte, bool) {
	if !c.initialized {
		return nil, false
	}
	c.stats.Gets++

	slot, ok := c.lookup[loc]
	if !ok {
		c.stats.Misses++
		c.logger.Debug("getting cache item (not found)", "track", loc.Track, "sector", loc.Sector)
		return nil, false
	}

	c.eviction.Access(slot)
	c.stats.Hits++
	c.logger.Debug("getting cache item (found)", "track", loc.Track, "sector", loc.Sector)
	return c.lines[slot].data, true
}

// Contains reports whether loc is resident without touching statistics or
// the eviction state.
func (c *SectorCache) Contains(loc proto.Location) bool {
	_, ok := c.lookup[loc]
	return ok
}

// Len is the number of resident lines.
func (c *SectorCache) Len() int {
	return len(c.lines)
}

// Capacity is the configured number of lines, 0 when uninitialized.
func (c *SectorCache) Capacity() int {
	if !c.initialized {
		return 0
	}
	return c.capacity
}

// Initialized reports whether Init succeeded and Close has not been called.
func (c *SectorCache) Initialized() bool {
	return c.initialized
}

// Stats returns a snapshot of the counters.
func (c *SectorCache) Stats() Stats {
	return c.stats
}

// Footprint is the memory held by resident sector buffers.
func (c *SectorCache) Footprint() datasize.ByteSize {
	return datasize.ByteSize(len(c.lines) * proto.SectorSize)
}

// Metrics renders a human readable report of the counters, the hit ratio
// and the resident footprint.
func (c *SectorCache) Metrics() string {
	return fmt.Sprintf("** Sector cache metrics **\n%s\nCache resident   [%d/%d lines, %s]",
		c.stats, len(c.lines), c.Capacity(), c.Footprint().HumanReadable())
}

// LogMetrics writes the metrics to logger at Info level.
func (c *SectorCache) LogMetrics(logger *slog.Logger) {
	if logger == nil {
		logger = c.logger
	}
	logger.Info("cache metrics",
		"inserts", c.stats.Inserts,
		"gets", c.stats.Gets,
		"hits", c.stats.Hits,
		"misses", c.stats.Misses,
		"hit_ratio", fmt.Sprintf("%.2f%%", c.stats.HitRatio()),
		"resident", len(c.lines),
		"footprint", c.Footprint().HumanReadable(),
	)
}

// fill copies src into a sector buffer and zeroes the remainder.
func fill(dst []byte, src []byte) {
	n := copy(dst, src)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}
