package cache

import (
	"fmt"
	"strings"
)

// Eviction elects the slot that is overwritten when the cache is full.
type Eviction interface {
	// Victim elects a slot to evict. ok is false if no slot is known.
	Victim() (slot int, ok bool)
	// Access records a hit on, or an in-place update of, slot.
	Access(slot int)
	// Insert records that slot received a new line.
	Insert(slot int)
	// Reset forgets every slot.
	Reset()
}

// Policy selects an Eviction implementation.
type Policy int

const (
	// PolicyLastAccessed evicts the single slot touched last by a hit or an
	// in-place update. Inserting a new line does not move the mark.
	PolicyLastAccessed Policy = iota
	// PolicyLRU evicts the least recently used slot.
	PolicyLRU
)

func (p Policy) String() string {
	switch p {
	case PolicyLRU:
		return "lru"
	default:
		return "last-accessed"
	}
}

// ParsePolicy maps "last-accessed" or "lru" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "last-accessed":
		return PolicyLastAccessed, nil
	case "lru":
		return PolicyLRU, nil
	default:
		return PolicyLastAccessed, fmt.Errorf("unknown eviction policy %q", s)
	}
}

func (p Policy) newEviction(capacity int) Eviction {
	switch p {
	case PolicyLRU:
		return NewLRU(capacity)
	default:
		return &LastAccessed{}
	}
}

/*
LastAccessed tracks one hot slot. The slot starts at 0 and only moves when a
resident line is hit or updated, so with a full cache the line that was
touched last is the one replaced.
*/
type LastAccessed struct {
	slot int
}

func (l *LastAccessed) Victim() (int, bool) {
	return l.slot, true
}

func (l *LastAccessed) Access(slot int) {
	l.slot = slot
}

func (l *LastAccessed) Insert(int) {}

func (l *LastAccessed) Reset() {
	l.slot = 0
}
