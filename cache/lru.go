package cache

/*
LRU is a Least Recently Used eviction policy. Recency is a logical clock
rather than wall time, so two accesses in the same nanosecond still order.
*/
type LRU struct {
	items map[int]uint64
	clock uint64
}

func NewLRU(size int) *LRU {
	return &LRU{
		items: make(map[int]uint64, size),
	}
}

func (c *LRU) Victim() (int, bool) {
	if len(c.items) == 0 {
		return 0, false
	}

	oldestTick := c.clock + 1
	oldestSlot := 0

	for slot, tick := range c.items {
		if tick < oldestTick {
			oldestTick = tick
			oldestSlot = slot
		}
	}

	return oldestSlot, true
}

func (c *LRU) Access(slot int) {
	c.clock++
	c.items[slot] = c.clock
}

func (c *LRU) Insert(slot int) {
	c.Access(slot)
}

func (c *LRU) Reset() {
	c.items = make(map[int]uint64, len(c.items))
	c.clock = 0
}
