package fs3

import (
	"github.com/tobiasfamos/fs3/proto"
)

/*
Allocator hands out sector locations in track-major order. It is a bump
allocator: the cursor only moves forward and nothing is ever reclaimed.
*/
type Allocator struct {
	geometry   proto.Geometry
	nextTrack  uint32
	nextSector uint16
	allocated  uint64
}

func NewAllocator(geometry proto.Geometry) *Allocator {
	return &Allocator{geometry: geometry}
}

/*
Next returns the location under the cursor and advances it, rolling over to
the next track when the current one is used up.

Returns ErrDiskFull once every location of the geometry was handed out; the
cursor does not move in that case.
*/
func (a *Allocator) Next() (proto.Location, error) {
	if a.nextTrack >= a.geometry.Tracks {
		return proto.Location{}, ErrDiskFull
	}

	loc := proto.Location{Track: a.nextTrack, Sector: a.nextSector}

	a.nextSector++
	if a.nextSector >= a.geometry.SectorsPerTrack {
		a.nextSector = 0
		a.nextTrack++
	}
	a.allocated++

	return loc, nil
}

// Cursor is the location the next call to Next will return.
func (a *Allocator) Cursor() proto.Location {
	return proto.Location{Track: a.nextTrack, Sector: a.nextSector}
}

// Allocated is the number of locations handed out so far.
func (a *Allocator) Allocated() uint64 {
	return a.allocated
}

// Free is the number of locations left.
func (a *Allocator) Free() uint64 {
	return a.geometry.Sectors() - a.allocated
}
