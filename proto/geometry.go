package proto

import "fmt"

// SectorSize is the size in bytes of one sector. Every sector payload on the
// wire is exactly this long.
const SectorSize = 1024

// SectorsPerTrack is the default number of sectors on one track.
const SectorsPerTrack = 1024

// Tracks is the default number of tracks of a controller.
const Tracks = 1024

// Location addresses one sector on the remote controller.
type Location struct {
	Track  uint32
	Sector uint16
}

func (l Location) String() string {
	return fmt.Sprintf("trk %d sct %d", l.Track, l.Sector)
}

/*
Geometry describes the track/sector coordinate space of a controller.

The zero value is not usable; use DefaultGeometry or fill both fields.
*/
type Geometry struct {
	// Tracks is the number of tracks.
	Tracks uint32
	// SectorsPerTrack is the number of sectors on each track.
	SectorsPerTrack uint16
}

// DefaultGeometry is the coordinate space of a stock FS3 controller.
var DefaultGeometry = Geometry{
	Tracks:          Tracks,
	SectorsPerTrack: SectorsPerTrack,
}

// Contains reports whether l lies inside the geometry.
func (g Geometry) Contains(l Location) bool {
	return l.Track < g.Tracks && l.Sector < g.SectorsPerTrack
}

// Sectors is the total number of sectors in the geometry.
func (g Geometry) Sectors() uint64 {
	return uint64(g.Tracks) * uint64(g.SectorsPerTrack)
}

// Index returns the linear index of l, track-major.
func (g Geometry) Index(l Location) uint64 {
	return uint64(l.Track)*uint64(g.SectorsPerTrack) + uint64(l.Sector)
}

// Valid reports whether both dimensions are non-zero.
func (g Geometry) Valid() bool {
	return g.Tracks > 0 && g.SectorsPerTrack > 0
}
