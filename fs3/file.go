package fs3

import (
	"github.com/tobiasfamos/fs3/proto"
)

// Handle identifies a file for the lifetime of a Driver. Handles are
// assigned once, in creation order, and never reused.
type Handle int16

/*
File is one entry of the flat file table.

The content lives at the controller; a File only records where. sectors
holds the locations in allocation order, so byte offset o of the file is
stored in sectors[o/proto.SectorSize]. pos never exceeds length, and length
never exceeds len(sectors)*proto.SectorSize.
*/
type File struct {
	name    string
	handle  Handle
	open    bool
	sectors []proto.Location
	pos     uint32
	length  uint32
}

// FileInfo describes a File.
type FileInfo struct {
	Name     string
	Handle   Handle
	Open     bool
	Position uint32
	Length   uint32
	Sectors  []proto.Location
}

func (f *File) info() FileInfo {
	sectors := make([]proto.Location, len(f.sectors))
	copy(sectors, f.sectors)

	return FileInfo{
		Name:     f.name,
		Handle:   f.handle,
		Open:     f.open,
		Position: f.pos,
		Length:   f.length,
		Sectors:  sectors,
	}
}

// populated reports whether sector idx holds bytes below the file length.
func (f *File) populated(idx int) bool {
	return uint64(idx)*proto.SectorSize < uint64(f.length)
}
