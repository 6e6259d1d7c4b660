package controller

import (
	"errors"

	"github.com/tobiasfamos/fs3/proto"
)

var ErrOutOfRange = errors.New("sector outside of disk geometry")

// Disk is the sector store behind a controller.
type Disk interface {
	// Geometry reports the coordinate space of the disk.
	Geometry() proto.Geometry
	// ReadSector copies the sector at loc into buf. Sectors never written
	// read as zeros.
	ReadSector(loc proto.Location, buf []byte) error
	// WriteSector stores the first proto.SectorSize bytes of buf at loc.
	WriteSector(loc proto.Location, buf []byte) error
	// Close releases the disk.
	Close() error
}
