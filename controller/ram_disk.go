package controller

import (
	"github.com/tobiasfamos/fs3/proto"
)

/*
RAMDisk is a memory-backed Disk. Sectors are allocated on first write.
*/
type RAMDisk struct {
	geometry proto.Geometry
	sectors  map[proto.Location]*[proto.SectorSize]byte
}

func NewRAMDisk(geometry proto.Geometry) *RAMDisk {
	return &RAMDisk{
		geometry: geometry,
		sectors:  make(map[proto.Location]*[proto.SectorSize]byte),
	}
}

func (r *RAMDisk) Geometry() proto.Geometry {
	return r.geometry
}

func (r *RAMDisk) ReadSector(loc proto.Location, buf []byte) error {
	if !r.geometry.Contains(loc) {
		return ErrOutOfRange
	}

	if sector, ok := r.sectors[loc]; ok {
		copy(buf, sector[:])
		return nil
	}

	n := len(buf)
	if n > proto.SectorSize {
		n = proto.SectorSize
	}
	for i := 0; i < n; i++ {
		buf[i] = 0
	}
	return nil
}

func (r *RAMDisk) WriteSector(loc proto.Location, buf []byte) error {
	if !r.geometry.Contains(loc) {
		return ErrOutOfRange
	}

	sector, ok := r.sectors[loc]
	if !ok {
		sector = new([proto.SectorSize]byte)
		r.sectors[loc] = sector
	}
	copy(sector[:], buf)

	return nil
}

// Occupied is the number of sectors written at least once.
func (r *RAMDisk) Occupied() int {
	return len(r.sectors)
}

func (r *RAMDisk) Close() error {
	r.sectors = make(map[proto.Location]*[proto.SectorSize]byte)
	return nil
}
