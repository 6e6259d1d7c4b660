package fs3

import (
	"math"

	"github.com/tobiasfamos/fs3/proto"
	"github.com/tobiasfamos/fs3/util"
)

/*
Read reads up to len(p) bytes from the current position of the file and
advances the position by the number of bytes read. At the end of the file
Read returns 0 and no error.

A failure of any sector read fails the whole call: Read returns 0, p may
hold partial data, and the position does not move.
*/
func (d *Driver) Read(fd Handle, p []byte) (int, error) {
	f, err := d.lookup(fd)
	if err != nil {
		return 0, err
	}

	n := util.Min(uint64(len(p)), uint64(f.length-f.pos))
	if n == 0 {
		return 0, nil
	}

	off := uint64(f.pos) % proto.SectorSize
	first, last := util.Span(uint64(f.pos), n, proto.SectorSize)
	scratch := make([]byte, (last-first+1)*proto.SectorSize)

	for idx := first; idx <= last; idx++ {
		data, err := d.readSector(f.sectors[idx])
		if err != nil {
			d.logger.Warn("failed file read", "fd", fd, "pos", f.pos, "err", err)
			return 0, err
		}
		copy(scratch[(idx-first)*proto.SectorSize:], data)
	}

	copy(p, scratch[off:off+n])
	f.pos += uint32(n)

	d.logger.Debug("read bytes", "fd", fd, "bytes", n, "pos", f.pos, "length", f.length)
	return int(n), nil
}

/*
Write writes p at the current position of the file, overwriting what is
there and growing the file past its end. New sectors are allocated as the
write crosses the last one.

Sectors are written one at a time and nothing is rolled back: on failure
the bytes of every sector stored before it count as written, and the
position and length reflect them.
*/
func (d *Driver) Write(fd Handle, p []byte) (int, error) {
	f, err := d.lookup(fd)
	if err != nil {
		return 0, err
	}
	if uint64(f.pos)+uint64(len(p)) > math.MaxUint32 {
		return 0, ErrFileTooLarge
	}

	written := 0
	for written < len(p) {
		idx := int(f.pos / proto.SectorSize)
		off := int(f.pos % proto.SectorSize)
		chunk := util.Min(proto.SectorSize-off, len(p)-written)

		if idx == len(f.sectors) {
			loc, err := d.alloc.Next()
			if err != nil {
				d.logger.Warn("failed to allocate track and sector", "fd", fd, "err", err)
				return written, err
			}
			f.sectors = append(f.sectors, loc)
			d.logger.Debug("allocated sector", "track", loc.Track, "sector", loc.Sector, "fd", fd, "index", idx)
		}
		loc := f.sectors[idx]

		buf := make([]byte, proto.SectorSize)
		if chunk < proto.SectorSize && f.populated(idx) {
			data, err := d.readSector(loc)
			if err != nil {
				d.logger.Warn("failed sector pre-read", "fd", fd, "track", loc.Track, "sector", loc.Sector, "err", err)
				return written, err
			}
			copy(buf, data)
		}
		copy(buf[off:], p[written:written+chunk])

		if err := d.writeSector(loc, buf); err != nil {
			d.logger.Warn("failed file write", "fd", fd, "written", written, "err", err)
			return written, err
		}

		written += chunk
		f.pos += uint32(chunk)
		if f.pos > f.length {
			f.length = f.pos
		}
	}

	d.logger.Debug("wrote bytes", "fd", fd, "bytes", written, "pos", f.pos, "length", f.length)
	return written, nil
}

// readSector returns the contents of loc, from the cache when resident.
// The result may be owned by the cache; callers copy it.
func (d *Driver) readSector(loc proto.Location) ([]byte, error) {
	if d.cache != nil {
		if data, ok := d.cache.Get(loc); ok {
			return data, nil
		}
	}

	if err := d.seekTo(loc.Track); err != nil {
		return nil, err
	}

	buf := make([]byte, proto.SectorSize)
	if _, err := d.call(proto.ReadSector(loc.Sector), buf); err != nil {
		d.logger.Warn("failed sector read", "track", loc.Track, "sector", loc.Sector, "err", err)
		return nil, err
	}

	d.cachePut(loc, buf)
	return buf, nil
}

// writeSector stores buf at loc and refreshes the cached copy.
func (d *Driver) writeSector(loc proto.Location, buf []byte) error {
	if err := d.seekTo(loc.Track); err != nil {
		return err
	}

	if _, err := d.call(proto.WriteSector(loc.Sector), buf); err != nil {
		d.logger.Warn("failed sector write", "track", loc.Track, "sector", loc.Sector, "err", err)
		return err
	}

	d.cachePut(loc, buf)
	return nil
}

func (d *Driver) cachePut(loc proto.Location, buf []byte) {
	if d.cache == nil || !d.cache.Initialized() {
		return
	}
	if err := d.cache.Put(loc, buf); err != nil {
		d.logger.Warn("failed to cache sector", "track", loc.Track, "sector", loc.Sector, "err", err)
	}
}
