package controller

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/tobiasfamos/fs3/proto"
)

var ErrBadImage = errors.New("not a valid sector image")

// imageMagic identifies a sector image file.
var imageMagic = []byte("FS3IMG\x00\x01")

// imageHeaderSize is the space reserved in front of the first sector. It
// is one sector so sector offsets stay aligned.
const imageHeaderSize = proto.SectorSize

/*
ImageDisk is a Disk backed by a sparse image file. The file starts with a
header recording the geometry, followed by every sector in track-major
order. Sectors beyond the end of the file read as zeros.
*/
type ImageDisk struct {
	// Path is the path to the image file on disk.
	Path     string
	geometry proto.Geometry
	file     *os.File
}

/*
OpenImageDisk opens the image at path, creating it with geometry if it does
not exist or is empty.

If the image exists, its header must be intact. A valid geometry argument
must then match the recorded one; a zero geometry adopts it.
*/
func OpenImageDisk(path string, geometry proto.Geometry) (*ImageDisk, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0660)
	if err != nil {
		return nil, fmt.Errorf("IO error while trying to open image: %w", err)
	}

	d := &ImageDisk{Path: path, geometry: geometry, file: file}
	if err := d.initialize(); err != nil {
		file.Close()
		return nil, err
	}

	return d, nil
}

func (d *ImageDisk) initialize() error {
	info, err := d.file.Stat()
	if err != nil {
		return fmt.Errorf("IO error while checking image: %w", err)
	}

	if info.Size() == 0 {
		// New image, dump the header.
		if !d.geometry.Valid() {
			d.geometry = proto.DefaultGeometry
		}
		return d.storeHeader()
	}

	recorded, err := d.loadHeader()
	if err != nil {
		return err
	}
	if d.geometry.Valid() && d.geometry != recorded {
		return fmt.Errorf("%w: geometry %+v differs from recorded %+v", ErrBadImage, d.geometry, recorded)
	}
	d.geometry = recorded

	return nil
}

func (d *ImageDisk) Geometry() proto.Geometry {
	return d.geometry
}

func (d *ImageDisk) ReadSector(loc proto.Location, buf []byte) error {
	if !d.geometry.Contains(loc) {
		return ErrOutOfRange
	}
	if len(buf) < proto.SectorSize {
		return io.ErrShortBuffer
	}

	n, err := d.file.ReadAt(buf[:proto.SectorSize], d.offset(loc))
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("IO error while reading %s: %w", loc, err)
	}
	for i := n; i < proto.SectorSize; i++ {
		buf[i] = 0
	}

	return nil
}

func (d *ImageDisk) WriteSector(loc proto.Location, buf []byte) error {
	if !d.geometry.Contains(loc) {
		return ErrOutOfRange
	}
	if len(buf) < proto.SectorSize {
		return io.ErrShortBuffer
	}

	if _, err := d.file.WriteAt(buf[:proto.SectorSize], d.offset(loc)); err != nil {
		return fmt.Errorf("IO error while writing %s: %w", loc, err)
	}

	return nil
}

func (d *ImageDisk) Close() error {
	if err := d.file.Sync(); err != nil {
		d.file.Close()
		return fmt.Errorf("IO error while syncing image: %w", err)
	}
	return d.file.Close()
}

func (d *ImageDisk) offset(loc proto.Location) int64 {
	return imageHeaderSize + int64(d.geometry.Index(loc))*proto.SectorSize
}

// storeHeader writes the header to the start of the image.
func (d *ImageDisk) storeHeader() error {
	if _, err := d.file.WriteAt(encodeHeader(d.geometry), 0); err != nil {
		return fmt.Errorf("IO error while writing image header: %w", err)
	}
	return nil
}

// loadHeader reads and decodes the header of the image.
func (d *ImageDisk) loadHeader() (proto.Geometry, error) {
	data := make([]byte, imageHeaderSize)
	if _, err := d.file.ReadAt(data, 0); err != nil {
		return proto.Geometry{}, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	return decodeHeader(data)
}

// encodeHeader encodes the geometry into a header block.
func encodeHeader(g proto.Geometry) []byte {
	// 8 bytes magic
	// 4 bytes track count
	// 2 bytes sectors per track
	// 2 bytes reserved
	// 4 bytes checksum over the preceding 16 bytes
	data := make([]byte, imageHeaderSize)

	copy(data[0:8], imageMagic)
	binary.BigEndian.PutUint32(data[8:12], g.Tracks)
	binary.BigEndian.PutUint16(data[12:14], g.SectorsPerTrack)

	checksum := crc32.ChecksumIEEE(data[:16])
	binary.BigEndian.PutUint32(data[16:20], checksum)

	return data
}

// decodeHeader decodes a header block.
//
// If the provided data is not a valid header, ErrBadImage is returned.
func decodeHeader(data []byte) (proto.Geometry, error) {
	if len(data) < 20 || !bytes.Equal(data[0:8], imageMagic) {
		return proto.Geometry{}, ErrBadImage
	}

	checksum := binary.BigEndian.Uint32(data[16:20])
	if newChecksum := crc32.ChecksumIEEE(data[:16]); newChecksum != checksum {
		return proto.Geometry{}, fmt.Errorf("%w: checksum %x != %x", ErrBadImage, checksum, newChecksum)
	}

	g := proto.Geometry{
		Tracks:          binary.BigEndian.Uint32(data[8:12]),
		SectorsPerTrack: binary.BigEndian.Uint16(data[12:14]),
	}
	if !g.Valid() {
		return proto.Geometry{}, fmt.Errorf("%w: empty geometry", ErrBadImage)
	}

	return g, nil
}
