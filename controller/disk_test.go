package controller

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobiasfamos/fs3/proto"
)

var testGeometry = proto.Geometry{Tracks: 4, SectorsPerTrack: 8}

func emptyDisks(t *testing.T) []Disk {
	t.Helper()
	image, err := OpenImageDisk(filepath.Join(t.TempDir(), "disk.img"), testGeometry)
	require.NoError(t, err)
	t.Cleanup(func() { _ = image.Close() })

	return []Disk{
		NewRAMDisk(testGeometry),
		image,
	}
}

func TestDisk_ReadUnwrittenSector(t *testing.T) {
	for _, disk := range emptyDisks(t) {
		buf := bytes.Repeat([]byte{0xff}, proto.SectorSize)
		require.NoError(t, disk.ReadSector(proto.Location{Track: 3, Sector: 7}, buf))
		assert.Equal(t, make([]byte, proto.SectorSize), buf, "%T", disk)
	}
}

func TestDisk_WriteReadSector(t *testing.T) {
	for _, disk := range emptyDisks(t) {
		for track := uint32(0); track < testGeometry.Tracks; track++ {
			for sector := uint16(0); sector < testGeometry.SectorsPerTrack; sector++ {
				loc := proto.Location{Track: track, Sector: sector}
				data := bytes.Repeat([]byte{byte(track*16) + byte(sector)}, proto.SectorSize)
				require.NoError(t, disk.WriteSector(loc, data))
			}
		}

		for track := uint32(0); track < testGeometry.Tracks; track++ {
			for sector := uint16(0); sector < testGeometry.SectorsPerTrack; sector++ {
				loc := proto.Location{Track: track, Sector: sector}
				buf := make([]byte, proto.SectorSize)
				require.NoError(t, disk.ReadSector(loc, buf))
				if buf[0] != byte(track*16)+byte(sector) || buf[proto.SectorSize-1] != buf[0] {
					t.Errorf("%T: Actual data at %s = %x, Expected == %x", disk, loc, buf[0], byte(track*16)+byte(sector))
				}
			}
		}
	}
}

func TestDisk_OutOfRange(t *testing.T) {
	buf := make([]byte, proto.SectorSize)
	for _, disk := range emptyDisks(t) {
		for _, loc := range []proto.Location{
			{Track: testGeometry.Tracks, Sector: 0},
			{Track: 0, Sector: testGeometry.SectorsPerTrack},
		} {
			assert.ErrorIs(t, disk.ReadSector(loc, buf), ErrOutOfRange)
			assert.ErrorIs(t, disk.WriteSector(loc, buf), ErrOutOfRange)
		}
	}
}

func TestRAMDisk_Occupied(t *testing.T) {
	disk := NewRAMDisk(testGeometry)
	buf := make([]byte, proto.SectorSize)

	require.NoError(t, disk.WriteSector(proto.Location{Track: 1, Sector: 1}, buf))
	require.NoError(t, disk.WriteSector(proto.Location{Track: 1, Sector: 1}, buf))
	require.NoError(t, disk.WriteSector(proto.Location{Track: 2, Sector: 1}, buf))
	assert.Equal(t, 2, disk.Occupied())

	require.NoError(t, disk.Close())
	assert.Equal(t, 0, disk.Occupied())
}

func TestImageDisk_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	loc := proto.Location{Track: 2, Sector: 3}
	data := bytes.Repeat([]byte("fs3!"), proto.SectorSize/4)

	disk, err := OpenImageDisk(path, testGeometry)
	require.NoError(t, err)
	require.NoError(t, disk.WriteSector(loc, data))
	require.NoError(t, disk.Close())

	// zero geometry adopts the recorded one
	disk, err = OpenImageDisk(path, proto.Geometry{})
	require.NoError(t, err)
	assert.Equal(t, testGeometry, disk.Geometry())

	buf := make([]byte, proto.SectorSize)
	require.NoError(t, disk.ReadSector(loc, buf))
	assert.Equal(t, data, buf)
	require.NoError(t, disk.Close())

	// a different geometry is refused
	_, err = OpenImageDisk(path, proto.DefaultGeometry)
	assert.ErrorIs(t, err, ErrBadImage)
}

func TestImageDisk_DefaultGeometry(t *testing.T) {
	disk, err := OpenImageDisk(filepath.Join(t.TempDir(), "disk.img"), proto.Geometry{})
	require.NoError(t, err)
	defer disk.Close()

	assert.Equal(t, proto.DefaultGeometry, disk.Geometry())
}

func TestImageDisk_CorruptHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	disk, err := OpenImageDisk(path, testGeometry)
	require.NoError(t, err)
	require.NoError(t, disk.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[9] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0660))

	_, err = OpenImageDisk(path, proto.Geometry{})
	assert.ErrorIs(t, err, ErrBadImage)
}

func TestImageHeaderEncoding(t *testing.T) {
	header := encodeHeader(proto.Geometry{Tracks: 0x0102, SectorsPerTrack: 0x0304})

	require.Len(t, header, imageHeaderSize)
	assert.Equal(t, []byte("FS3IMG\x00\x01"), header[0:8])
	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0x02, 0x03, 0x04, 0x00, 0x00}, header[8:16])

	g, err := decodeHeader(header)
	require.NoError(t, err)
	assert.Equal(t, proto.Geometry{Tracks: 0x0102, SectorsPerTrack: 0x0304}, g)

	_, err = decodeHeader([]byte("short"))
	assert.ErrorIs(t, err, ErrBadImage)

	_, err = decodeHeader(encodeHeader(proto.Geometry{}))
	assert.ErrorIs(t, err, ErrBadImage)
}

func FuzzDisk_WriteSector(f *testing.F) {
	f.Add([]byte{42, 69})
	f.Fuzz(func(t *testing.T, in []byte) {
		disk := NewRAMDisk(testGeometry)
		loc := proto.Location{Track: 1, Sector: 2}

		data := make([]byte, proto.SectorSize)
		copy(data, in)
		if err := disk.WriteSector(loc, data); err != nil {
			t.Errorf("Actual error = %s, Expected == nil", err)
		}

		buf := make([]byte, proto.SectorSize)
		_ = disk.ReadSector(loc, buf)
		if !bytes.Equal(buf, data) {
			t.Errorf("Actual data = %x, Expected == %x", buf, data)
		}
	})
}
