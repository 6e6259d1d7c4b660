package controller

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobiasfamos/fs3/proto"
)

func newTestController() *Controller {
	return New(NewRAMDisk(testGeometry), Config{})
}

func exec(c *Controller, cmd proto.Command, payload []byte) proto.Command {
	return proto.Decode(c.Execute(cmd.Word(), payload))
}

func TestController_MountUnmount(t *testing.T) {
	c := newTestController()

	assert.True(t, exec(c, proto.Unmount(), nil).Failed(), "unmount while unmounted")
	assert.False(t, exec(c, proto.Mount(), nil).Failed())
	assert.True(t, c.Mounted())
	assert.True(t, exec(c, proto.Mount(), nil).Failed(), "double mount")
	assert.False(t, exec(c, proto.Unmount(), nil).Failed())
	assert.False(t, c.Mounted())
}

func TestController_RefusesWhileUnmounted(t *testing.T) {
	c := newTestController()
	buf := make([]byte, proto.SectorSize)

	assert.True(t, exec(c, proto.SeekTrack(1), nil).Failed())
	assert.True(t, exec(c, proto.ReadSector(0), buf).Failed())
	assert.True(t, exec(c, proto.WriteSector(0), buf).Failed())
}

func TestController_SeekReadWrite(t *testing.T) {
	c := newTestController()
	require.False(t, exec(c, proto.Mount(), nil).Failed())

	resp := exec(c, proto.SeekTrack(2), nil)
	require.False(t, resp.Failed())
	assert.Equal(t, uint32(2), resp.Track)
	assert.Equal(t, uint32(2), c.Track())

	data := bytes.Repeat([]byte{0x5a}, proto.SectorSize)
	require.False(t, exec(c, proto.WriteSector(5), data).Failed())

	// the sector lives on track 2
	buf := make([]byte, proto.SectorSize)
	require.NoError(t, c.Disk().ReadSector(proto.Location{Track: 2, Sector: 5}, buf))
	assert.Equal(t, data, buf)

	// reading it back through a command
	buf = make([]byte, proto.SectorSize)
	resp = exec(c, proto.ReadSector(5), buf)
	require.False(t, resp.Failed())
	assert.Equal(t, uint16(5), resp.Sector)
	assert.Equal(t, data, buf)

	// same sector index, other track
	require.False(t, exec(c, proto.SeekTrack(0), nil).Failed())
	resp = exec(c, proto.ReadSector(5), buf)
	require.False(t, resp.Failed())
	assert.Equal(t, make([]byte, proto.SectorSize), buf)
}

func TestController_OutOfRange(t *testing.T) {
	c := newTestController()
	require.False(t, exec(c, proto.Mount(), nil).Failed())

	assert.True(t, exec(c, proto.SeekTrack(testGeometry.Tracks), nil).Failed())
	assert.Equal(t, uint32(0), c.Track())

	buf := bytes.Repeat([]byte{1}, proto.SectorSize)
	assert.True(t, exec(c, proto.ReadSector(testGeometry.SectorsPerTrack), buf).Failed())
	assert.Equal(t, make([]byte, proto.SectorSize), buf, "failed reads carry a zeroed payload")
	assert.True(t, exec(c, proto.WriteSector(testGeometry.SectorsPerTrack), buf).Failed())
}

func TestController_UnknownOp(t *testing.T) {
	c := newTestController()
	require.False(t, exec(c, proto.Mount(), nil).Failed())
	assert.True(t, exec(c, proto.Command{Op: 9}, nil).Failed())
}

func TestController_Fault(t *testing.T) {
	c := newTestController()
	c.SetFault(func(cmd proto.Command) bool {
		return cmd.Op == proto.OpWriteSector
	})
	require.False(t, exec(c, proto.Mount(), nil).Failed())

	buf := make([]byte, proto.SectorSize)
	assert.True(t, exec(c, proto.WriteSector(0), buf).Failed())
	assert.False(t, exec(c, proto.ReadSector(0), buf).Failed())

	c.SetFault(nil)
	assert.False(t, exec(c, proto.WriteSector(0), buf).Failed())
}

func TestController_Counts(t *testing.T) {
	c := newTestController()
	exec(c, proto.Mount(), nil)
	exec(c, proto.SeekTrack(1), nil)
	exec(c, proto.SeekTrack(2), nil)

	assert.Equal(t, 1, c.Count(proto.OpMount))
	assert.Equal(t, 2, c.Count(proto.OpSeekTrack))
	assert.Equal(t, 0, c.Count(proto.OpReadSector))

	c.ResetCounts()
	assert.Equal(t, 0, c.Count(proto.OpSeekTrack))
}

func TestLoopback(t *testing.T) {
	c := newTestController()
	l := NewLoopback(c)

	resp, err := l.Syscall(proto.Mount().Word(), nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), proto.RetOf(resp))

	data := bytes.Repeat([]byte{7}, proto.SectorSize)
	resp, err = l.Syscall(proto.WriteSector(1).Word(), data)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), proto.RetOf(resp))

	buf := make([]byte, proto.SectorSize)
	resp, err = l.Syscall(proto.ReadSector(1).Word(), buf)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), proto.RetOf(resp))
	assert.Equal(t, data, buf)

	_, err = l.Syscall(proto.WriteSector(1).Word(), []byte{1})
	assert.Error(t, err)
	_, err = l.Syscall(proto.ReadSector(1).Word(), nil)
	assert.Error(t, err)
}

func TestController_Release(t *testing.T) {
	c := newTestController()

	assert.False(t, c.Release(), "nothing to release")
	require.False(t, exec(c, proto.Mount(), nil).Failed())
	assert.True(t, c.Release())
	assert.False(t, c.Mounted())
	assert.False(t, exec(c, proto.Mount(), nil).Failed(), "mount again after release")
}
