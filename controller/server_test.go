package controller

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobiasfamos/fs3/proto"
)

func startServer(t *testing.T, c *Controller) *Server {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(c, nil)
	done := make(chan error, 1)
	go func() { done <- s.Serve(l) }()
	t.Cleanup(func() {
		_ = s.Close()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, ErrServerClosed)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	require.Eventually(t, func() bool { return s.Addr() != nil }, time.Second, time.Millisecond)
	return s
}

func roundTrip(t *testing.T, conn net.Conn, cmd proto.Command, payload []byte) proto.Command {
	t.Helper()
	require.NoError(t, proto.WriteWord(conn, cmd.Word()))
	if cmd.Op.HasRequestPayload() {
		require.NoError(t, proto.WriteSectorPayload(conn, payload))
	}
	resp, err := proto.ReadWord(conn)
	require.NoError(t, err)
	if cmd.Op.HasResponsePayload() {
		require.NoError(t, proto.ReadSectorPayload(conn, payload))
	}
	return proto.Decode(resp)
}

func TestServer_Exchange(t *testing.T) {
	c := newTestController()
	s := startServer(t, c)

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	assert.False(t, roundTrip(t, conn, proto.Mount(), nil).Failed())
	assert.False(t, roundTrip(t, conn, proto.SeekTrack(3), nil).Failed())

	data := bytes.Repeat([]byte("ab"), proto.SectorSize/2)
	assert.False(t, roundTrip(t, conn, proto.WriteSector(6), data).Failed())

	buf := make([]byte, proto.SectorSize)
	resp := roundTrip(t, conn, proto.ReadSector(6), buf)
	assert.False(t, resp.Failed())
	assert.Equal(t, uint32(3), resp.Track)
	assert.Equal(t, data, buf)

	// failed reads still carry a payload, keeping the stream in step
	resp = roundTrip(t, conn, proto.ReadSector(testGeometry.SectorsPerTrack), buf)
	assert.True(t, resp.Failed())
	assert.False(t, roundTrip(t, conn, proto.Unmount(), nil).Failed())
	assert.False(t, c.Mounted())
}

func TestServer_CloseDropsConnections(t *testing.T) {
	c := newTestController()
	s := startServer(t, c)

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	assert.False(t, roundTrip(t, conn, proto.Mount(), nil).Failed())

	require.NoError(t, s.Close())

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err = proto.ReadWord(conn)
	assert.Error(t, err)
}

func TestServer_DroppedConnectionReleasesMount(t *testing.T) {
	c := newTestController()
	s := startServer(t, c)

	first, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	require.False(t, roundTrip(t, first, proto.Mount(), nil).Failed())
	require.True(t, c.Mounted())

	// gone without UNMOUNT
	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return !c.Mounted() }, 5*time.Second, time.Millisecond)

	second, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer second.Close()
	assert.False(t, roundTrip(t, second, proto.Mount(), nil).Failed())
	assert.True(t, c.Mounted())
}

func TestServer_OtherConnectionKeepsMount(t *testing.T) {
	c := newTestController()
	s := startServer(t, c)

	owner, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer owner.Close()
	require.False(t, roundTrip(t, owner, proto.Mount(), nil).Failed())

	// a refused MOUNT does not take ownership
	other, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	assert.True(t, roundTrip(t, other, proto.Mount(), nil).Failed())
	require.NoError(t, other.Close())

	// give the server time to see the close
	time.Sleep(50 * time.Millisecond)
	assert.True(t, c.Mounted())
	assert.False(t, roundTrip(t, owner, proto.SeekTrack(1), nil).Failed())
}
