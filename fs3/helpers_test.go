package fs3

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tobiasfamos/fs3/cache"
	"github.com/tobiasfamos/fs3/controller"
	"github.com/tobiasfamos/fs3/proto"
)

var testGeometry = proto.Geometry{Tracks: 4, SectorsPerTrack: 4}

type testRig struct {
	driver     *Driver
	controller *controller.Controller
	cache      *cache.SectorCache
}

// newRig builds an unmounted driver over an in-memory controller. A
// cacheLines of 0 runs the driver without a cache.
func newRig(t *testing.T, cacheLines int, cfg Config) *testRig {
	t.Helper()

	ctrl := controller.New(controller.NewRAMDisk(testGeometry), controller.Config{})

	var c *cache.SectorCache
	if cacheLines > 0 {
		var err error
		c, err = cache.Open(cache.Config{Capacity: cacheLines})
		require.NoError(t, err)
	}

	if cfg.Geometry == (proto.Geometry{}) {
		cfg.Geometry = testGeometry
	}
	d, err := New(controller.NewLoopback(ctrl), c, cfg)
	require.NoError(t, err)

	return &testRig{driver: d, controller: ctrl, cache: c}
}

func newMountedRig(t *testing.T, cacheLines int) *testRig {
	t.Helper()

	r := newRig(t, cacheLines, Config{})
	require.NoError(t, r.driver.Mount())
	return r
}

// pattern returns n bytes that differ between neighbouring sectors.
func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i%251) + byte(i/proto.SectorSize)
	}
	return b
}

// stored reads loc straight from the controller's disk.
func (r *testRig) stored(t *testing.T, loc proto.Location) []byte {
	t.Helper()

	buf := make([]byte, proto.SectorSize)
	require.NoError(t, r.controller.Disk().ReadSector(loc, buf))
	return buf
}
