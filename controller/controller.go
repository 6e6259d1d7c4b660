// Package controller implements the remote track/sector controller that the
// driver talks to: command execution against a Disk, a TCP server speaking
// the wire protocol, and an in-process transport for tests.
package controller

import (
	"log/slog"
	"sync"

	"github.com/tobiasfamos/fs3/logging"
	"github.com/tobiasfamos/fs3/proto"
)

// Config provides parameters used to build a Controller.
type Config struct {
	Logger *slog.Logger
	// Fault, if set, is consulted before every command. Returning true
	// makes the controller answer with the failure status without
	// executing the command.
	Fault func(cmd proto.Command) bool
}

/*
Controller executes command words against a Disk.

It keeps the remote side of the mount state and the current track: sector
reads and writes address a sector on the track chosen by the last
SEEK-TRACK. Commands other than MOUNT fail while unmounted.

A Controller is safe for concurrent use; commands are executed one at a
time.
*/
type Controller struct {
	mu      sync.Mutex
	disk    Disk
	mounted bool
	track   uint32
	counts  map[proto.Op]int
	fault   func(cmd proto.Command) bool
	logger  *slog.Logger
}

func New(disk Disk, cfg Config) *Controller {
	return &Controller{
		disk:   disk,
		counts: make(map[proto.Op]int),
		fault:  cfg.Fault,
		logger: logging.For(cfg.Logger, logging.ComponentController),
	}
}

/*
Execute runs one command word and returns the response word.

For WRITE-SECTOR, payload holds the sector to store. For READ-SECTOR the
sector is copied into payload; on failure payload is zeroed, since a
response payload is sent regardless of the status.
*/
func (c *Controller) Execute(word uint64, payload []byte) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	cmd := proto.Decode(word)
	c.counts[cmd.Op]++

	ok := c.execute(cmd, payload)
	if !ok && cmd.Op.HasResponsePayload() {
		zero(payload)
	}

	ret := uint8(0)
	if !ok {
		ret = 1
		c.logger.Warn("command failed", "cmd", cmd.String())
	} else {
		c.logger.Debug("command executed", "cmd", cmd.String())
	}

	return proto.Encode(cmd.Op, cmd.Sector, c.track, ret)
}

func (c *Controller) execute(cmd proto.Command, payload []byte) bool {
	if c.fault != nil && c.fault(cmd) {
		return false
	}

	switch cmd.Op {
	case proto.OpMount:
		if c.mounted {
			return false
		}
		c.mounted = true
		c.track = 0
		return true

	case proto.OpUnmount:
		if !c.mounted {
			return false
		}
		c.mounted = false
		return true

	case proto.OpSeekTrack:
		if !c.mounted || cmd.Track >= c.disk.Geometry().Tracks {
			return false
		}
		c.track = cmd.Track
		return true

	case proto.OpReadSector:
		if !c.mounted || len(payload) < proto.SectorSize {
			return false
		}
		loc := proto.Location{Track: c.track, Sector: cmd.Sector}
		return c.disk.ReadSector(loc, payload) == nil

	case proto.OpWriteSector:
		if !c.mounted || len(payload) < proto.SectorSize {
			return false
		}
		loc := proto.Location{Track: c.track, Sector: cmd.Sector}
		return c.disk.WriteSector(loc, payload) == nil

	default:
		return false
	}
}

// Mounted reports whether a MOUNT is in effect.
func (c *Controller) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}

// Release drops a MOUNT left behind by a client that went away without
// sending UNMOUNT. It reports whether a mount was in effect.
func (c *Controller) Release() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return false
	}
	c.mounted = false
	c.logger.Info("mount released")
	return true
}

// Track is the current track.
func (c *Controller) Track() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.track
}

// Count is the number of commands received with opcode op.
func (c *Controller) Count(op proto.Op) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[op]
}

// ResetCounts clears the per-opcode counters.
func (c *Controller) ResetCounts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[proto.Op]int)
}

// SetFault replaces the fault hook.
func (c *Controller) SetFault(fault func(cmd proto.Command) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fault = fault
}

// Disk returns the backing store.
func (c *Controller) Disk() Disk {
	return c.disk
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
