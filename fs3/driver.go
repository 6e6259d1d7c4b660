// Package fs3 implements a file driver over a remote track/sector
// controller. Files live in a flat namespace; their bytes are stored in
// whole sectors at the controller and fronted by a sector cache.
package fs3

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/tobiasfamos/fs3/cache"
	"github.com/tobiasfamos/fs3/logging"
	"github.com/tobiasfamos/fs3/proto"
	"github.com/tobiasfamos/fs3/transport"
)

/*
Driver exposes open/close/read/write/seek over a remote controller.

Every operation issues at most one command at a time and blocks until the
transport answers. A Driver is not safe for concurrent use.
*/
type Driver struct {
	transport transport.Transport
	cache     *cache.SectorCache
	config    Config

	// files is indexed by Handle.
	files        []*File
	alloc        *Allocator
	mounted      bool
	currentTrack uint32

	logger *slog.Logger
}

/*
New creates an unmounted driver talking through t. c may be nil, in which
case every sector access goes to the controller.

Returns an error if cfg is out of range.
*/
func New(t transport.Transport, c *cache.SectorCache, cfg Config) (*Driver, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	return &Driver{
		transport: t,
		cache:     c,
		config:    cfg,
		files:     make([]*File, 0, cfg.MaxFiles),
		alloc:     NewAllocator(cfg.Geometry),
		logger:    logging.For(cfg.Logger, logging.ComponentDriver),
	}, nil
}

// Mount connects to the controller and resets its track to 0.
//
// If the track reset fails the disk stays mounted and the error is returned.
func (d *Driver) Mount() error {
	if d.mounted {
		d.logger.Warn("disk already mounted")
		return ErrAlreadyMounted
	}

	if _, err := d.call(proto.Mount(), nil); err != nil {
		d.logger.Warn("mounting failed", "err", err)
		return err
	}

	d.mounted = true
	d.currentTrack = 0
	d.logger.Info("mounted")

	if err := d.trackSeek(0); err != nil {
		return fmt.Errorf("resetting track after mount: %w", err)
	}

	return nil
}

// Unmount disconnects from the controller and closes every open file.
func (d *Driver) Unmount() error {
	if !d.mounted {
		d.logger.Warn("disk already unmounted")
		return ErrNotMounted
	}

	if _, err := d.call(proto.Unmount(), nil); err != nil {
		d.logger.Warn("unmounting failed", "err", err)
		return err
	}

	d.detach()
	d.logger.Info("unmounted")

	return nil
}

// detach forgets the mount and closes every file.
func (d *Driver) detach() {
	d.mounted = false
	d.currentTrack = 0
	for _, f := range d.files {
		f.open = false
		f.pos = 0
	}
}

// Mounted reports whether the disk is mounted.
func (d *Driver) Mounted() bool {
	return d.mounted
}

/*
Open opens the file called name and returns its handle.

An already open file keeps its handle and position. A closed file is
reopened at position 0 with its content intact. An unknown name creates a
new, empty file with one sector allocated.
*/
func (d *Driver) Open(name string) (Handle, error) {
	if !d.mounted {
		return -1, ErrNotMounted
	}
	if name == "" || len(name) > d.config.MaxNameLength {
		return -1, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	for _, f := range d.files {
		if f.name != name {
			continue
		}
		if f.open {
			d.logger.Info("file already open", "name", name, "fd", f.handle)
			return f.handle, nil
		}

		d.logger.Info("opening existing file", "name", name, "fd", f.handle)
		f.open = true
		f.pos = 0
		return f.handle, nil
	}

	if len(d.files) >= d.config.MaxFiles {
		d.logger.Warn("file table full", "name", name, "files", len(d.files))
		return -1, ErrTooManyFiles
	}

	loc, err := d.alloc.Next()
	if err != nil {
		d.logger.Warn("failed to allocate track and sector", "name", name, "err", err)
		return -1, err
	}

	f := &File{
		name:    name,
		handle:  Handle(len(d.files)),
		open:    true,
		sectors: []proto.Location{loc},
	}
	d.files = append(d.files, f)

	d.logger.Info("created file", "name", name, "fd", f.handle)
	d.logger.Debug("allocated sector", "track", loc.Track, "sector", loc.Sector, "fd", f.handle, "index", 0)

	return f.handle, nil
}

// Close closes the file, resetting its position. Closing a closed or
// unknown handle fails without side effects.
func (d *Driver) Close(fd Handle) error {
	f, err := d.lookup(fd)
	if err != nil {
		return err
	}

	f.open = false
	f.pos = 0
	return nil
}

/*
Seek moves the position of the file to offset, which may be at most the
file length.
*/
func (d *Driver) Seek(fd Handle, offset uint32) error {
	f, err := d.lookup(fd)
	if err != nil {
		return err
	}

	if offset > f.length {
		d.logger.Info("failed file seek", "fd", fd, "offset", offset, "length", f.length)
		return ErrInvalidSeek
	}

	f.pos = offset
	d.logger.Debug("file seek", "fd", fd, "pos", f.pos, "length", f.length)
	return nil
}

// Stat describes the file behind fd, open or not.
func (d *Driver) Stat(fd Handle) (FileInfo, error) {
	if fd < 0 || int(fd) >= len(d.files) {
		return FileInfo{}, ErrInvalidHandle
	}
	return d.files[fd].info(), nil
}

// Files describes every file ever created, ordered by name.
func (d *Driver) Files() []FileInfo {
	infos := make([]FileInfo, 0, len(d.files))
	for _, f := range d.files {
		infos = append(infos, f.info())
	}
	slices.SortFunc(infos, func(a, b FileInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return infos
}

// Cache returns the sector cache, which may be nil.
func (d *Driver) Cache() *cache.SectorCache {
	return d.cache
}

// Allocator returns the sector allocator.
func (d *Driver) Allocator() *Allocator {
	return d.alloc
}

// CurrentTrack is the track the controller was last moved to.
func (d *Driver) CurrentTrack() uint32 {
	return d.currentTrack
}

// lookup resolves fd to an open file.
func (d *Driver) lookup(fd Handle) (*File, error) {
	if fd < 0 || int(fd) >= len(d.files) {
		d.logger.Info("invalid file handle", "fd", fd)
		return nil, ErrInvalidHandle
	}

	f := d.files[fd]
	if !f.open {
		d.logger.Info("file not open", "fd", fd)
		return nil, ErrInvalidHandle
	}

	return f, nil
}

// call sends one command and checks the status of the response.
func (d *Driver) call(cmd proto.Command, buf []byte) (proto.Command, error) {
	word, err := d.transport.Syscall(cmd.Word(), buf)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrTransport, d.addressed(cmd), err)
		// The connection is gone and the controller drops the mount with it.
		if d.mounted {
			d.logger.Warn("connection lost, disk unmounted", "err", err)
			d.detach()
		}
		return proto.Command{}, err
	}

	resp := proto.Decode(word)
	if resp.Failed() {
		return resp, fmt.Errorf("%w: %s", ErrProtocol, d.addressed(cmd))
	}

	return resp, nil
}

// addressed describes cmd by the coordinates it acts on.
func (d *Driver) addressed(cmd proto.Command) string {
	switch cmd.Op {
	case proto.OpSeekTrack:
		return fmt.Sprintf("%s trk %d", cmd.Op, cmd.Track)
	case proto.OpReadSector, proto.OpWriteSector:
		loc := proto.Location{Track: d.currentTrack, Sector: cmd.Sector}
		return fmt.Sprintf("%s %s", cmd.Op, loc)
	default:
		return cmd.Op.String()
	}
}

// trackSeek moves the controller to track.
func (d *Driver) trackSeek(track uint32) error {
	if _, err := d.call(proto.SeekTrack(track), nil); err != nil {
		d.logger.Warn("failed track seek", "track", track, "err", err)
		return err
	}

	d.currentTrack = track
	d.logger.Debug("track seeked", "track", track)
	return nil
}

// seekTo moves the controller to track unless it is already there.
func (d *Driver) seekTo(track uint32) error {
	if track == d.currentTrack {
		return nil
	}
	return d.trackSeek(track)
}
