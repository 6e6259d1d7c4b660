package fs3

import (
	"errors"
	"io"
)

var errWhence = errors.New("invalid whence")

// Stream adapts one open file of a Driver to the io interfaces.
type Stream struct {
	driver *Driver
	fd     Handle
}

var _ io.ReadWriteSeeker = (*Stream)(nil)
var _ io.Closer = (*Stream)(nil)

// OpenStream opens name on d and wraps the resulting handle.
func OpenStream(d *Driver, name string) (*Stream, error) {
	fd, err := d.Open(name)
	if err != nil {
		return nil, err
	}
	return &Stream{driver: d, fd: fd}, nil
}

// Handle is the file handle behind the stream.
func (s *Stream) Handle() Handle {
	return s.fd
}

// Read returns io.EOF once the position reached the end of the file.
func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.driver.Read(s.fd, p)
	if err != nil {
		return n, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (s *Stream) Write(p []byte) (int, error) {
	return s.driver.Write(s.fd, p)
}

// Seek supports every whence; the resulting offset must lie within the file.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	info, err := s.driver.Stat(s.fd)
	if err != nil {
		return 0, err
	}

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(info.Position) + offset
	case io.SeekEnd:
		abs = int64(info.Length) + offset
	default:
		return 0, errWhence
	}
	if abs < 0 || abs > int64(info.Length) {
		return 0, ErrInvalidSeek
	}

	if err := s.driver.Seek(s.fd, uint32(abs)); err != nil {
		return 0, err
	}
	return abs, nil
}

func (s *Stream) Close() error {
	return s.driver.Close(s.fd)
}
