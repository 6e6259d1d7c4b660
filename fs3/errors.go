package fs3

import "errors"

var (
	// ErrTransport wraps any failure of the underlying connection.
	ErrTransport = errors.New("transport failure")
	// ErrProtocol reports a command answered with the failure status.
	ErrProtocol = errors.New("controller reported failure")

	ErrInvalidHandle  = errors.New("invalid or closed file handle")
	ErrInvalidSeek    = errors.New("seek beyond end of file")
	ErrAlreadyMounted = errors.New("disk already mounted")
	ErrNotMounted     = errors.New("disk not mounted")
	ErrDiskFull       = errors.New("no free sectors left on disk")
	ErrTooManyFiles   = errors.New("file table full")
	ErrInvalidName    = errors.New("invalid file name")
	ErrFileTooLarge   = errors.New("file would exceed maximum length")
)
