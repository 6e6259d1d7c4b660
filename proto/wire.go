package proto

import (
	"encoding/binary"
	"io"
)

// WordSize is the size in bytes of a command word on the wire.
const WordSize = 8

// PutWord stores word into b in network byte order. b must hold WordSize
// bytes.
func PutWord(b []byte, word uint64) {
	binary.BigEndian.PutUint64(b[:WordSize], word)
}

// Word reads a network byte order command word from b.
func Word(b []byte) uint64 {
	return binary.BigEndian.Uint64(b[:WordSize])
}

// WriteWord writes word to w in network byte order.
func WriteWord(w io.Writer, word uint64) error {
	var b [WordSize]byte
	PutWord(b[:], word)
	_, err := w.Write(b[:])
	return err
}

// ReadWord reads exactly one network byte order command word from r.
func ReadWord(r io.Reader) (uint64, error) {
	var b [WordSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return Word(b[:]), nil
}

// WriteSectorPayload writes exactly one sector from p to w. p must hold at
// least SectorSize bytes.
func WriteSectorPayload(w io.Writer, p []byte) error {
	if len(p) < SectorSize {
		return io.ErrShortBuffer
	}
	_, err := w.Write(p[:SectorSize])
	return err
}

// ReadSectorPayload reads exactly one sector from r into p. p must hold at
// least SectorSize bytes.
func ReadSectorPayload(r io.Reader, p []byte) error {
	if len(p) < SectorSize {
		return io.ErrShortBuffer
	}
	_, err := io.ReadFull(r, p[:SectorSize])
	return err
}
