package controller

import (
	"github.com/tobiasfamos/fs3/proto"
)

/*
Loopback delivers commands straight to a Controller without a network
connection. It satisfies the driver's transport contract, including the
network byte order round trip of every word.
*/
type Loopback struct {
	controller *Controller
	buf        [proto.SectorSize]byte
}

func NewLoopback(c *Controller) *Loopback {
	return &Loopback{controller: c}
}

func (l *Loopback) Syscall(cmd uint64, buf []byte) (uint64, error) {
	var wire [proto.WordSize]byte
	proto.PutWord(wire[:], cmd)
	cmd = proto.Word(wire[:])

	op := proto.OpOf(cmd)
	payload := l.buf[:]
	if op.HasRequestPayload() {
		if len(buf) < proto.SectorSize {
			return 0, errShortPayload
		}
		copy(payload, buf)
	}

	resp := l.controller.Execute(cmd, payload)

	if op.HasResponsePayload() {
		if len(buf) < proto.SectorSize {
			return 0, errShortPayload
		}
		copy(buf, payload)
	}

	proto.PutWord(wire[:], resp)
	return proto.Word(wire[:]), nil
}
