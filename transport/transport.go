// Package transport carries command words and sector payloads between the
// driver and a remote controller.
package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/tobiasfamos/fs3/logging"
	"github.com/tobiasfamos/fs3/proto"
)

const (
	// DefaultAddress is the controller host used when none is configured.
	DefaultAddress = "127.0.0.1"
	// DefaultPort is the controller port used when none is configured.
	DefaultPort = 22887
)

var (
	ErrNotConnected     = errors.New("not connected to controller")
	ErrAlreadyConnected = errors.New("already connected to controller")
	ErrShortPayload     = errors.New("payload buffer shorter than one sector")
)

/*
Transport sends one command word and blocks for the response word.

For WRITE-SECTOR, one sector from buf is sent right after the command word.
For READ-SECTOR, one sector is received into buf right after the response
word. buf is ignored for other opcodes.

The returned error reports a transport failure only; the status of the
command itself is carried in the response word.
*/
type Transport interface {
	Syscall(cmd uint64, buf []byte) (uint64, error)
}

// Config provides parameters used to build a NetTransport.
type Config struct {
	Address string // Controller host; empty means DefaultAddress
	Port    int    // Controller port; 0 means DefaultPort
	Logger  *slog.Logger
	// Dial opens the connection. Defaults to a TCP dial of Address:Port.
	Dial func(network, address string) (net.Conn, error)
}

/*
NetTransport is a Transport over a stream connection.

The connection is opened before a MOUNT word is sent and closed after the
UNMOUNT response is received. Words travel in network byte order.

A NetTransport carries one exchange at a time and is not safe for
concurrent use.
*/
type NetTransport struct {
	address string
	dial    func(network, address string) (net.Conn, error)
	conn    net.Conn
	logger  *slog.Logger
}

func New(cfg Config) *NetTransport {
	address := cfg.Address
	if address == "" {
		address = DefaultAddress
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	dial := cfg.Dial
	if dial == nil {
		dial = net.Dial
	}

	return &NetTransport{
		address: net.JoinHostPort(address, strconv.Itoa(port)),
		dial:    dial,
		logger:  logging.For(cfg.Logger, logging.ComponentTransport),
	}
}

// Address is the host:port the transport connects to.
func (t *NetTransport) Address() string {
	return t.address
}

// Connected reports whether a connection is open.
func (t *NetTransport) Connected() bool {
	return t.conn != nil
}

func (t *NetTransport) Syscall(cmd uint64, buf []byte) (uint64, error) {
	op := proto.OpOf(cmd)

	if (op.HasRequestPayload() || op.HasResponsePayload()) && len(buf) < proto.SectorSize {
		return 0, ErrShortPayload
	}

	if op == proto.OpMount {
		if err := t.connect(); err != nil {
			return 0, err
		}
	}
	if t.conn == nil {
		return 0, ErrNotConnected
	}

	if err := proto.WriteWord(t.conn, cmd); err != nil {
		return 0, t.fail("error writing network data", err)
	}
	if op.HasRequestPayload() {
		if err := proto.WriteSectorPayload(t.conn, buf); err != nil {
			return 0, t.fail("error writing network data", err)
		}
	}

	resp, err := proto.ReadWord(t.conn)
	if err != nil {
		return 0, t.fail("error reading network data", err)
	}
	if op.HasResponsePayload() {
		if err := proto.ReadSectorPayload(t.conn, buf); err != nil {
			return 0, t.fail("error reading network data", err)
		}
	}

	// A refused MOUNT leaves nothing to talk to; the next MOUNT dials again.
	if op == proto.OpUnmount || (op == proto.OpMount && proto.RetOf(resp) != 0) {
		t.disconnect()
	}

	return resp, nil
}

// Close drops the connection if one is open.
func (t *NetTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *NetTransport) connect() error {
	if t.conn != nil {
		return ErrAlreadyConnected
	}

	conn, err := t.dial("tcp", t.address)
	if err != nil {
		t.logger.Error("error on socket connect", "addr", t.address, "err", err)
		return fmt.Errorf("connect %s: %w", t.address, err)
	}

	t.conn = conn
	t.logger.Info("connected", "addr", t.address)
	return nil
}

func (t *NetTransport) disconnect() {
	if err := t.Close(); err != nil {
		t.logger.Warn("error closing connection", "err", err)
		return
	}
	t.logger.Info("disconnected", "addr", t.address)
}

// fail logs err and drops the connection, since the stream can no longer
// be trusted to be aligned on word boundaries.
func (t *NetTransport) fail(msg string, err error) error {
	t.logger.Error(msg, "err", err)
	_ = t.Close()
	return fmt.Errorf("%s: %w", msg, err)
}
