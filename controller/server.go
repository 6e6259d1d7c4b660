package controller

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/tobiasfamos/fs3/logging"
	"github.com/tobiasfamos/fs3/proto"
)

var errShortPayload = errors.New("payload shorter than one sector")

// ErrServerClosed is returned by Serve after Close.
var ErrServerClosed = errors.New("controller server closed")

/*
Server exposes a Controller over a stream listener. Each connection carries
a sequence of exchanges: a command word, one sector after a WRITE-SECTOR
word, the response word, and one sector after a READ-SECTOR response.
*/
type Server struct {
	controller *Controller
	logger     *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

func NewServer(c *Controller, logger *slog.Logger) *Server {
	return &Server{
		controller: c,
		logger:     logging.For(logger, logging.ComponentController),
		conns:      make(map[net.Conn]struct{}),
	}
}

// ListenAndServe listens on the TCP address addr and serves until Close.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Close is called. It always returns a
// non-nil error; after Close the error is ErrServerClosed.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		l.Close()
		return ErrServerClosed
	}
	s.listener = l
	s.mu.Unlock()

	s.logger.Info("controller listening", "addr", l.Addr().String())

	for {
		conn, err := l.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return ErrServerClosed
			}
			return err
		}

		if !s.track(conn) {
			conn.Close()
			return ErrServerClosed
		}
		go s.handle(conn)
	}
}

// Addr is the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting, closes every open connection and waits for the
// connection handlers to return.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) handle(conn net.Conn) {
	defer s.untrack(conn)
	defer conn.Close()

	logger := s.logger.With("remote", conn.RemoteAddr().String())
	logger.Debug("connection opened")

	// holds is set while this connection owns the controller's mount.
	holds := false
	defer func() {
		if holds && s.controller.Release() {
			logger.Warn("connection closed while mounted")
		}
	}()

	payload := make([]byte, proto.SectorSize)
	for {
		word, err := proto.ReadWord(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Warn("error reading command", "err", err)
			}
			logger.Debug("connection closed")
			return
		}

		op := proto.OpOf(word)
		if op.HasRequestPayload() {
			if err := proto.ReadSectorPayload(conn, payload); err != nil {
				logger.Warn("error reading sector payload", "err", err)
				return
			}
		}

		resp := s.controller.Execute(word, payload)
		if proto.RetOf(resp) == 0 {
			switch op {
			case proto.OpMount:
				holds = true
			case proto.OpUnmount:
				holds = false
			}
		}

		if err := proto.WriteWord(conn, resp); err != nil {
			logger.Warn("error writing response", "err", err)
			return
		}
		if op.HasResponsePayload() {
			if err := proto.WriteSectorPayload(conn, payload); err != nil {
				logger.Warn("error writing sector payload", "err", err)
				return
			}
		}
	}
}
