// Package server accepts raw TCP connections and drives each one through
// the protocol framer to a single response.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"nanopaste/internal/id"
	"nanopaste/internal/proto"
	"nanopaste/internal/ratelimit"
	"nanopaste/internal/storage"
)

const shutdownGrace = 3 * time.Second

// Config captures server configuration.
type Config struct {
	Store   storage.Store
	IDs     *id.Generator
	Limiter *ratelimit.Limiter

	// MaxBytes caps the total size of a buffered request.
	MaxBytes int
	// Host is the public hostname used in paste URLs and the manual.
	Host string
	// Manual overrides the embedded manual document. {{host}} is substituted.
	Manual []byte
	// IdleTimeout drops a connection that sends nothing for this long.
	// Zero or negative disables the deadline.
	IdleTimeout time.Duration
	// AcceptLimit optionally throttles the accept loop.
	AcceptLimit *rate.Limiter
	Logger      *slog.Logger
}

// Server owns the listener, the connection table and the shared paste state.
type Server struct {
	store       storage.Store
	idGen       *id.Generator
	limiter     *ratelimit.Limiter
	maxBytes    int
	host        string
	manual      []byte
	idleTimeout time.Duration
	acceptLimit *rate.Limiter
	logger      *slog.Logger

	// writeMu makes generate-ID-then-write atomic across connections,
	// standing in for the original's single event-loop thread.
	writeMu sync.Mutex

	wg sync.WaitGroup

	statsMu sync.Mutex
	started time.Time
	open    int
	created int64
	served  int64
}

// New constructs a Server, validating required collaborators.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.IDs == nil {
		return nil, errors.New("id generator required")
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 1_048_576
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if len(cfg.Manual) == 0 {
		cfg.Manual = defaultManual
	}
	if cfg.IdleTimeout < 0 {
		cfg.IdleTimeout = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Server{
		store:       cfg.Store,
		idGen:       cfg.IDs,
		limiter:     cfg.Limiter,
		maxBytes:    cfg.MaxBytes,
		host:        cfg.Host,
		manual:      cfg.Manual,
		idleTimeout: cfg.IdleTimeout,
		acceptLimit: cfg.AcceptLimit,
		logger:      cfg.Logger,
		started:     time.Now(),
	}, nil
}

// Serve accepts connections on ln until ctx is cancelled, then drains open
// handlers for a short grace period. Per-connection failures never stop the
// loop.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		if s.acceptLimit != nil {
			if err := s.acceptLimit.Wait(ctx); err != nil {
				break
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		s.logger.Warn("grace period exceeded, abandoning open connections")
	}
	return nil
}

// handleConn reads chunks into the framer until the request reaches a
// terminal state, writes exactly one response, and closes.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	s.trackOpen(1)
	defer s.trackOpen(-1)

	framer := proto.NewFramer(s.maxBytes)
	buf := make([]byte, proto.ReadChunkSize)

	for {
		if s.idleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		}

		n, err := conn.Read(buf)
		if n == 0 {
			if errors.Is(err, io.EOF) {
				// Peer closed without a complete request.
				_ = proto.WriteResponse(conn, proto.ErrorBody("you what?"))
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.logger.Info("dropping idle connection", "remote", remote)
				return
			}
			if err != nil {
				s.logger.Info("read failed", "remote", remote, "error", err)
				return
			}
			continue
		}

		switch framer.Feed(buf[:n]) {
		case proto.StateComplete:
			body := s.dispatch(ctx, clientKey(remote), framer.Bytes())
			if werr := proto.WriteResponse(conn, body); werr != nil {
				s.logger.Info("response write failed", "remote", remote, "error", werr)
			}
			return
		case proto.StateRejected:
			s.logger.Info("request rejected", "remote", remote, "reason", framer.Reason())
			_ = proto.WriteResponse(conn, proto.ErrorBody(framer.Reason()))
			return
		}
		// Non-terminal: wait for more bytes. A read that returned data plus
		// EOF comes back around and hits the empty-read branch above.
	}
}

// clientKey is the per-client identity used for rate limiting: the remote
// host, so parallel connections from one host share a window.
func clientKey(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}

func (s *Server) trackOpen(delta int) {
	s.statsMu.Lock()
	s.open += delta
	s.statsMu.Unlock()
}

// Stats is a point-in-time snapshot of server state, exposed through the
// admin endpoint and the SIGUSR1 dump.
type Stats struct {
	Uptime          string `json:"uptime"`
	OpenConnections int    `json:"open_connections"`
	PastesCreated   int64  `json:"pastes_created"`
	PastesServed    int64  `json:"pastes_served"`
	RateEntries     int    `json:"rate_entries"`
}

// Snapshot returns current stats.
func (s *Server) Snapshot() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return Stats{
		Uptime:          time.Since(s.started).Round(time.Second).String(),
		OpenConnections: s.open,
		PastesCreated:   s.created,
		PastesServed:    s.served,
		RateEntries:     s.limiter.Size(),
	}
}

// HasPaste reports whether id exists in the store.
func (s *Server) HasPaste(ctx context.Context, pasteID string) (bool, error) {
	return s.store.Exists(ctx, pasteID)
}

// PublicURL returns the retrieval URL for a paste ID.
func (s *Server) PublicURL(pasteID string) string {
	return "http://" + s.host + "/" + pasteID
}
