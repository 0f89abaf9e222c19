// Package server accepts TCP connections, turns each one into a job on a
// fixed worker pool, and answers a small set of literal GET paths with
// canned HTML.
package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"

	"threadedhttp/config"
	"threadedhttp/pool"
)

const (
	// acceptPollInterval bounds how long the accept loop goes without
	// checking the shutdown flag
	acceptPollInterval = 100 * time.Millisecond

	writeTimeout = 10 * time.Second

	// accept retry backoff after a non-timeout accept error
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second

	// lingerTimeout bounds how long a finished connection waits for the
	// peer's unread bytes before the close
	lingerTimeout = 50 * time.Millisecond
)

// Server is the connection dispatcher
type Server struct {
	config    *config.Config
	flag      ShutdownFlag
	fs        afero.Fs
	logger    *slog.Logger
	router    *Router
	pages     *Pages
	accessLog *AccessLogger
	limiter   *rate.Limiter
	pool      *pool.WorkerPool

	mu        sync.Mutex
	listener  net.Listener
	closeOnce sync.Once
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the operational logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFs sets the filesystem used for pages and the access log
func WithFs(fs afero.Fs) Option {
	return func(s *Server) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// NewServer creates a server instance and starts its worker pool. Nothing is
// bound until Listen.
func NewServer(cfg *config.Config, flag ShutdownFlag, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &Server{
		config: cfg,
		flag:   flag,
		fs:     afero.NewOsFs(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	var cache *Cache
	if cfg.EnableCaching {
		cache = NewCache(cfg.CacheMaxEntries)
	}
	s.router = NewRouter(cfg.SleepDelay)
	s.pages = NewPages(s.fs, cfg.DocRoot, cache, s.logger)

	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	if cfg.AccessLogPath != "" {
		accessLog, err := NewAccessLogger(s.fs, cfg.AccessLogPath, cfg.LogMaxSizeMB)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize access log: %w", err)
		}
		s.accessLog = accessLog
	}

	wp, err := pool.New(cfg.Threads, pool.WithLogger(s.logger))
	if err != nil {
		if s.accessLog != nil {
			s.accessLog.Close()
		}
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	s.pool = wp

	return s, nil
}

// Router returns the route table so callers can add literal routes before serving
func (s *Server) Router() *Router {
	return s.router
}

// Listen binds the configured address
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}

	addr := s.config.Address()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address, or nil before Listen
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start binds the configured address and serves until shutdown
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		s.Close()
		return err
	}
	return s.Serve()
}

// Serve runs the accept loop until the shutdown flag is set, then stops
// accepting, drains the worker pool and returns. Every accepted connection
// becomes exactly one job.
func (s *Server) Serve() error {
	defer s.Close()

	if err := s.Listen(); err != nil {
		return err
	}
	s.logger.Info("server listening", "address", s.listener.Addr().String(), "workers", s.pool.Size())

	var backoff time.Duration
	for {
		if s.flag.ShuttingDown() {
			s.logger.Info("shutdown signal received, stopping server")
			return nil
		}

		// Set deadline for accept to allow checking shutdown
		if tl, ok := s.listener.(*net.TCPListener); ok {
			tl.SetDeadline(time.Now().Add(acceptPollInterval))
		}

		conn, err := s.listener.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			backoff = nextAcceptBackoff(backoff)
			s.logger.Warn("failed to accept connection", "error", err, "retry_in", backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		if err := s.dispatch(conn); err != nil {
			if errors.Is(err, pool.ErrQueueClosed) {
				s.logger.Warn("worker pool closed, no longer accepting connections")
				return nil
			}
			s.logger.Error("failed to dispatch connection", "error", err)
		}
	}
}

// nextAcceptBackoff doubles the previous delay, starting at minAcceptBackoff
// and capped at maxAcceptBackoff
func nextAcceptBackoff(prev time.Duration) time.Duration {
	if prev == 0 {
		return minAcceptBackoff
	}
	return min(prev*2, maxAcceptBackoff)
}

// dispatch wraps an accepted connection in a job and submits it. The
// connection is closed here if the pool refuses the job.
func (s *Server) dispatch(conn net.Conn) error {
	requestID := uuid.New().String()
	clientIP, clientPort := GetClientIP(conn)

	if s.config.Verbose {
		s.logger.Info("accepted connection", "request_id", requestID, "client", fmt.Sprintf("%s:%d", clientIP, clientPort))
	}

	var job pool.Job
	if s.limiter != nil && !s.limiter.Allow() {
		job = func() error { return s.rejectConnection(conn, requestID) }
	} else {
		job = func() error { return s.handleConnection(conn, requestID) }
	}

	if err := s.pool.Submit(job); err != nil {
		conn.Close()
		return fmt.Errorf("failed to submit connection %s: %w", requestID, err)
	}
	return nil
}

// handleConnection is the job body for one connection: read the request
// line, pick the route, write the canned response, close.
func (s *Server) handleConnection(conn net.Conn, requestID string) error {
	defer closeConn(conn)
	start := time.Now()

	req, parseErr := s.readRequest(conn)
	if parseErr != nil {
		s.logger.Debug("unparsable request, answering not found", "request_id", requestID, "error", parseErr)
	} else if s.config.Verbose {
		s.logger.Info("request", "request_id", requestID, "line", req.String())
	}

	route := s.router.Match(req)
	if route.Delay > 0 {
		time.Sleep(route.Delay)
	}

	resp := &Response{
		Status: route.Status,
		Reason: Reason(route.Status),
		Body:   s.pages.Load(route.Page),
	}
	return s.respond(conn, requestID, start, req, resp)
}

// rejectConnection answers a rate-limited connection. The request line is
// still consumed so the close does not reset the peer.
func (s *Server) rejectConnection(conn net.Conn, requestID string) error {
	defer closeConn(conn)
	start := time.Now()

	req, _ := s.readRequest(conn)

	body := fmt.Sprintf("%d %s", StatusTooManyRequests, Reason(StatusTooManyRequests))
	resp := &Response{
		Status: StatusTooManyRequests,
		Reason: Reason(StatusTooManyRequests),
		Body:   []byte(body),
	}
	return s.respond(conn, requestID, start, req, resp)
}

// respond writes resp and records the access log entry. req may be nil when
// the request line could not be parsed.
func (s *Server) respond(conn net.Conn, requestID string, start time.Time, req *Request, resp *Response) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	n, err := resp.WriteTo(conn)

	entry := LogEntry{
		Timestamp: start,
		RequestID: requestID,
		Status:    resp.Status,
		BytesSent: n,
		Duration:  time.Since(start),
	}
	if req != nil {
		entry.RequestLine = req.String()
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.logAccess(conn, entry)

	if err != nil {
		return fmt.Errorf("connection %s: failed to write response: %w", requestID, err)
	}
	return nil
}

// readRequest parses the request line under the read timeout
func (s *Server) readRequest(conn net.Conn) (*Request, error) {
	conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	return ParseRequestLine(bufio.NewReader(io.LimitReader(conn, maxRequestLineBytes)))
}

// closeConn half-closes a TCP connection and discards whatever the peer sent
// past the request line, so the close does not reset a peer that is still
// reading the response
func closeConn(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.CloseWrite()
		tc.SetReadDeadline(time.Now().Add(lingerTimeout))
		io.Copy(io.Discard, io.LimitReader(tc, maxRequestLineBytes))
	}
	conn.Close()
}

// logAccess fills in the client address and writes the access log entry
func (s *Server) logAccess(conn net.Conn, entry LogEntry) {
	if s.accessLog == nil {
		return
	}
	entry.ClientIP, entry.ClientPort = GetClientIP(conn)
	s.accessLog.Log(entry)
}

// Stats returns a snapshot of the worker pool
func (s *Server) Stats() pool.Stats {
	return s.pool.Stats()
}

// Close stops listening, waits for the worker pool to finish every queued
// and running job, and closes the access log. Safe to call more than once.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()

		s.pool.Shutdown()
		stats := s.pool.Stats()
		s.logger.Info("worker pool drained", "completed", stats.Completed, "failed", stats.Failed)

		if s.accessLog != nil {
			if err := s.accessLog.Close(); err != nil {
				s.logger.Warn("failed to close access log", "error", err)
			}
		}
		s.logger.Info("server shutdown complete")
	})
}
