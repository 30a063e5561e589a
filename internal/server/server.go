package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/catatsuy/kusari/internal/config"
	"github.com/catatsuy/kusari/internal/registry"
)

type Config struct {
	ListenAddr  string
	MaxElements int
	// Lists are registered before the first session is served.
	Lists    []config.List
	Observer registry.Observer
	Verbose  bool
	Logger   *slog.Logger
}

type Server struct {
	cfg   Config
	lists *registry.Registry

	mu        sync.RWMutex
	listener  net.Listener
	readyCh   chan struct{}
	readyOnce sync.Once
	closed    bool

	preloadOnce sync.Once
	preloadErr  error

	logger *slog.Logger
}

func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Server{
		cfg:     cfg,
		lists:   registry.NewRegistry(cfg.MaxElements, cfg.Observer),
		readyCh: make(chan struct{}),
		logger:  logger,
	}
}

func (s *Server) Ready() <-chan struct{} {
	return s.readyCh
}

func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Serve(ctx context.Context) error {
	if err := s.preload(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.readyCh) })

	s.logf("listening on %s", ln.Addr().String())
	// Lists live as long as the listener.
	defer s.lists.Close()

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.logf("temporary accept error: %v", err)
				continue
			}
			s.logf("accept error: %v", err)
			return err
		}

		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// preload registers the configured lists once.
func (s *Server) preload() error {
	s.preloadOnce.Do(func() {
		for _, l := range s.cfg.Lists {
			if err := s.lists.Register(l.Name, l.Size); err != nil {
				s.preloadErr = fmt.Errorf("register list %q: %w", l.Name, err)
				return
			}
			s.logf("registered list %s size=%d", l.Name, l.Size)
		}
	})
	return s.preloadErr
}

func (s *Server) logf(format string, args ...any) {
	if !s.cfg.Verbose {
		return
	}
	s.logger.Info(fmt.Sprintf(format, args...))
}
