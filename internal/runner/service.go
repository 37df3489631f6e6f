package runner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danmuck/taskrunner/internal/observability"
	"github.com/danmuck/taskrunner/internal/protocol/record"
	"github.com/danmuck/taskrunner/internal/registry"
	"github.com/danmuck/taskrunner/internal/status"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

var ErrServed = errors.New("runner: service already served")

const (
	acceptRetryMin = 5 * time.Millisecond
	acceptRetryMax = time.Second
)

// Service accepts task connections and feeds decoded tasks to the registry owner.
type Service struct {
	cfg   ServiceConfig
	owner *registry.Owner
	slots *semaphore.Weighted

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
	closing bool
	workers sync.WaitGroup

	activeCount atomic.Int64
	served      atomic.Bool
}

func NewService() *Service {
	return NewServiceWithConfig(DefaultServiceConfig())
}

func NewServiceWithConfig(cfg ServiceConfig) *Service {
	cfg = cfg.WithDefaults()
	observability.RegisterMetrics()
	owner := registry.NewOwnerWithConfig(registry.OwnerConfig{
		QueueSize: cfg.SubmitQueue,
		OnApply: func(_ record.Task, replaced bool, size int) {
			observability.RecordRegistryApply(replaced, size)
		},
	})
	return &Service{
		cfg:   cfg,
		owner: owner,
		slots: semaphore.NewWeighted(int64(cfg.MaxWorkers)),
		conns: make(map[net.Conn]struct{}),
	}
}

// Owner returns the registry owner fed by this service.
func (s *Service) Owner() *registry.Owner {
	return s.owner
}

func (s *Service) Config() ServiceConfig {
	return s.cfg
}

// Run binds the task socket and serves until SIGINT or SIGTERM.
func (s *Service) Run() error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := listenUnix(s.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("bind task socket %s: %w", s.cfg.SocketPath, err)
	}
	defer os.Remove(s.cfg.SocketPath)
	log.Info().Str("socket", s.cfg.SocketPath).Int("max_workers", s.cfg.MaxWorkers).Msg("taskrunner listening")

	statusErr := make(chan error, 1)
	if s.cfg.StatusSocketPath != "" {
		statusLn, err := listenUnix(s.cfg.StatusSocketPath)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("bind status socket %s: %w", s.cfg.StatusSocketPath, err)
		}
		defer os.Remove(s.cfg.StatusSocketPath)
		srv := status.New("taskrunner", s.owner)
		log.Info().Str("socket", s.cfg.StatusSocketPath).Msg("status endpoint listening")
		go func() {
			statusErr <- srv.Serve(ctx, statusLn)
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.Serve(ctx, ln)
	}()
	select {
	case err := <-serveErr:
		return err
	case err := <-statusErr:
		if err != nil {
			log.Error().Err(err).Msg("status endpoint stopped")
		}
		return <-serveErr
	}
}

// listenUnix binds path, replacing a stale socket file left by an earlier run.
func listenUnix(path string) (net.Listener, error) {
	if fi, err := os.Lstat(path); err == nil && fi.Mode()&os.ModeSocket != 0 {
		if conn, err := net.Dial("unix", path); err == nil {
			_ = conn.Close()
			return nil, fmt.Errorf("socket %s already in use", path)
		}
		if err := os.Remove(path); err != nil {
			return nil, err
		}
	}
	return net.Listen("unix", path)
}

// Serve runs the registry owner and accepts connections on ln until ctx is
// done. Each connection gets its own goroutine right away; the goroutine
// then waits for one of MaxWorkers slots, so Accept never waits on a worker.
// The owner is stopped only after every worker has returned.
//
// Accept failures other than a closed listener back off and retry. A Service
// serves once; later calls return ErrServed.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	if !s.served.CompareAndSwap(false, true) {
		return ErrServed
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ownerCtx, stopOwner := context.WithCancel(context.Background())
	defer stopOwner()
	ownerDone := make(chan error, 1)
	go func() {
		ownerDone <- s.owner.Run(ownerCtx)
	}()

	defer ln.Close()
	go func() {
		<-ctx.Done()
		s.closeAllConns()
		_ = ln.Close()
	}()

	var retryDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			retryDelay = nextAcceptDelay(retryDelay)
			observability.RecordAcceptError()
			log.Warn().Err(err).Dur("retry_in", retryDelay).Msg("accept failed")
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
			}
			continue
		}
		retryDelay = 0
		observability.RecordConnectionAccepted()
		if !s.trackConn(conn) {
			_ = conn.Close()
			continue
		}
		s.workers.Add(1)
		go s.handleConn(ctx, conn)
	}

	cancel()
	s.workers.Wait()
	stopOwner()
	return <-ownerDone
}

// nextAcceptDelay doubles prev within [acceptRetryMin, acceptRetryMax].
func nextAcceptDelay(prev time.Duration) time.Duration {
	if prev == 0 {
		return acceptRetryMin
	}
	if next := prev * 2; next < acceptRetryMax {
		return next
	}
	return acceptRetryMax
}

// ActiveConnections returns how many connections currently hold a worker slot.
func (s *Service) ActiveConnections() int64 {
	return s.activeCount.Load()
}

// trackConn records conn for shutdown. It returns false once shutdown has
// started.
func (s *Service) trackConn(conn net.Conn) bool {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	if s.closing {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Service) untrackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, conn)
}

func (s *Service) closeAllConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.closing = true
	for conn := range s.conns {
		_ = conn.Close()
		delete(s.conns, conn)
	}
}
