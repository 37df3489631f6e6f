package runner

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/danmuck/taskrunner/internal/observability"
	"github.com/danmuck/taskrunner/internal/protocol"
	"github.com/danmuck/taskrunner/internal/protocol/frame"
	"github.com/danmuck/taskrunner/internal/protocol/record"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// handleConn owns conn for its whole lifetime: wait for a worker slot, decode
// records until end of stream or the first error, close.
func (s *Service) handleConn(ctx context.Context, conn net.Conn) {
	defer s.workers.Done()
	defer s.untrackConn(conn)
	defer conn.Close()

	logger := log.With().Str("conn", uuid.NewString()).Logger()

	waitStart := time.Now()
	if err := s.slots.Acquire(ctx, 1); err != nil {
		logger.Debug().Err(err).Msg("connection dropped before a worker was free")
		return
	}
	defer s.slots.Release(1)
	observability.RecordWorkerWait(time.Since(waitStart))

	active := s.activeCount.Add(1)
	observability.SetActiveConnections(active)
	logger.Debug().Int64("active_clients", active).Msg("client connected")
	defer func() {
		remaining := s.activeCount.Add(-1)
		observability.SetActiveConnections(remaining)
		logger.Debug().Int64("active_clients", remaining).Msg("client disconnected")
	}()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("connection worker panicked")
		}
	}()

	var src io.Reader = conn
	if s.cfg.ReadTimeout > 0 {
		src = deadlineReader{conn: conn, timeout: s.cfg.ReadTimeout}
	}
	dec := record.NewDecoder(src, frame.Limits{MaxFieldBytes: s.cfg.MaxFieldBytes})

	count := 0
	for {
		task, err := dec.Next()
		if errors.Is(err, io.EOF) {
			logger.Debug().Int("tasks", count).Msg("client finished")
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logDecodeError(logger, dec.State(), count, err)
			return
		}
		count++
		observability.RecordTaskDecoded()
		s.owner.Submit(task)
	}
}

func logDecodeError(logger zerolog.Logger, st protocol.State, count int, err error) {
	kind := protocol.Kind(err)
	observability.RecordDecodeError(kind, st.String())
	logger.Warn().
		Str("kind", kind).
		Str("state", st.String()).
		Int("tasks", count).
		Err(err).
		Msg("failed to read task")
}

// deadlineReader refreshes the read deadline before every read.
type deadlineReader struct {
	conn    net.Conn
	timeout time.Duration
}

func (d deadlineReader) Read(p []byte) (int, error) {
	if err := d.conn.SetReadDeadline(time.Now().Add(d.timeout)); err != nil {
		return 0, err
	}
	return d.conn.Read(p)
}
