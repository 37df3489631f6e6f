package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/danmuck/taskrunner/internal/protocol/record"
	"github.com/rs/zerolog/log"
)

var (
	ErrOwnerStopped = errors.New("registry: owner stopped")
	ErrOwnerRunning = errors.New("registry: owner already running")
)

// ApplyFunc observes one applied submission. It runs on the owner goroutine.
type ApplyFunc func(task record.Task, replaced bool, size int)

// OwnerConfig tunes the submission hand-off.
type OwnerConfig struct {
	QueueSize int
	OnApply   ApplyFunc
}

func DefaultOwnerConfig() OwnerConfig {
	return OwnerConfig{QueueSize: 64}
}

// Owner serializes every registry mutation onto a single goroutine. Tasks
// are applied in the order Submit handed them over.
type Owner struct {
	reg     *Registry
	onApply ApplyFunc

	submissions chan record.Task
	queries     chan func(*Registry)
	stopped     chan struct{}

	runMu   sync.Mutex
	running bool
}

func NewOwner() *Owner {
	return NewOwnerWithConfig(DefaultOwnerConfig())
}

func NewOwnerWithConfig(cfg OwnerConfig) *Owner {
	if cfg.QueueSize < 0 {
		cfg.QueueSize = DefaultOwnerConfig().QueueSize
	}
	return &Owner{
		reg:         New(),
		onApply:     cfg.OnApply,
		submissions: make(chan record.Task, cfg.QueueSize),
		queries:     make(chan func(*Registry)),
		stopped:     make(chan struct{}),
	}
}

// Submit hands t to the owner. It never fails: it returns once the task has
// been accepted into the queue, or drops it when the owner has stopped.
func (o *Owner) Submit(t record.Task) {
	select {
	case <-o.stopped:
		log.Warn().Str("task", t.Name).Msg("registry owner stopped, submission dropped")
		return
	default:
	}
	select {
	case o.submissions <- t:
	case <-o.stopped:
		log.Warn().Str("task", t.Name).Msg("registry owner stopped, submission dropped")
	}
}

// Run applies submissions until ctx is done. Submissions already queued when
// ctx ends are applied before Run returns.
func (o *Owner) Run(ctx context.Context) error {
	o.runMu.Lock()
	if o.running {
		o.runMu.Unlock()
		return ErrOwnerRunning
	}
	o.running = true
	o.runMu.Unlock()

	defer close(o.stopped)
	for {
		select {
		case t := <-o.submissions:
			o.apply(t)
		case q := <-o.queries:
			o.drain()
			q(o.reg)
		case <-ctx.Done():
			o.drain()
			log.Debug().Int("tasks", o.reg.Len()).Msg("registry owner stopped")
			return nil
		}
	}
}

// Done is closed once Run has returned.
func (o *Owner) Done() <-chan struct{} {
	return o.stopped
}

func (o *Owner) apply(t record.Task) {
	replaced := o.reg.Put(t)
	log.Debug().
		Str("task", t.Name).
		Int("depends", len(t.Depends)).
		Int("args", len(t.Args)).
		Bool("replaced", replaced).
		Msg("task registered")
	if o.onApply != nil {
		o.onApply(t, replaced, o.reg.Len())
	}
}

// drain applies everything already queued.
func (o *Owner) drain() {
	for {
		select {
		case t := <-o.submissions:
			o.apply(t)
		default:
			return
		}
	}
}

// do runs fn on the owner goroutine after every submission queued before the
// call has been applied. ctx bounds only the hand-off: once the owner has
// taken fn, do waits for it to return so callers never read results fn is
// still writing.
func (o *Owner) do(ctx context.Context, fn func(*Registry)) error {
	done := make(chan struct{})
	q := func(r *Registry) {
		defer close(done)
		fn(r)
	}
	select {
	case o.queries <- q:
	case <-o.stopped:
		return ErrOwnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// Sync waits until every submission accepted before the call is applied.
func (o *Owner) Sync(ctx context.Context) error {
	return o.do(ctx, func(*Registry) {})
}

func (o *Owner) Get(ctx context.Context, name string) (record.Task, bool, error) {
	var (
		task record.Task
		ok   bool
	)
	err := o.do(ctx, func(r *Registry) {
		task, ok = r.Get(name)
	})
	return task, ok, err
}

func (o *Owner) Len(ctx context.Context) (int, error) {
	var n int
	err := o.do(ctx, func(r *Registry) {
		n = r.Len()
	})
	return n, err
}

// Snapshot returns every registered task ordered by name.
func (o *Owner) Snapshot(ctx context.Context) ([]record.Task, error) {
	var list []record.Task
	err := o.do(ctx, func(r *Registry) {
		list = r.Snapshot()
	})
	return list, err
}
