package sink

import (
	"context"
	"errors"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hdb-resale/resale-cli/internal/model"
)

// Snapshot is one checkpoint of a matching run.
type Snapshot struct {
	Done    int
	Total   int
	Final   bool
	Results []model.MatchResult
}

// WriteFunc persists a snapshot.
type WriteFunc func(ctx context.Context, s Snapshot) error

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("sink: checkpointer closed")

// Checkpointer writes snapshots on a background goroutine. Only the most
// recent pending snapshot is kept: a slow writer drops intermediate states
// but always sees the last one submitted before Close.
type Checkpointer struct {
	write WriteFunc
	log   *zap.Logger

	mu      sync.Mutex
	pending *Snapshot
	closed  bool
	err     error

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewCheckpointer starts the writer goroutine. ctx is passed to every write;
// cancelling it does not stop the goroutine, Close does.
func NewCheckpointer(ctx context.Context, write WriteFunc) *Checkpointer {
	c := &Checkpointer{
		write: write,
		log:   zap.L().With(zap.String("component", "checkpointer")),
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go c.run(ctx)
	return c
}

// FileWriter writes each snapshot as a results CSV at path.
func FileWriter(path string) WriteFunc {
	return func(_ context.Context, s Snapshot) error {
		return WriteResultsCSV(path, s.Results)
	}
}

// Chain runs writers in order and stops at the first error.
func Chain(writers ...WriteFunc) WriteFunc {
	return func(ctx context.Context, s Snapshot) error {
		for _, w := range writers {
			if w == nil {
				continue
			}
			if err := w(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}
}

// Submit queues s, replacing any snapshot not yet written. It never blocks on I/O.
func (c *Checkpointer) Submit(s Snapshot) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pending = &s
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

// Err returns the first write error, if any.
func (c *Checkpointer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close flushes the pending snapshot and waits for the writer to exit or
// for ctx to end. It returns the first write error.
func (c *Checkpointer) Close(ctx context.Context) error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.stop)
	}
	c.mu.Unlock()

	select {
	case <-c.done:
		return c.Err()
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "sink: waiting for checkpoint flush")
	}
}

func (c *Checkpointer) run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-c.wake:
			c.flush(ctx)
		case <-c.stop:
			c.flush(ctx)
			return
		}
	}
}

func (c *Checkpointer) flush(ctx context.Context) {
	c.mu.Lock()
	s := c.pending
	c.pending = nil
	c.mu.Unlock()
	if s == nil {
		return
	}

	if err := c.write(ctx, *s); err != nil {
		c.log.Error("checkpoint write failed",
			zap.Int("done", s.Done),
			zap.Int("total", s.Total),
			zap.Error(err),
		)
		c.mu.Lock()
		if c.err == nil {
			c.err = err
		}
		c.mu.Unlock()
		return
	}
	c.log.Debug("checkpoint written",
		zap.Int("done", s.Done),
		zap.Int("total", s.Total),
		zap.Bool("final", s.Final),
	)
}
