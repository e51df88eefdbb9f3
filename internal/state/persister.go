package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/morashelf/morashelf-core/internal/kv"
)

// persister writes one store's snapshot to the key-value store with
// debounce-to-latest semantics: schedule replaces any payload that has not
// been written yet, so a slow write can never land after a newer one.
type persister struct {
	key    string
	store  kv.Store
	delay  time.Duration
	logger *slog.Logger

	mu         sync.Mutex
	pending    []byte
	hasPending bool
	closed     bool

	// writeMu orders writes. A payload is taken from pending only while
	// holding it, so writes land in the order payloads were scheduled.
	writeMu sync.Mutex

	wake      chan struct{}
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newPersister(store kv.Store, key string, delay time.Duration, log *slog.Logger) *persister {
	p := &persister{
		key:    key,
		store:  store,
		delay:  delay,
		logger: log.With("key", key),
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// schedule replaces the pending payload with blob and wakes the worker.
// After close it writes synchronously.
func (p *persister) schedule(blob []byte) {
	p.mu.Lock()
	p.pending = blob
	p.hasPending = true
	closed := p.closed
	p.mu.Unlock()

	if closed {
		_ = p.flush(context.Background())
		return
	}

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)

	var timer *time.Timer
	for {
		select {
		case <-p.wake:
		case <-p.quit:
			return
		}

		if p.delay > 0 {
			if timer == nil {
				timer = time.NewTimer(p.delay)
			} else {
				timer.Reset(p.delay)
			}
			select {
			case <-timer.C:
			case <-p.quit:
				timer.Stop()
				return
			}
		}

		_ = p.write(context.Background())
	}
}

// write takes the pending payload, if any, and stores it.
func (p *persister) write(ctx context.Context) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.mu.Lock()
	data, ok := p.pending, p.hasPending
	p.pending, p.hasPending = nil, false
	p.mu.Unlock()

	if !ok {
		return nil
	}

	start := time.Now()
	if err := p.store.Set(ctx, p.key, data); err != nil {
		p.logger.Error("failed to persist state", "error", err)
		return err
	}
	p.logger.Debug("persisted state", "bytes", len(data), "took", time.Since(start))
	return nil
}

// flush blocks until everything scheduled so far is written.
func (p *persister) flush(ctx context.Context) error {
	return p.write(ctx)
}

// close stops the worker and writes whatever is still pending.
func (p *persister) close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.quit)
	})

	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.flush(ctx)
}
