// Package debounce collapses bursts of writes per key into a single flush
// carrying the last value, sent once the key has been quiet for a fixed
// window.
package debounce

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrClosed = errors.New("coalescer is closed")

// DefaultFlushTimeout bounds a single flush call.
const DefaultFlushTimeout = 30 * time.Second

// FlushFunc receives the last value pushed for key.
type FlushFunc[K comparable, V any] func(ctx context.Context, key K, value V)

type entry[V any] struct {
	timer   *time.Timer
	gen     uint64
	value   V
	pending bool
	running bool
	// the timer fired while a flush for the key was in flight
	dirty bool
}

// Coalescer schedules a flush per key. Pushing again before the window
// elapses cancels the scheduled flush and starts the window over. Flushes
// for the same key never overlap; different keys flush independently.
type Coalescer[K comparable, V any] struct {
	wait    time.Duration
	timeout time.Duration
	flush   FlushFunc[K, V]

	mu      sync.Mutex
	entries map[K]*entry[V]
	// seq hands out generations; it never resets, so a timer from a
	// dropped entry cannot match a newer entry for the same key.
	seq    uint64
	closed bool
	wg     sync.WaitGroup
}

func (c *Coalescer[K, V]) next() uint64 {
	c.seq++
	return c.seq
}

type Option func(*options)

type options struct {
	timeout time.Duration
}

// WithFlushTimeout overrides DefaultFlushTimeout.
func WithFlushTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func New[K comparable, V any](wait time.Duration, flush FlushFunc[K, V], opts ...Option) *Coalescer[K, V] {
	o := options{timeout: DefaultFlushTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &Coalescer[K, V]{
		wait:    wait,
		timeout: o.timeout,
		flush:   flush,
		entries: make(map[K]*entry[V]),
	}
}

// Push records value as the latest for key and (re)starts its window.
func (c *Coalescer[K, V]) Push(key K, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	e, ok := c.entries[key]
	if !ok {
		e = &entry[V]{}
		c.entries[key] = e
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen = c.next()
	e.value = value
	e.pending = true

	gen := e.gen
	e.timer = time.AfterFunc(c.wait, func() { c.fire(key, gen) })
	return nil
}

// Pending returns the value waiting for key, if any.
func (c *Coalescer[K, V]) Pending(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.pending {
		return e.value, true
	}
	var zero V
	return zero, false
}

// Cancel drops the value waiting for key. A flush already in flight is not
// interrupted.
func (c *Coalescer[K, V]) Cancel(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen = c.next()
	e.pending = false
	e.dirty = false
	if !e.running {
		delete(c.entries, key)
	}
}

func (c *Coalescer[K, V]) fire(key K, gen uint64) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.gen != gen || !e.pending {
		c.mu.Unlock()
		return
	}
	if e.running {
		e.dirty = true
		c.mu.Unlock()
		return
	}
	e.running = true
	c.wg.Add(1)
	c.mu.Unlock()

	c.drain(key, e)
}

// drain flushes e until nothing that is due remains. Called with
// e.running set and one wg slot held.
func (c *Coalescer[K, V]) drain(key K, e *entry[V]) {
	defer c.wg.Done()

	c.mu.Lock()
	for {
		value := e.value
		e.pending = false
		e.dirty = false
		c.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		c.flush(ctx, key, value)
		cancel()

		c.mu.Lock()
		if e.pending && e.dirty {
			continue
		}
		break
	}
	e.running = false
	if !e.pending && c.entries[key] == e {
		delete(c.entries, key)
	}
	c.mu.Unlock()
}

// Close stops accepting values, flushes every pending value immediately and
// waits for in-flight flushes or ctx, whichever comes first.
func (c *Coalescer[K, V]) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	for key, e := range c.entries {
		if !e.pending {
			continue
		}
		if e.timer != nil {
			e.timer.Stop()
		}
		e.gen = c.next()
		if e.running {
			e.dirty = true
			continue
		}
		e.running = true
		c.wg.Add(1)
		go c.drain(key, e)
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
