// Package optimistic applies predicted writes to a local view before the
// store confirms them, and restores the exact prior view when a write fails.
package optimistic

import (
	"context"
	"errors"
	"sync"
	"time"
)

type State int

const (
	Idle State = iota
	Predicted
	Confirmed
	RolledBack
	Superseded
	Reconciling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Predicted:
		return "predicted"
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled_back"
	case Superseded:
		return "superseded"
	case Reconciling:
		return "reconciling"
	}
	return "unknown"
}

// ErrSuperseded is reported by a queued mutation whose keys were all taken
// over by newer mutations before its write was issued.
var ErrSuperseded = errors.New("mutation superseded by a newer one")

// DefaultWriteTimeout bounds every write issued by the controller.
const DefaultWriteTimeout = 5 * time.Second

// Op is one predicted change to a key: either a new value or a removal.
type Op[V any] struct {
	Value  V
	Delete bool
}

func Put[V any](v V) Op[V] { return Op[V]{Value: v} }

func Remove[V any]() Op[V] { return Op[V]{Delete: true} }

type WriteFunc func(ctx context.Context) error

type Options struct {
	WriteTimeout time.Duration
	// IsPartial classifies write errors that leave the store part-way done.
	// The prediction is then kept and the mutation settles as Reconciling.
	IsPartial func(error) bool
	// OnSettled runs after every write outcome except supersession, outside
	// the controller lock.
	OnSettled func(State, error)
}

type entry[V any] struct {
	value   V
	present bool
}

// Controller owns a local key/value view. Every mutation is applied to the
// view synchronously; writes for the same key are issued one at a time in
// mutation order.
type Controller[K comparable, V any] struct {
	mu       sync.Mutex
	opts     Options
	view     map[K]V
	latest   map[K]*Mutation[K, V]
	touched  map[K]uint64
	reads    map[K]map[uint64]context.CancelFunc
	clock    uint64
	readSeq  uint64
	inflight int
}

func New[K comparable, V any](opts Options) *Controller[K, V] {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	return &Controller[K, V]{
		opts:    opts,
		view:    make(map[K]V),
		latest:  make(map[K]*Mutation[K, V]),
		touched: make(map[K]uint64),
		reads:   make(map[K]map[uint64]context.CancelFunc),
	}
}

// Mutation tracks one Mutate call through its write.
type Mutation[K comparable, V any] struct {
	c     *Controller[K, V]
	patch map[K]Op[V]
	// base holds the entries this mutation restores on failure. A
	// predecessor that never lands rewrites it with its own base.
	base  map[K]entry[V]
	next  map[K]*Mutation[K, V]
	prev  []*Mutation[K, V]
	done  chan struct{}
	state State
	err   error
}

// Mutate applies patch to the view, cancels in-flight reads of the touched
// keys and schedules write behind any pending mutation on those keys.
func (c *Controller[K, V]) Mutate(ctx context.Context, patch map[K]Op[V], write WriteFunc) *Mutation[K, V] {
	c.mu.Lock()
	c.clock++
	m := &Mutation[K, V]{
		c:     c,
		patch: patch,
		base:  make(map[K]entry[V], len(patch)),
		next:  make(map[K]*Mutation[K, V]),
		done:  make(chan struct{}),
		state: Predicted,
	}
	for k, op := range patch {
		for _, cancel := range c.reads[k] {
			cancel()
		}
		m.base[k] = c.entryLocked(k)
		if p := c.latest[k]; p != nil {
			p.next[k] = m
			if !containsMutation(m.prev, p) {
				m.prev = append(m.prev, p)
			}
		}
		c.latest[k] = m
		c.applyLocked(k, op)
		c.touched[k] = c.clock
	}
	c.inflight++
	c.mu.Unlock()

	go m.run(ctx, write)
	return m
}

func (m *Mutation[K, V]) run(ctx context.Context, write WriteFunc) {
	c := m.c
	for _, p := range m.prev {
		<-p.done
	}

	c.mu.Lock()
	if !m.latestForAnyLocked() {
		for k, succ := range m.next {
			succ.base[k] = m.base[k]
		}
		m.settleLocked(Superseded, ErrSuperseded)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.WriteTimeout)
	err := write(wctx)
	cancel()

	c.mu.Lock()
	var state State
	switch {
	case err == nil:
		state = Confirmed
	case c.opts.IsPartial != nil && c.opts.IsPartial(err):
		state = Reconciling
	default:
		state = RolledBack
		c.clock++
		for k := range m.patch {
			if c.latest[k] == m {
				c.restoreLocked(k, m.base[k])
				c.touched[k] = c.clock
			} else if succ := m.next[k]; succ != nil {
				succ.base[k] = m.base[k]
			}
		}
	}
	m.settleLocked(state, err)
	c.mu.Unlock()

	if c.opts.OnSettled != nil {
		c.opts.OnSettled(state, err)
	}
}

func (m *Mutation[K, V]) latestForAnyLocked() bool {
	for k := range m.patch {
		if m.c.latest[k] == m {
			return true
		}
	}
	return false
}

func (m *Mutation[K, V]) settleLocked(state State, err error) {
	c := m.c
	for k := range m.patch {
		if c.latest[k] == m {
			delete(c.latest, k)
		}
	}
	m.state = state
	m.err = err
	c.inflight--
	close(m.done)
}

// Done is closed once the mutation has settled.
func (m *Mutation[K, V]) Done() <-chan struct{} { return m.done }

// Wait blocks until the mutation settles or ctx ends.
func (m *Mutation[K, V]) Wait(ctx context.Context) (State, error) {
	select {
	case <-m.done:
		return m.State(), m.Err()
	case <-ctx.Done():
		return m.State(), ctx.Err()
	}
}

func (m *Mutation[K, V]) State() State {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.state
}

func (m *Mutation[K, V]) Err() error {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	return m.err
}

// Load performs a cancellable authoritative read of one key. The result is
// applied only if no mutation touched the key since the read began; an
// overtaken read returns the local prediction instead.
func (c *Controller[K, V]) Load(ctx context.Context, key K, fetch func(ctx context.Context) (V, bool, error)) (V, bool, error) {
	c.mu.Lock()
	start := c.clock
	rctx, cancel := context.WithCancel(ctx)
	c.readSeq++
	id := c.readSeq
	if c.reads[key] == nil {
		c.reads[key] = make(map[uint64]context.CancelFunc)
	}
	c.reads[key][id] = cancel
	c.mu.Unlock()

	v, present, err := fetch(rctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.reads[key], id)
	if len(c.reads[key]) == 0 {
		delete(c.reads, key)
	}
	cancel()

	if c.maskedLocked(key, start) {
		cur := c.entryLocked(key)
		return cur.value, cur.present, nil
	}
	if err != nil {
		var zero V
		return zero, false, err
	}
	c.restoreLocked(key, entry[V]{value: v, present: present})
	return v, present, nil
}

// Sync replaces the view with an authoritative bulk read. Keys touched by a
// mutation after the read began, or with a mutation still pending, keep
// their local state.
func (c *Controller[K, V]) Sync(ctx context.Context, fetch func(ctx context.Context) (map[K]V, error)) error {
	c.mu.Lock()
	start := c.clock
	c.mu.Unlock()

	fresh, err := fetch(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.view {
		if _, ok := fresh[k]; !ok && !c.maskedLocked(k, start) {
			delete(c.view, k)
		}
	}
	for k, v := range fresh {
		if !c.maskedLocked(k, start) {
			c.view[k] = v
		}
	}
	return nil
}

func (c *Controller[K, V]) maskedLocked(k K, start uint64) bool {
	return c.latest[k] != nil || c.touched[k] > start
}

// Get returns the local view of one key.
func (c *Controller[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.view[k]
	return v, ok
}

// Snapshot copies the local view.
func (c *Controller[K, V]) Snapshot() map[K]V {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[K]V, len(c.view))
	for k, v := range c.view {
		out[k] = v
	}
	return out
}

// Pending returns the number of mutations not yet settled.
func (c *Controller[K, V]) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight
}

func (c *Controller[K, V]) entryLocked(k K) entry[V] {
	v, ok := c.view[k]
	return entry[V]{value: v, present: ok}
}

func (c *Controller[K, V]) applyLocked(k K, op Op[V]) {
	if op.Delete {
		delete(c.view, k)
		return
	}
	c.view[k] = op.Value
}

func (c *Controller[K, V]) restoreLocked(k K, e entry[V]) {
	if !e.present {
		delete(c.view, k)
		return
	}
	c.view[k] = e.value
}

func containsMutation[K comparable, V any](list []*Mutation[K, V], m *Mutation[K, V]) bool {
	for _, x := range list {
		if x == m {
			return true
		}
	}
	return false
}
