// Package session owns the request lifecycle of a query client:
// Idle -> Loading -> Success | Empty | Error.
//
// A Controller holds exactly one State. Every invocation takes a new sequence
// number; a resolution that is not the latest is dropped, so a slow response
// can never overwrite a newer Loading or Success state. Starting a new request
// cancels the context of the one it supersedes.
package session

import (
	"context"
	"slices"
	"sync"

	"apiquery/internal/logger"
	"apiquery/internal/model"
	"apiquery/internal/normalizer"
	"apiquery/internal/querybuilder"
	"apiquery/internal/transport"
)

type Controller struct {
	getter    transport.Getter
	baseURL   string
	rawPrefix string

	// emitMu orders state changes and their notifications.
	emitMu sync.Mutex

	mu      sync.Mutex
	state   State
	seq     uint64
	cancel  context.CancelFunc
	subs    map[int]func(State)
	nextSub int
}

type Option func(*Controller)

func WithBaseURL(base string) Option {
	return func(c *Controller) { c.baseURL = base }
}

func WithRawPrefix(prefix string) Option {
	return func(c *Controller) { c.rawPrefix = prefix }
}

func NewController(getter transport.Getter, opts ...Option) *Controller {
	c := &Controller{
		getter: getter,
		subs:   map[int]func(State){},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn for every state change. fn runs synchronously and
// must not call back into the Controller.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Submit builds the request for resource and suffix and executes it.
// A bad suffix moves straight to Error without touching the network.
func (c *Controller) Submit(ctx context.Context, resource model.Resource, suffix string) State {
	desc, err := querybuilder.Build(c.baseURL, resource, suffix)
	if err != nil {
		return c.reject(ctx, err)
	}
	return c.Execute(ctx, desc)
}

// SubmitRaw sends a raw query to the fixed raw-query prefix.
func (c *Controller) SubmitRaw(ctx context.Context, query string) State {
	desc, err := querybuilder.BuildRaw(c.rawPrefix, query)
	if err != nil {
		return c.reject(ctx, err)
	}
	return c.Execute(ctx, desc)
}

// Execute issues one GET for desc and returns the resulting terminal state.
// If a newer invocation started meanwhile, the result is dropped and the
// current state is returned instead.
func (c *Controller) Execute(ctx context.Context, desc model.RequestDescriptor) State {
	reqCtx, seq := c.begin(ctx, desc)
	defer c.release(seq)

	next := State{Seq: seq, Request: desc}
	v, err := c.getter.Get(reqCtx, desc.URL)
	if err != nil {
		next.Phase = Error
		next.Err = err
		return c.resolve(ctx, next)
	}

	table, err := normalizer.Normalize(v)
	switch {
	case err != nil:
		next.Phase = Error
		next.Err = err
	case table.Empty():
		next.Phase = Empty
	default:
		next.Phase = Success
		next.Table = table
	}
	return c.resolve(ctx, next)
}

func (c *Controller) begin(ctx context.Context, desc model.RequestDescriptor) (context.Context, uint64) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	reqCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	c.cancel = cancel
	c.state = State{Phase: Loading, Seq: c.seq, Request: desc}
	st, subs := c.state, c.subscribers()
	c.mu.Unlock()

	logger.FromContext(ctx).V(1).Info("query started", "seq", st.Seq, "url", desc.URL)
	notify(subs, st)
	return reqCtx, st.Seq
}

func (c *Controller) reject(ctx context.Context, err error) State {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.seq++
	c.state = State{Phase: Error, Seq: c.seq, Err: err}
	st, subs := c.state, c.subscribers()
	c.mu.Unlock()

	logger.FromContext(ctx).V(1).Info("query rejected", "seq", st.Seq, "error", err.Error())
	notify(subs, st)
	return st
}

func (c *Controller) resolve(ctx context.Context, next State) State {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	log := logger.FromContext(ctx).WithValues("seq", next.Seq)

	c.mu.Lock()
	if next.Seq != c.seq {
		current := c.state
		c.mu.Unlock()
		log.V(1).Info("stale result dropped", "phase", next.Phase.String(), "current", current.Seq)
		return current
	}
	c.state = next
	subs := c.subscribers()
	c.mu.Unlock()

	if next.Phase == Error {
		log.V(1).Info("query failed", "error", next.Err.Error())
	} else {
		log.V(1).Info("query finished", "phase", next.Phase.String())
	}
	notify(subs, next)
	return next
}

// release drops the cancel func of a finished request unless a newer one replaced it.
func (c *Controller) release(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq == c.seq && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// subscribers must be called with mu held.
func (c *Controller) subscribers() []func(State) {
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]func(State), 0, len(ids))
	for _, id := range ids {
		out = append(out, c.subs[id])
	}
	return out
}

func notify(subs []func(State), st State) {
	for _, fn := range subs {
		fn(st)
	}
}
