package transform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/jonathan/resume-editor/internal/document"
	"github.com/jonathan/resume-editor/internal/path"
	"github.com/jonathan/resume-editor/internal/tree"
)

// Func rewrites the value of one field. It may be slow and may fail.
type Func func(ctx context.Context, p path.Path, current any) (any, error)

// Target is the document a transform reads from and writes its result into: the
// canonical document or an open draft.
type Target interface {
	Lookup(p path.Path) (any, error)
	// Update replaces the target document with fn(doc) while holding the target's
	// lock. fn runs at most once and takes the coordinator's lock, so Update must never
	// be called with that lock held.
	Update(fn func(document.Document) (document.Document, error)) error
}

// errStale is returned from inside Update when the request stopped being pending
// before its result could be written.
var errStale = errors.New("transform no longer pending")

// Status is the lifecycle state of a request.
type Status string

// Request statuses
const (
	StatusPending    Status = "pending"
	StatusApplied    Status = "applied"
	StatusFailed     Status = "failed"
	StatusSuperseded Status = "superseded"
	StatusCancelled  Status = "cancelled"
)

// PendingTransform is a point-in-time view of one request.
type PendingTransform struct {
	FieldPath   string    `json:"field_path"`
	RequestID   uuid.UUID `json:"request_id"`
	Status      Status    `json:"status"`
	Err         error     `json:"-"`
	RequestedAt time.Time `json:"requested_at"`
	SettledAt   time.Time `json:"settled_at,omitempty"`
}

// Observer is notified once per request when it leaves the pending state.
type Observer func(PendingTransform)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithObserver registers fn to be called after each request settles.
func WithObserver(fn Observer) Option {
	return func(c *Coordinator) { c.observers = append(c.observers, fn) }
}

// WithMaxInFlight bounds how many transform functions run at once. Requests beyond
// the bound stay pending until a slot frees up.
func WithMaxInFlight(n int64) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.sem = semaphore.NewWeighted(n)
		}
	}
}

// WithLogger sets the logger used for settle events.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Coordinator tracks at most one pending transform per field path. A newer request for
// a path supersedes the older one, whose result is then discarded when it arrives, so an
// older in-flight rewrite can never overwrite a newer one. Cancellation is logical only:
// the transform function keeps running and its result is ignored.
type Coordinator struct {
	// gate orders edits against transforms: Request and result writes hold it for
	// reading, Edit for writing. It is taken before any target lock, and mu after.
	gate sync.RWMutex

	mu        sync.Mutex
	latest    map[string]*Handle
	sem       *semaphore.Weighted
	observers []Observer
	logger    *zap.Logger
	wg        sync.WaitGroup
}

// New returns a Coordinator with no pending requests.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		latest: make(map[string]*Handle),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request starts fn for the field at p and returns without waiting for it. The current
// value is read from target now; the result is written back to target only if this is
// still the pending request for p when fn returns. No Edit runs between reading the
// value and registering the request. Structural errors reading the current
// value are returned immediately.
func (c *Coordinator) Request(ctx context.Context, p path.Path, target Target, fn Func) (*Handle, error) {
	if target == nil {
		return nil, fmt.Errorf("transform target is required")
	}
	if fn == nil {
		return nil, fmt.Errorf("transform function is required")
	}

	c.gate.RLock()
	current, err := target.Lookup(p)
	if err != nil {
		c.gate.RUnlock()
		return nil, err
	}

	h := &Handle{
		id:          uuid.New(),
		path:        p,
		target:      target,
		coord:       c,
		status:      StatusPending,
		requestedAt: time.Now(),
		done:        make(chan struct{}),
	}
	key := p.String()

	c.mu.Lock()
	var superseded []PendingTransform
	if prev := c.latest[key]; prev != nil && prev.status == StatusPending {
		prev.finish(StatusSuperseded, nil)
		superseded = append(superseded, prev.snapshot())
	}
	c.latest[key] = h
	c.wg.Add(1)
	c.mu.Unlock()
	c.gate.RUnlock()

	c.notify(superseded...)
	c.logger.Debug("transform requested",
		zap.String("path", key),
		zap.String("request_id", h.id.String()),
	)

	go c.run(ctx, h, current, fn)
	return h, nil
}

func (c *Coordinator) run(ctx context.Context, h *Handle, current any, fn Func) {
	defer c.wg.Done()

	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			c.settle(h, nil, err)
			return
		}
		defer c.sem.Release(1)
	}

	value, err := invoke(ctx, h.path, current, fn)
	c.settle(h, value, err)
}

func invoke(ctx context.Context, p path.Path, current any, fn Func) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transform panicked: %v", r)
		}
	}()
	return fn(ctx, p, current)
}

// settle applies or discards the outcome of h. The pending check and the write happen
// together under the target's lock, so a request cancelled or superseded in the
// meantime never writes. Observers and target side effects run with no coordinator
// lock held.
func (c *Coordinator) settle(h *Handle, value any, err error) {
	var applyErr error
	if err == nil {
		c.gate.RLock()
		applyErr = h.target.Update(func(doc document.Document) (document.Document, error) {
			next, setErr := tree.SetAt(doc, h.path, value)
			c.mu.Lock()
			defer c.mu.Unlock()
			if h.status != StatusPending {
				return nil, errStale
			}
			if setErr != nil {
				return nil, setErr
			}
			h.finish(StatusApplied, nil)
			return next, nil
		})
		c.gate.RUnlock()
	}

	c.mu.Lock()
	switch {
	case err == nil && applyErr == nil:
		// applied inside Update
	case h.status != StatusPending:
		status := h.status
		c.mu.Unlock()
		c.logger.Debug("transform result discarded",
			zap.String("path", h.path.String()),
			zap.String("request_id", h.id.String()),
			zap.String("status", string(status)),
		)
		return
	case err != nil:
		h.finish(StatusFailed, &FailedError{Path: h.path.String(), RequestID: h.id, Cause: err})
	case errors.Is(applyErr, ErrTargetClosed):
		h.finish(StatusCancelled, nil)
	default:
		h.finish(StatusFailed, applyErr)
	}
	snap := h.snapshot()
	c.mu.Unlock()

	if snap.Err != nil {
		c.logger.Warn("transform failed",
			zap.String("path", snap.FieldPath),
			zap.String("request_id", snap.RequestID.String()),
			zap.Error(snap.Err),
		)
	} else {
		c.logger.Debug("transform settled",
			zap.String("path", snap.FieldPath),
			zap.String("request_id", snap.RequestID.String()),
			zap.String("status", string(snap.Status)),
		)
	}
	c.notify(snap)
}

func (c *Coordinator) notify(events ...PendingTransform) {
	for _, ev := range events {
		for _, obs := range c.observers {
			obs(ev)
		}
	}
}

// Pending reports whether a transform for p is in flight. UIs use it as a per-field
// busy indicator.
func (c *Coordinator) Pending(p path.Path) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.latest[p.String()]
	return h != nil && h.status == StatusPending
}

// Lookup returns the most recent request for p, whatever its status.
func (c *Coordinator) Lookup(p path.Path) (PendingTransform, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.latest[p.String()]
	if !ok {
		return PendingTransform{}, false
	}
	return h.snapshot(), true
}

// PendingPaths lists the paths with a transform in flight.
func (c *Coordinator) PendingPaths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.latest))
	for key, h := range c.latest {
		if h.status == StatusPending {
			out = append(out, key)
		}
	}
	return out
}

// Cancel logically cancels the pending transform for p, if any.
func (c *Coordinator) Cancel(p path.Path) bool {
	return c.cancelWhere(func(h *Handle) bool { return h.path.Equal(p) }, false) > 0
}

// CancelUnder cancels pending transforms for prefix or any path below it. A nil target
// matches every target; otherwise only transforms writing into target are cancelled.
func (c *Coordinator) CancelUnder(prefix path.Path, target Target) int {
	return c.cancelWhere(func(h *Handle) bool {
		return h.path.HasPrefix(prefix) && (target == nil || h.target == target)
	}, false)
}

// Detach cancels every pending transform that writes into target. Call it when the
// target stops accepting updates, such as when a draft session closes.
func (c *Coordinator) Detach(target Target) int {
	return c.cancelWhere(func(h *Handle) bool { return h.target == target }, false)
}

// Reset cancels everything pending and forgets all requests. Call it when navigating
// away from the document.
func (c *Coordinator) Reset() int {
	return c.cancelWhere(func(*Handle) bool { return true }, true)
}

// Edit runs apply while no request can register and no result can be written, so an
// edit and the cancellations it causes look atomic to every transform. apply returns
// the target it edited; pending transforms into that target at or below prefix are
// then cancelled. A nil target or an error cancels nothing.
func (c *Coordinator) Edit(prefix path.Path, apply func() (Target, error)) (int, error) {
	cancelled, err := c.edit(prefix, apply)
	c.notify(cancelled...)
	return len(cancelled), err
}

func (c *Coordinator) edit(prefix path.Path, apply func() (Target, error)) ([]PendingTransform, error) {
	c.gate.Lock()
	defer c.gate.Unlock()
	target, err := apply()
	if err != nil || target == nil {
		return nil, err
	}
	return c.collect(func(h *Handle) bool {
		return h.target == target && h.path.HasPrefix(prefix)
	}, false), nil
}

func (c *Coordinator) cancelWhere(match func(*Handle) bool, forget bool) int {
	cancelled := c.collect(match, forget)
	c.notify(cancelled...)
	return len(cancelled)
}

// collect cancels the pending handles matching match and returns their snapshots.
func (c *Coordinator) collect(match func(*Handle) bool, forget bool) []PendingTransform {
	c.mu.Lock()
	var cancelled []PendingTransform
	for _, h := range c.latest {
		if h.status == StatusPending && match(h) {
			h.finish(StatusCancelled, nil)
			cancelled = append(cancelled, h.snapshot())
		}
	}
	if forget {
		c.latest = make(map[string]*Handle)
	}
	c.mu.Unlock()
	return cancelled
}

// Wait blocks until every transform function started so far has returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Handle tracks one request.
type Handle struct {
	id          uuid.UUID
	path        path.Path
	target      Target
	coord       *Coordinator
	requestedAt time.Time
	done        chan struct{}

	// guarded by coord.mu
	status    Status
	err       error
	settledAt time.Time
}

// finish moves h out of pending. Caller holds coord.mu.
func (h *Handle) finish(status Status, err error) {
	h.status = status
	h.err = err
	h.settledAt = time.Now()
	close(h.done)
}

// snapshot copies h's state. Caller holds coord.mu.
func (h *Handle) snapshot() PendingTransform {
	return PendingTransform{
		FieldPath:   h.path.String(),
		RequestID:   h.id,
		Status:      h.status,
		Err:         h.err,
		RequestedAt: h.requestedAt,
		SettledAt:   h.settledAt,
	}
}

// ID returns the request id.
func (h *Handle) ID() uuid.UUID { return h.id }

// Path returns the field being transformed.
func (h *Handle) Path() path.Path { return h.path }

// Done is closed when the request leaves the pending state.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Status returns the current status.
func (h *Handle) Status() Status {
	h.coord.mu.Lock()
	defer h.coord.mu.Unlock()
	return h.status
}

// Err returns the failure, if the request failed.
func (h *Handle) Err() error {
	h.coord.mu.Lock()
	defer h.coord.mu.Unlock()
	return h.err
}

// Snapshot returns the current state of the request.
func (h *Handle) Snapshot() PendingTransform {
	h.coord.mu.Lock()
	defer h.coord.mu.Unlock()
	return h.snapshot()
}

// Wait blocks until the request settles or ctx is done.
func (h *Handle) Wait(ctx context.Context) (PendingTransform, error) {
	select {
	case <-h.done:
		return h.Snapshot(), nil
	case <-ctx.Done():
		return h.Snapshot(), ctx.Err()
	}
}
