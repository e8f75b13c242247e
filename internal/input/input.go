// Package input routes host pointer events to the handlers bound by a drawing session.
package input

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/terrasketch/drawtool/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrUnknownKind is returned when dispatching an event of an unsupported kind.
var ErrUnknownKind = errors.New("unknown event kind")

// Kind is a pointer event type.
type Kind int

const (
	PrimaryClick Kind = iota
	SecondaryClick
	PointerMove
)

func (k Kind) String() string {
	switch k {
	case PrimaryClick:
		return "primary_click"
	case SecondaryClick:
		return "secondary_click"
	case PointerMove:
		return "pointer_move"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is a pointer event delivered by the host.
type Event struct {
	Kind      Kind
	Position  core.ScreenPosition
	Timestamp time.Time
}

// HandlerFunc processes an event.
type HandlerFunc func(Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler binding.
type Option func(*config)

type config struct {
	logged bool
	owner  string
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Owner tags the binding with the name of the component that holds it.
func Owner(name string) Option {
	return func(c *config) {
		c.owner = name
	}
}

// Binding is a subscription handle. Unbind is idempotent.
type Binding struct {
	kind    Kind
	owner   string
	handler HandlerFunc
	active  atomic.Bool
	d       *Dispatcher
}

// Kind returns the event kind the binding listens to.
func (b *Binding) Kind() Kind { return b.kind }

// Active reports whether the binding still receives events.
func (b *Binding) Active() bool { return b.active.Load() }

// Unbind stops delivery to the handler.
func (b *Binding) Unbind() {
	if !b.active.Swap(false) {
		return
	}
	b.d.remove(b)
}

// Dispatcher delivers events to bound handlers one at a time, in binding order.
type Dispatcher struct {
	logger Logger

	// dispatchMu serializes handler execution: all callbacks run as if on one thread.
	dispatchMu sync.Mutex

	mu       sync.RWMutex
	bindings map[Kind][]*Binding

	// OTEL metrics
	dispatched metric.Int64Counter
	ignored    metric.Int64Counter
	bound      metric.Int64ObservableGauge
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		logger:   logger,
		bindings: make(map[Kind][]*Binding),
	}

	m := meter()

	var err error

	d.dispatched, err = m.Int64Counter(
		"input.events.dispatched",
		metric.WithDescription("Total pointer events delivered to at least one handler"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dispatched counter: %w", err)
	}

	d.ignored, err = m.Int64Counter(
		"input.events.ignored",
		metric.WithDescription("Total pointer events with no bound handler"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ignored counter: %w", err)
	}

	d.bound, err = m.Int64ObservableGauge(
		"input.bindings.active",
		metric.WithDescription("Current number of active bindings"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bindings gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for kind, list := range d.bindings {
				o.ObserveInt64(d.bound, int64(len(list)),
					metric.WithAttributes(attribute.String("kind", kind.String())))
			}
			return nil
		},
		d.bound,
	)
	if err != nil {
		return nil, fmt.Errorf("registering bindings callback: %w", err)
	}

	return d, nil
}

// Bind subscribes h to events of the given kind and returns its handle.
func (d *Dispatcher) Bind(kind Kind, h HandlerFunc, opts ...Option) *Binding {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.logged {
		handler = d.withLogging(kind, cfg.owner, handler)
	}

	b := &Binding{kind: kind, owner: cfg.owner, handler: handler, d: d}
	b.active.Store(true)

	d.mu.Lock()
	d.bindings[kind] = append(d.bindings[kind], b)
	d.mu.Unlock()

	return b
}

func (d *Dispatcher) remove(b *Binding) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := d.bindings[b.kind]
	for i, other := range list {
		if other == b {
			d.bindings[b.kind] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Dispatch delivers the event to every active binding of its kind. A handler unbound
// by an earlier handler of the same dispatch is skipped. The first handler error is
// returned after all handlers have run.
func (d *Dispatcher) Dispatch(e Event) error {
	if e.Kind < PrimaryClick || e.Kind > PointerMove {
		return fmt.Errorf("%w: %d", ErrUnknownKind, int(e.Kind))
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()

	d.mu.RLock()
	list := append([]*Binding(nil), d.bindings[e.Kind]...)
	d.mu.RUnlock()

	kindAttr := metric.WithAttributes(attribute.String("kind", e.Kind.String()))
	if len(list) == 0 {
		d.ignored.Add(context.Background(), 1, kindAttr)
		return nil
	}

	var firstErr error
	for _, b := range list {
		if !b.Active() {
			continue
		}
		if err := b.handler(e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.dispatched.Add(context.Background(), 1, kindAttr)

	return firstErr
}

// Len returns the number of active bindings for kind.
func (d *Dispatcher) Len(kind Kind) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.bindings[kind])
}

func (d *Dispatcher) withLogging(kind Kind, owner string, h HandlerFunc) HandlerFunc {
	return func(e Event) error {
		start := time.Now()
		d.logger.Debug("handling event", "kind", kind.String(), "owner", owner, "x", e.Position.X, "y", e.Position.Y)

		err := h(e)

		if err != nil {
			d.logger.Error("event failed", "kind", kind.String(), "owner", owner, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "kind", kind.String(), "owner", owner, "duration", time.Since(start))
		}

		return err
	}
}
