package input

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/terrasketch/drawtool/pkg/core"
)

func posXY(x, y float64) core.ScreenPosition {
	return core.ScreenPosition{X: x, Y: y}
}

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

func TestDispatcher_DeliversToBoundHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Event
	d.Bind(PrimaryClick, func(e Event) error {
		got = e
		return nil
	})

	err := d.Dispatch(Event{Kind: PrimaryClick, Position: posXY(10, 20)})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got.Position.X != 10 || got.Position.Y != 20 {
		t.Errorf("handler received %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("expected dispatcher to stamp the event")
	}
}

func TestDispatcher_OnlyMatchingKind(t *testing.T) {
	d, _ := newTestDispatcher(t)

	calls := 0
	d.Bind(SecondaryClick, func(e Event) error {
		calls++
		return nil
	})

	_ = d.Dispatch(Event{Kind: PrimaryClick})
	_ = d.Dispatch(Event{Kind: PointerMove})
	if calls != 0 {
		t.Errorf("expected 0 calls, got %d", calls)
	}

	_ = d.Dispatch(Event{Kind: SecondaryClick})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDispatcher_UnknownKind(t *testing.T) {
	d, _ := newTestDispatcher(t)

	err := d.Dispatch(Event{Kind: Kind(42)})
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestDispatcher_NoBindingIsNotAnError(t *testing.T) {
	d, _ := newTestDispatcher(t)

	if err := d.Dispatch(Event{Kind: PointerMove}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBinding_Unbind(t *testing.T) {
	d, _ := newTestDispatcher(t)

	calls := 0
	b := d.Bind(PrimaryClick, func(e Event) error {
		calls++
		return nil
	})

	_ = d.Dispatch(Event{Kind: PrimaryClick})
	b.Unbind()
	b.Unbind() // idempotent
	_ = d.Dispatch(Event{Kind: PrimaryClick})

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if b.Active() {
		t.Error("binding should be inactive")
	}
	if d.Len(PrimaryClick) != 0 {
		t.Errorf("expected no bindings, got %d", d.Len(PrimaryClick))
	}
}

func TestDispatcher_BindingOrder(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var order []string
	d.Bind(PrimaryClick, func(e Event) error { order = append(order, "first"); return nil })
	d.Bind(PrimaryClick, func(e Event) error { order = append(order, "second"); return nil })

	_ = d.Dispatch(Event{Kind: PrimaryClick})

	if strings.Join(order, ",") != "first,second" {
		t.Errorf("unexpected order: %v", order)
	}
}

func TestDispatcher_UnbindDuringDispatchSkipsLaterHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var second *Binding
	secondCalled := false
	d.Bind(PrimaryClick, func(e Event) error {
		second.Unbind()
		return nil
	})
	second = d.Bind(PrimaryClick, func(e Event) error {
		secondCalled = true
		return nil
	})

	_ = d.Dispatch(Event{Kind: PrimaryClick})

	if secondCalled {
		t.Error("handler unbound mid-dispatch should not run")
	}
}

func TestDispatcher_ReturnsFirstError(t *testing.T) {
	d, _ := newTestDispatcher(t)

	errA := errors.New("a")
	ranSecond := false
	d.Bind(PrimaryClick, func(e Event) error { return errA })
	d.Bind(PrimaryClick, func(e Event) error { ranSecond = true; return errors.New("b") })

	err := d.Dispatch(Event{Kind: PrimaryClick})
	if !errors.Is(err, errA) {
		t.Errorf("expected first error, got %v", err)
	}
	if !ranSecond {
		t.Error("later handlers should still run")
	}
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Bind(PointerMove, func(e Event) error { return nil }, Logged(), Owner("session"))
	d.Bind(PrimaryClick, func(e Event) error { return errors.New("boom") }, Logged())

	_ = d.Dispatch(Event{Kind: PointerMove})
	_ = d.Dispatch(Event{Kind: PrimaryClick})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	joined := strings.Join(logger.messages, "\n")
	if !strings.Contains(joined, "DEBUG: handling event") {
		t.Errorf("expected debug log, got %s", joined)
	}
	if !strings.Contains(joined, "session") {
		t.Errorf("expected owner in log, got %s", joined)
	}
	if !strings.Contains(joined, "ERROR: event failed") {
		t.Errorf("expected error log, got %s", joined)
	}
}

func TestDispatcher_SerializesHandlers(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	d.Bind(PointerMove, func(e Event) error {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Dispatch(Event{Kind: PointerMove})
		}()
	}
	wg.Wait()

	if maxInFlight != 1 {
		t.Errorf("expected handlers to run one at a time, saw %d concurrently", maxInFlight)
	}
}

func TestKind_String(t *testing.T) {
	if PrimaryClick.String() != "primary_click" || SecondaryClick.String() != "secondary_click" || PointerMove.String() != "pointer_move" {
		t.Error("unexpected kind names")
	}
}
