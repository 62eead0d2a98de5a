package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestEmitReachesAllHandlers(t *testing.T) {
	bus := NewBus()

	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		bus.Subscribe(EventOccupancy, "test.handler", func(ctx context.Context, e Event) error {
			calls.Add(1)
			return nil
		})
	}

	bus.Emit(context.Background(), Event{Type: EventOccupancy, Source: "test"})
	bus.Stop()

	if got := calls.Load(); got != 3 {
		t.Errorf("handlers called %d times, want 3", got)
	}
}

func TestEmitFillsTimestamp(t *testing.T) {
	bus := NewBus()

	got := make(chan time.Time, 1)
	bus.Subscribe(EventActivation, "test.timestamp", func(ctx context.Context, e Event) error {
		got <- e.Timestamp
		return nil
	})

	before := time.Now()
	bus.Emit(context.Background(), Event{Type: EventActivation})
	bus.Stop()

	ts := <-got
	if ts.Before(before) {
		t.Errorf("timestamp %v not filled in", ts)
	}
}

func TestHandlerPanicDoesNotSpread(t *testing.T) {
	bus := NewBus()

	bus.Subscribe(EventShutdown, "test.panics", func(ctx context.Context, e Event) error {
		panic("boom")
	})
	called := make(chan struct{}, 1)
	bus.Subscribe(EventShutdown, "test.survives", func(ctx context.Context, e Event) error {
		called <- struct{}{}
		return nil
	})

	bus.Emit(context.Background(), Event{Type: EventShutdown})
	bus.Stop()

	select {
	case <-called:
	default:
		t.Error("second handler never ran")
	}
}

func TestEmitAfterStopIsDropped(t *testing.T) {
	bus := NewBus()

	bus.Subscribe(EventActivation, "test.late", func(ctx context.Context, e Event) error {
		t.Error("handler ran after Stop")
		return nil
	})

	bus.Stop()
	bus.Emit(context.Background(), Event{Type: EventActivation})
	time.Sleep(20 * time.Millisecond)
}

func TestHandlerErrorIsIsolated(t *testing.T) {
	bus := NewBus()

	bus.Subscribe(EventOccupancy, "test.fails", func(ctx context.Context, e Event) error {
		return errors.New("handler failure")
	})
	called := make(chan struct{}, 1)
	bus.Subscribe(EventOccupancy, "test.ok", func(ctx context.Context, e Event) error {
		called <- struct{}{}
		return nil
	})

	bus.Emit(context.Background(), Event{Type: EventOccupancy})
	bus.Stop()

	select {
	case <-called:
	default:
		t.Error("healthy handler never ran")
	}
}

func TestHandlerCount(t *testing.T) {
	bus := NewBus()
	if n := bus.HandlerCount(EventOccupancy); n != 0 {
		t.Errorf("HandlerCount = %d, want 0", n)
	}
	bus.Subscribe(EventOccupancy, "a", func(ctx context.Context, e Event) error { return nil })
	bus.Subscribe(EventOccupancy, "b", func(ctx context.Context, e Event) error { return nil })
	if n := bus.HandlerCount(EventOccupancy); n != 2 {
		t.Errorf("HandlerCount = %d, want 2", n)
	}
}
