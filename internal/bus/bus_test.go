package bus_test

import (
	"context"
	"testing"
	"time"

	"github.com/phonebt/phonebt/internal/bus"
)

func TestEmitReachesAllSubscribers(t *testing.T) {
	b := bus.New(4)
	s1 := b.Subscribe(context.Background())
	s2 := b.Subscribe(context.Background())
	defer s1.Close()
	defer s2.Close()

	b.Emit(bus.Event{Kind: bus.EventConnected})

	for _, s := range []*bus.Subscription{s1, s2} {
		select {
		case ev := <-s.Events():
			if ev.Kind != bus.EventConnected {
				t.Errorf("got %v, want connected", ev.Kind)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestSubscriberSeesOnlyEventsAfterSubscription(t *testing.T) {
	b := bus.New(4)
	b.Emit(bus.Event{Kind: bus.EventConnected})

	s := b.Subscribe(context.Background())
	defer s.Close()
	b.Emit(bus.Event{Kind: bus.EventCallEnded})

	select {
	case ev := <-s.Events():
		if ev.Kind != bus.EventCallEnded {
			t.Errorf("got %v, want callEnded (not the pre-subscription event)", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}

	select {
	case ev := <-s.Events():
		t.Fatalf("unexpected extra event %v", ev.Kind)
	default:
	}
}

func TestDropOldestOnFullQueue(t *testing.T) {
	b := bus.New(2)
	s := b.Subscribe(context.Background())
	defer s.Close()

	b.Emit(bus.Event{Kind: bus.EventSignalStrength, Signal: 1})
	b.Emit(bus.Event{Kind: bus.EventSignalStrength, Signal: 2})
	b.Emit(bus.Event{Kind: bus.EventSignalStrength, Signal: 3})

	if d := s.Dropped(); d != 1 {
		t.Fatalf("dropped = %d, want 1", d)
	}

	first := <-s.Events()
	if first.Signal != 2 {
		t.Errorf("oldest surviving event = %d, want 2 (1 should have been dropped)", first.Signal)
	}
	second := <-s.Events()
	if second.Signal != 3 {
		t.Errorf("next event = %d, want 3", second.Signal)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := bus.New(4)
	s := b.Subscribe(context.Background())
	s.Close()

	b.Emit(bus.Event{Kind: bus.EventConnected})

	select {
	case ev := <-s.Events():
		t.Fatalf("unexpected event after Close: %v", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscriptionClosedByContext(t *testing.T) {
	b := bus.New(4)
	ctx, cancel := context.WithCancel(context.Background())
	s := b.Subscribe(ctx)
	cancel()

	// Give the watchdog goroutine a moment to observe cancellation and
	// remove the subscriber; once it has, an Emit no longer reaches s.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		b.Emit(bus.Event{Kind: bus.EventConnected})
		select {
		case <-s.Events():
		default:
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("subscription still receiving events after its context was cancelled")
}

func TestConcurrentEmit(t *testing.T) {
	b := bus.New(256)
	s := b.Subscribe(context.Background())
	defer s.Close()

	const n = 100
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			for j := 0; j < n; j++ {
				b.Emit(bus.Event{Kind: bus.EventSignalStrength, Signal: j})
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	count := 0
	for {
		select {
		case <-s.Events():
			count++
		default:
			if count+int(s.Dropped()) != 4*n {
				t.Errorf("received %d + dropped %d != emitted %d", count, s.Dropped(), 4*n)
			}
			return
		}
	}
}
