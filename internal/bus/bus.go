// Package bus implements the HFP engine's multi-consumer event fan-out:
// every subscriber gets its own lazy, finite sequence of events seen from
// its subscription point onward, in global emission order. A slow
// subscriber never blocks emission — its oldest buffered event is
// dropped and a counter is incremented instead.
package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// EventKind discriminates the tagged Event union.
type EventKind string

const (
	// EventConnecting marks the start of an SLC attempt; it is emitted by
	// the engine itself, not translated from a transport callback.
	EventConnecting        EventKind = "connecting"
	EventConnected         EventKind = "connected"
	EventDisconnected      EventKind = "disconnected"
	EventConnectFailed     EventKind = "connectFailed"
	EventIncomingCall      EventKind = "incomingCall"
	EventCallAnswered      EventKind = "callAnswered"
	EventCallEnded         EventKind = "callEnded"
	EventCallDialing       EventKind = "callDialing"
	EventCallAlerting      EventKind = "callAlerting"
	EventCallActive        EventKind = "callActive"
	EventCallHeld          EventKind = "callHeld"
	EventCallWaiting       EventKind = "callWaiting"
	EventSCOConnected      EventKind = "scoConnected"
	EventSCODisconnected   EventKind = "scoDisconnected"
	EventSignalStrength    EventKind = "signalStrength"
	EventBatteryLevel      EventKind = "batteryLevel"
	EventServiceAvailable  EventKind = "serviceAvailable"
	EventRoaming           EventKind = "roaming"
	EventCallSetup         EventKind = "callSetup"
	EventCallIndicator     EventKind = "callIndicator"
	EventCallHeldIndicator EventKind = "callHeldIndicator"
	EventCallerID          EventKind = "callerID"
	EventOperatorName      EventKind = "operatorName"
	EventCallerSpeech      EventKind = "callerSpeech"
	EventError             EventKind = "error"
	// EventNarration carries a human-readable description injected by an
	// upstream controller (controller.Adapter.InjectEvent); it never
	// changes HFPState.
	EventNarration EventKind = "narration"
	// EventCallListRecord carries one decoded +CLCC: record, synthesised
	// by the Protocol Engine in response to requestCallList. It
	// reconciles state.HFPState's active call against the AG's own
	// authoritative call-list snapshot.
	EventCallListRecord EventKind = "callListRecord"
)

// CLCC direction codes, as they appear on the wire (and in
// Event.CLCCDir): 0 outgoing, 1 incoming.
const (
	CLCCDirOutgoing = 0
	CLCCDirIncoming = 1
)

// Event is a tagged union over everything the HFP engine can report.
// Only the fields relevant to Kind are populated; the rest are zero.
type Event struct {
	ID   string
	At   time.Time
	Kind EventKind

	Err error // disconnected/connectFailed/error

	Number  string // incomingCall/callDialing/callerID
	Name    string // callerID
	HasName bool

	Setup  int  // callSetup: 0..3
	Hold   int  // callHeldIndicator: 0..2
	Active bool // callIndicator

	Signal    int    // signalStrength
	Battery   int    // batteryLevel
	Available bool   // serviceAvailable
	Roaming   bool   // roaming
	Operator  string // operatorName

	Text string // callerSpeech / narration / error message

	CLCCIndex int // callListRecord
	CLCCDir   int // callListRecord: CLCCDirOutgoing/CLCCDirIncoming
	CLCCStat  int // callListRecord: CLCC status code 0..5
}

// subscriber is one consumer's bounded queue plus its drop counter.
type subscriber struct {
	id      string
	ch      chan Event
	dropped atomic.Uint64
	closed  atomic.Bool
}

// Subscription is the handle a consumer holds; it is a lazy finite
// sequence of Events, consumed via Events(), abandoned via Close().
type Subscription struct {
	sub *subscriber
	bus *Bus
}

// Events returns the read-only channel of delivered events.
func (s *Subscription) Events() <-chan Event { return s.sub.ch }

// Dropped reports how many events this subscriber lost to backpressure.
func (s *Subscription) Dropped() uint64 { return s.sub.dropped.Load() }

// Close unsubscribes atomically; subsequent emissions skip this
// subscriber. Safe to call more than once.
func (s *Subscription) Close() {
	if s.sub.closed.CompareAndSwap(false, true) {
		s.bus.remove(s.sub)
	}
}

// Bus is a multi-producer, multi-consumer broadcaster with a single
// serialisation point for emission ordering.
type Bus struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
	depth       int
}

// DefaultDepth is the per-subscriber buffered-channel depth used when a
// Bus is constructed with New(0).
const DefaultDepth = 64

// New returns a Bus whose subscriber queues hold up to depth events each
// (DefaultDepth if depth <= 0).
func New(depth int) *Bus {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Bus{subscribers: make(map[string]*subscriber), depth: depth}
}

// Subscribe registers a new consumer and returns its Subscription. The
// provided ctx, if cancelled, closes the subscription automatically; a
// nil ctx ties the subscription's lifetime to Close alone.
func (b *Bus) Subscribe(ctx context.Context) *Subscription {
	sub := &subscriber{id: uuid.NewString(), ch: make(chan Event, b.depth)}

	b.mu.Lock()
	b.subscribers[sub.id] = sub
	b.mu.Unlock()

	s := &Subscription{sub: sub, bus: b}
	if ctx != nil {
		go func() {
			<-ctx.Done()
			s.Close()
		}()
	}
	return s
}

func (b *Bus) remove(sub *subscriber) {
	b.mu.Lock()
	delete(b.subscribers, sub.id)
	b.mu.Unlock()
}

// Emit delivers ev to every subscriber currently registered, stamping ID
// and At if unset. Delivery never blocks: a full subscriber queue drops
// its oldest entry and increments that subscriber's drop counter. The
// mutex is held across the whole fan-out, so concurrent Emit calls are
// serialised and every subscriber observes the same global order; no
// send under the lock ever blocks.
func (b *Bus) Emit(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subscribers {
		deliver(sub, ev)
	}
}

func deliver(sub *subscriber, ev Event) {
	for {
		select {
		case sub.ch <- ev:
			return
		default:
		}
		select {
		case <-sub.ch:
			sub.dropped.Add(1)
		default:
			// Raced with a concurrent reader draining the queue; retry.
		}
	}
}
