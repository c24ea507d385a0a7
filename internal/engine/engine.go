// Package engine implements the Protocol Engine: it owns one
// transport.BluetoothTransport, issues AT-level control primitives
// across it, receives the transport's callbacks, and translates both
// into bus.Events that the state.Machine and any other subscriber can
// observe.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phonebt/phonebt/internal/at"
	"github.com/phonebt/phonebt/internal/bus"
	"github.com/phonebt/phonebt/internal/errs"
	"github.com/phonebt/phonebt/internal/state"
	"github.com/phonebt/phonebt/internal/transport"
)

// DefaultConnectTimeout is the Engine's connect timeout when New is
// given a non-positive one; Connect falls back to the Engine's timeout
// when its own argument is non-positive.
const DefaultConnectTimeout = 15 * time.Second

// atRequest is one outstanding raw AT exchange, captured the way the
// teacher's commandRequest/commandResponse pair captures one AT
// exchange over a scanned transport, re-purposed here to capture lines
// surfaced asynchronously through transport.Callbacks.ATLine instead of
// a locally owned bufio.Scanner.
type atRequest struct {
	lines []string
	done  chan atResult
}

type atResult struct {
	lines []string
	err   error
}

// Engine is the single owner of a transport.BluetoothTransport. It
// implements transport.Callbacks itself, so SetCallbacks(engine) wires
// the translation table directly.
type Engine struct {
	transport transport.BluetoothTransport
	bus       *bus.Bus
	machine   *state.Machine
	log       *slog.Logger

	connectTimeout time.Duration

	atMu      sync.Mutex
	atPending *atRequest
}

// New returns an Engine driving t, publishing onto b and projecting
// onto m. It registers itself as t's Callbacks.
func New(t transport.BluetoothTransport, b *bus.Bus, m *state.Machine, log *slog.Logger, connectTimeout time.Duration) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	e := &Engine{
		transport:      t,
		bus:            b,
		machine:        m,
		log:            log,
		connectTimeout: connectTimeout,
	}
	t.SetCallbacks(e)
	return e
}

// Run starts the single dedicated task that drains a bus subscription
// and feeds the State Machine, as required by the concurrency model. It
// blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sub := e.bus.Subscribe(ctx)
		defer sub.Close()
		for {
			select {
			case ev := <-sub.Events():
				e.machine.Apply(ev)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Connect initiates the SLC and waits for its outcome. timeout <= 0
// uses the Engine's configured default.
func (e *Engine) Connect(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = e.connectTimeout
	}

	// Subscribe before issuing transport.Connect so a callback racing
	// ahead of this call can never be missed.
	sub := e.bus.Subscribe(nil)
	defer sub.Close()

	ev := bus.Event{Kind: bus.EventConnecting}
	e.bus.Emit(ev)
	e.machine.Apply(ev)

	connectErr := make(chan error, 1)
	go func() {
		connectErr <- e.transport.Connect(ctx)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ev := <-sub.Events():
			switch ev.Kind {
			case bus.EventConnected:
				// Apply directly so connection = connected is visible to
				// this caller before Connect returns, regardless of when
				// Run's drain task happens to process the same event.
				e.machine.Apply(ev)
				return nil
			case bus.EventDisconnected, bus.EventConnectFailed:
				e.machine.Apply(ev)
				return errs.Wrap(errs.ConnectionFailed, ev.Err)
			}

		case err := <-connectErr:
			if err != nil {
				ev := bus.Event{Kind: bus.EventConnectFailed, Err: err}
				e.bus.Emit(ev)
				e.machine.Apply(ev)
				return errs.Wrap(errs.ConnectionFailed, err)
			}
			// transport.Connect returning nil only means the attempt was
			// issued without immediate rejection; keep waiting for the
			// Connected callback to actually observe connection=connected.

		case <-timer.C:
			ev := bus.Event{Kind: bus.EventDisconnected, Err: errors.New("connect timed out")}
			e.bus.Emit(ev)
			e.machine.Apply(ev)
			return errs.New(errs.ConnectionFailed, "connect timed out")

		case <-ctx.Done():
			ev := bus.Event{Kind: bus.EventDisconnected, Err: ctx.Err()}
			e.bus.Emit(ev)
			e.machine.Apply(ev)
			return errs.Wrap(errs.ConnectionFailed, ctx.Err())
		}
	}
}

// Disconnect is best-effort and non-blocking: it asks the transport to
// close and returns immediately. The eventual disconnected callback
// resets state.Machine.
func (e *Engine) Disconnect() error {
	if err := e.transport.Disconnect(); err != nil {
		return errs.Wrap(errs.TransportError, err)
	}
	return nil
}

func (e *Engine) requireConnected() error {
	if e.machine.Snapshot().Connection != state.Connected {
		return errs.ErrNotConnected
	}
	return nil
}

// Dial emits callDialing before issuing the transport's dial
// primitive, so bus subscribers observe the transition even when the
// transport itself is slow to respond.
func (e *Engine) Dial(number string) error {
	if err := e.requireConnected(); err != nil {
		return err
	}
	e.bus.Emit(bus.Event{Kind: bus.EventCallDialing, Number: number})
	if err := e.transport.DialNumber(number); err != nil {
		return errs.Wrap(errs.TransportError, err)
	}
	return nil
}

func (e *Engine) AcceptCall() error {
	if err := e.requireConnected(); err != nil {
		return err
	}
	if err := e.transport.AcceptCall(); err != nil {
		return errs.Wrap(errs.TransportError, err)
	}
	return nil
}

func (e *Engine) EndCall() error {
	if err := e.requireConnected(); err != nil {
		return err
	}
	if err := e.transport.EndCall(); err != nil {
		return errs.Wrap(errs.TransportError, err)
	}
	return nil
}

const dtmfAlphabet = "0123456789*#"

// SendDTMF requires digit to be exactly one character drawn from
// 0-9, *, #.
func (e *Engine) SendDTMF(digit string) error {
	if err := e.requireConnected(); err != nil {
		return err
	}
	if len(digit) != 1 || !strings.ContainsRune(dtmfAlphabet, rune(digit[0])) {
		return errs.New(errs.CommandFailed, "DTMF must be a single character")
	}
	if err := e.transport.SendDTMF(digit); err != nil {
		return errs.Wrap(errs.TransportError, err)
	}
	return nil
}

func (e *Engine) ConnectAudio() error {
	if err := e.requireConnected(); err != nil {
		return err
	}
	if err := e.transport.ConnectSCO(); err != nil {
		return errs.Wrap(errs.TransportError, err)
	}
	return nil
}

func (e *Engine) DisconnectAudio() error {
	if err := e.requireConnected(); err != nil {
		return err
	}
	if err := e.transport.DisconnectSCO(); err != nil {
		return errs.Wrap(errs.TransportError, err)
	}
	return nil
}

func (e *Engine) TransferAudioToComputer() error {
	if err := e.requireConnected(); err != nil {
		return err
	}
	if err := e.transport.TransferAudioToComputer(); err != nil {
		return errs.Wrap(errs.TransportError, err)
	}
	return nil
}

const atExecTimeout = 5 * time.Second

// SendATCommand is the escape hatch: it sends text verbatim and waits
// for the transport to surface a terminal line via Callbacks.ATLine.
func (e *Engine) SendATCommand(ctx context.Context, text string) ([]string, error) {
	if err := e.requireConnected(); err != nil {
		return nil, err
	}

	req := &atRequest{done: make(chan atResult, 1)}

	e.atMu.Lock()
	if e.atPending != nil {
		e.atMu.Unlock()
		return nil, errs.New(errs.CommandFailed, "an AT command is already in flight")
	}
	e.atPending = req
	e.atMu.Unlock()

	if err := e.transport.Send(text); err != nil {
		e.atMu.Lock()
		if e.atPending == req {
			e.atPending = nil
		}
		e.atMu.Unlock()
		return nil, errs.Wrap(errs.TransportError, err)
	}

	timeout := atExecTimeout
	if dl, ok := ctx.Deadline(); ok {
		if until := time.Until(dl); until < timeout {
			timeout = until
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-req.done:
		return res.lines, errs.Wrap(errs.CommandFailed, res.err)
	case <-timer.C:
		e.atMu.Lock()
		if e.atPending == req {
			e.atPending = nil
		}
		e.atMu.Unlock()
		return nil, errs.New(errs.CommandFailed, "AT command timed out")
	case <-ctx.Done():
		e.atMu.Lock()
		if e.atPending == req {
			e.atPending = nil
		}
		e.atMu.Unlock()
		return nil, errs.Wrap(errs.CommandFailed, ctx.Err())
	}
}

// RequestCallList issues +CLCC; responses arrive as ATLine callbacks
// and are separately parsed into callListRecord events regardless of
// whether this call is still waiting on them.
func (e *Engine) RequestCallList(ctx context.Context) error {
	_, err := e.SendATCommand(ctx, "+CLCC")
	return err
}

// RequestOperator issues +COPS?; the response is parsed into an
// operatorName event.
func (e *Engine) RequestOperator(ctx context.Context) error {
	_, err := e.SendATCommand(ctx, "+COPS?")
	return err
}

// --- transport.Callbacks ---

func (e *Engine) Connected(err error) {
	if err != nil {
		e.bus.Emit(bus.Event{Kind: bus.EventConnectFailed, Err: err})
		return
	}
	e.bus.Emit(bus.Event{Kind: bus.EventConnected})
}

func (e *Engine) Disconnected(err error) {
	if err != nil {
		e.log.Warn("transport disconnected", "error", err)
	}
	e.bus.Emit(bus.Event{Kind: bus.EventDisconnected})
}

func (e *Engine) CallSetupMode(mode int) {
	e.bus.Emit(bus.Event{Kind: bus.EventCallSetup, Setup: mode})
	switch mode {
	case 1:
		e.bus.Emit(bus.Event{Kind: bus.EventIncomingCall})
	case 2:
		e.bus.Emit(bus.Event{Kind: bus.EventCallDialing})
	case 3:
		e.bus.Emit(bus.Event{Kind: bus.EventCallAlerting})
	}
}

func (e *Engine) CallActive(active bool) {
	e.bus.Emit(bus.Event{Kind: bus.EventCallIndicator, Active: active})
	if active {
		e.bus.Emit(bus.Event{Kind: bus.EventCallActive})
	} else {
		e.bus.Emit(bus.Event{Kind: bus.EventCallEnded})
	}
}

func (e *Engine) CallHoldState(mode int) {
	e.bus.Emit(bus.Event{Kind: bus.EventCallHeldIndicator, Hold: mode})
	if mode > 0 {
		e.bus.Emit(bus.Event{Kind: bus.EventCallHeld})
	}
}

func (e *Engine) SignalStrength(level int) {
	e.bus.Emit(bus.Event{Kind: bus.EventSignalStrength, Signal: level})
}

func (e *Engine) BatteryCharge(level int) {
	e.bus.Emit(bus.Event{Kind: bus.EventBatteryLevel, Battery: level})
}

func (e *Engine) ServiceAvailable(available bool) {
	e.bus.Emit(bus.Event{Kind: bus.EventServiceAvailable, Available: available})
}

func (e *Engine) Roaming(roaming bool) {
	e.bus.Emit(bus.Event{Kind: bus.EventRoaming, Roaming: roaming})
}

func (e *Engine) IncomingCallFrom(number string) {
	e.bus.Emit(bus.Event{Kind: bus.EventCallerID, Number: number})
	e.bus.Emit(bus.Event{Kind: bus.EventIncomingCall, Number: number})
}

func (e *Engine) SCOOpened() {
	e.bus.Emit(bus.Event{Kind: bus.EventSCOConnected})
}

func (e *Engine) SCOClosed() {
	e.bus.Emit(bus.Event{Kind: bus.EventSCODisconnected})
}

// ATLine feeds an outstanding SendATCommand/RequestCallList/
// RequestOperator exchange and, independently, decodes any +CLCC,
// +COPS, or +CLIP record the line carries into its corresponding
// event, regardless of whether a request is currently outstanding.
func (e *Engine) ATLine(line string) {
	e.atMu.Lock()
	req := e.atPending
	e.atMu.Unlock()

	if req != nil {
		switch at.Classify(line) {
		case at.TypeFinal:
			var err error
			if line != at.OK {
				err = fmt.Errorf("%s", line)
			}
			e.atMu.Lock()
			if e.atPending == req {
				e.atPending = nil
			}
			e.atMu.Unlock()
			req.done <- atResult{lines: req.lines, err: err}
		default:
			req.lines = append(req.lines, line)
		}
	}

	if rec, ok := at.ParseCLCC(line); ok {
		dir := bus.CLCCDirOutgoing
		if rec.Direction == state.Incoming {
			dir = bus.CLCCDirIncoming
		}
		e.bus.Emit(bus.Event{
			Kind:      bus.EventCallListRecord,
			CLCCIndex: rec.Index,
			CLCCDir:   dir,
			CLCCStat:  clccStatusCode(rec.Status),
			Number:    rec.Number,
		})
		return
	}
	if name, ok := at.ParseCOPS(line); ok {
		e.bus.Emit(bus.Event{Kind: bus.EventOperatorName, Operator: name})
		return
	}
	if number, name, hasName, ok := at.ParseCLIP(line); ok {
		ev := bus.Event{Kind: bus.EventCallerID, Number: number}
		if hasName {
			ev.Name = name
			ev.HasName = true
		}
		e.bus.Emit(ev)
	}
}

func clccStatusCode(s state.CallStatus) int {
	switch s {
	case state.CallActive:
		return 0
	case state.CallHeld:
		return 1
	case state.CallDialing:
		return 2
	case state.CallAlerting:
		return 3
	case state.CallIncoming:
		return 4
	case state.CallWaiting:
		return 5
	default:
		return -1
	}
}

var _ transport.Callbacks = (*Engine)(nil)
