package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/phonebt/phonebt/internal/at"
	"github.com/phonebt/phonebt/internal/bus"
	"github.com/phonebt/phonebt/internal/engine"
	"github.com/phonebt/phonebt/internal/errs"
	"github.com/phonebt/phonebt/internal/state"
	"github.com/phonebt/phonebt/internal/transport/transportmock"
)

// newEngine builds an Engine over a mock transport and starts its drain
// task, the way cmd/phonebt wires it. State assertions after a transport
// callback must go through waitFor, since the drain applies events
// asynchronously.
func newEngine(t *testing.T) (*engine.Engine, *transportmock.MockBluetoothTransport, *state.Machine, *bus.Bus) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mt := transportmock.NewMockBluetoothTransport(ctrl)
	mt.EXPECT().SetCallbacks(gomock.Any())
	b := bus.New(32)
	m := state.NewMachine()
	e := engine.New(mt, b, m, nil, 200*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = e.Run(ctx) }()

	return e, mt, m, b
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestConnectSucceedsOnConnectedCallback(t *testing.T) {
	e, mt, m, _ := newEngine(t)

	mt.EXPECT().Connect(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		go e.Connected(nil)
		return nil
	})

	if err := e.Connect(context.Background(), 0); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if m.Snapshot().Connection != state.Connected {
		t.Fatalf("connection = %v, want connected (visible before Connect returns)", m.Snapshot().Connection)
	}
}

func TestConnectFailsOnConnectFailedCallback(t *testing.T) {
	e, mt, m, _ := newEngine(t)
	wantErr := errors.New("rejected")

	mt.EXPECT().Connect(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		go e.Connected(wantErr)
		return nil
	})

	err := e.Connect(context.Background(), 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if errs.KindOf(err) != errs.ConnectionFailed {
		t.Errorf("kind = %v, want connection_failed", errs.KindOf(err))
	}
	waitFor(t, "disconnected after failure", func() bool {
		return m.Snapshot().Connection == state.Disconnected
	})
}

func TestConnectTimesOut(t *testing.T) {
	e, mt, m, _ := newEngine(t)
	mt.EXPECT().Connect(gomock.Any()).Return(nil)

	start := time.Now()
	err := e.Connect(context.Background(), 30*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("returned too early: %v", elapsed)
	}
	waitFor(t, "disconnected after timeout", func() bool {
		return m.Snapshot().Connection == state.Disconnected
	})
}

func TestConnectImmediateTransportRejection(t *testing.T) {
	e, mt, _, _ := newEngine(t)
	wantErr := errors.New("adapter not powered")
	mt.EXPECT().Connect(gomock.Any()).Return(wantErr)

	err := e.Connect(context.Background(), time.Second)
	if err == nil {
		t.Fatal("expected error")
	}
	if errs.KindOf(err) != errs.ConnectionFailed {
		t.Errorf("kind = %v, want connection_failed", errs.KindOf(err))
	}
}

func connectEngine(t *testing.T, e *engine.Engine, mt *transportmock.MockBluetoothTransport) {
	t.Helper()
	mt.EXPECT().Connect(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		go e.Connected(nil)
		return nil
	})
	if err := e.Connect(context.Background(), 0); err != nil {
		t.Fatalf("connect setup: %v", err)
	}
}

func TestDialRequiresConnection(t *testing.T) {
	e, _, _, _ := newEngine(t)
	err := e.Dial("+15551234567")
	if !errors.Is(err, errs.ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}

func TestDialEmitsCallDialingBeforeTransportCall(t *testing.T) {
	e, mt, _, b := newEngine(t)
	connectEngine(t, e, mt)

	sub := b.Subscribe(nil)
	defer sub.Close()

	// Emit delivers synchronously, so by the time the transport's dial
	// primitive runs the event must already be queued on sub.
	mt.EXPECT().DialNumber("+15551234567").DoAndReturn(func(number string) error {
		select {
		case ev := <-sub.Events():
			if ev.Kind != bus.EventCallDialing || ev.Number != "+15551234567" {
				t.Fatalf("got %+v, want callDialing(+15551234567)", ev)
			}
		default:
			t.Fatal("transport DialNumber called before callDialing was emitted")
		}
		return nil
	})
	if err := e.Dial("+15551234567"); err != nil {
		t.Fatalf("Dial: %v", err)
	}
}

func TestSendDTMFValidatesSingleCharacter(t *testing.T) {
	e, mt, _, _ := newEngine(t)
	connectEngine(t, e, mt)

	if err := e.SendDTMF("12"); errs.KindOf(err) != errs.CommandFailed {
		t.Errorf("multi-char digit: kind = %v, want command_failed", errs.KindOf(err))
	}
	if err := e.SendDTMF(""); errs.KindOf(err) != errs.CommandFailed {
		t.Errorf("empty digit: kind = %v, want command_failed", errs.KindOf(err))
	}

	mt.EXPECT().SendDTMF("5").Return(nil)
	if err := e.SendDTMF("5"); err != nil {
		t.Errorf("SendDTMF(5): %v", err)
	}

	mt.EXPECT().SendDTMF("*").Return(nil)
	if err := e.SendDTMF("*"); err != nil {
		t.Errorf("SendDTMF(*): %v", err)
	}
}

func TestAcceptAndEndCallRequireConnection(t *testing.T) {
	e, _, _, _ := newEngine(t)
	if err := e.AcceptCall(); !errors.Is(err, errs.ErrNotConnected) {
		t.Errorf("AcceptCall err = %v", err)
	}
	if err := e.EndCall(); !errors.Is(err, errs.ErrNotConnected) {
		t.Errorf("EndCall err = %v", err)
	}
}

func TestCallSetupModeIncomingTranslation(t *testing.T) {
	e, mt, m, _ := newEngine(t)
	connectEngine(t, e, mt)

	e.CallSetupMode(1)
	waitFor(t, "call=incoming", func() bool {
		return m.Snapshot().Call == state.CallIncoming
	})
}

func TestCallActiveTranslation(t *testing.T) {
	e, mt, m, _ := newEngine(t)
	connectEngine(t, e, mt)

	e.IncomingCallFrom("+15551112222")
	e.CallActive(true)
	waitFor(t, "call=active", func() bool {
		return m.Snapshot().Call == state.CallActive
	})

	e.CallActive(false)
	waitFor(t, "call torn down", func() bool {
		s := m.Snapshot()
		return s.Call == state.CallIdle && s.ActiveCall == nil
	})
}

func TestCallHoldStateTranslation(t *testing.T) {
	e, mt, m, _ := newEngine(t)
	connectEngine(t, e, mt)
	e.IncomingCallFrom("+15551112222")
	e.CallActive(true)

	e.CallHoldState(1)
	waitFor(t, "call=held", func() bool {
		return m.Snapshot().Call == state.CallHeld
	})

	e.CallHoldState(0)
	waitFor(t, "call resumed", func() bool {
		return m.Snapshot().Call == state.CallActive
	})
}

func TestIncomingCallFromTranslation(t *testing.T) {
	e, mt, m, _ := newEngine(t)
	connectEngine(t, e, mt)

	e.IncomingCallFrom("+15559876543")
	waitFor(t, "incoming call with number", func() bool {
		s := m.Snapshot()
		return s.Call == state.CallIncoming && s.ActiveCall != nil && s.ActiveCall.Number == "+15559876543"
	})
}

func TestSCOTranslation(t *testing.T) {
	e, mt, m, _ := newEngine(t)
	connectEngine(t, e, mt)

	e.SCOOpened()
	waitFor(t, "audio connected", func() bool {
		return m.Snapshot().Audio == state.AudioConnected
	})

	e.SCOClosed()
	waitFor(t, "audio disconnected", func() bool {
		return m.Snapshot().Audio == state.AudioDisconnected
	})
}

func TestSendATCommandCapturesLinesUntilFinal(t *testing.T) {
	e, mt, _, _ := newEngine(t)
	connectEngine(t, e, mt)

	mt.EXPECT().Send("+COPS?").DoAndReturn(func(cmd string) error {
		go func() {
			e.ATLine(`+COPS: 0,0,"Carrier"`)
			e.ATLine(at.OK)
		}()
		return nil
	})

	lines, err := e.SendATCommand(context.Background(), "+COPS?")
	if err != nil {
		t.Fatalf("SendATCommand: %v", err)
	}
	if len(lines) != 1 || lines[0] != `+COPS: 0,0,"Carrier"` {
		t.Fatalf("lines = %v", lines)
	}
}

func TestSendATCommandSurfacesErrorFinal(t *testing.T) {
	e, mt, _, _ := newEngine(t)
	connectEngine(t, e, mt)

	mt.EXPECT().Send("+CLCC").DoAndReturn(func(cmd string) error {
		go e.ATLine("ERROR")
		return nil
	})

	_, err := e.SendATCommand(context.Background(), "+CLCC")
	if errs.KindOf(err) != errs.CommandFailed {
		t.Fatalf("kind = %v, want command_failed", errs.KindOf(err))
	}
}

func TestATLineSynthesizesOperatorNameRegardlessOfPendingRequest(t *testing.T) {
	e, mt, m, _ := newEngine(t)
	connectEngine(t, e, mt)

	e.ATLine(`+COPS: 0,0,"T-Mobile"`)
	waitFor(t, "operator name", func() bool {
		s := m.Snapshot()
		return s.PhoneStatus.HasOperatorName && s.PhoneStatus.OperatorName == "T-Mobile"
	})
}

func TestATLineSynthesizesCallListRecord(t *testing.T) {
	e, mt, m, _ := newEngine(t)
	connectEngine(t, e, mt)

	e.ATLine(`+CLCC: 1,1,4,0,0,"+15550001111",129`)
	waitFor(t, "call list record projected", func() bool {
		s := m.Snapshot()
		return s.Call == state.CallIncoming && s.ActiveCall != nil &&
			s.ActiveCall.Direction == state.Incoming && s.ActiveCall.Number == "+15550001111"
	})
}

func TestTransportLossResetsEverything(t *testing.T) {
	e, mt, m, _ := newEngine(t)
	connectEngine(t, e, mt)

	e.CallActive(true)
	e.SCOOpened()
	e.Disconnected(errors.New("link supervision timeout"))

	waitFor(t, "full reset", func() bool {
		s := m.Snapshot()
		return s.Connection == state.Disconnected && s.Call == state.CallIdle &&
			s.Audio == state.AudioDisconnected && s.ActiveCall == nil
	})
}
