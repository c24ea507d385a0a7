// Package state holds the single authoritative projection of HFP
// connection, call, audio, and phone-indicator state. It is driven
// exclusively by events from the Event Bus; nothing else mutates it.
package state

import (
	"sync"
	"time"

	"github.com/phonebt/phonebt/internal/bus"
)

// Connection is the Service-Level Connection lifecycle state.
type Connection string

const (
	Disconnected Connection = "disconnected"
	Connecting   Connection = "connecting"
	Connected    Connection = "connected"
)

// CallStatus is the lifecycle state of a call, and also the aggregate
// HFPState.Call field (idle when there is no active call).
type CallStatus string

const (
	CallIdle     CallStatus = "idle"
	CallDialing  CallStatus = "dialing"
	CallAlerting CallStatus = "alerting"
	CallIncoming CallStatus = "incoming"
	CallActive   CallStatus = "active"
	CallHeld     CallStatus = "held"
	CallWaiting  CallStatus = "waiting"
	CallEnded    CallStatus = "ended"
)

// Direction is the originating side of a call.
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
)

// Audio is the SCO link state, independent of Connection except that
// Connected audio implies a connected SLC.
type Audio string

const (
	AudioDisconnected Audio = "disconnected"
	AudioConnected    Audio = "connected"
)

// CallInfo describes one call, identified by the AG's 1-based CLCC index.
type CallInfo struct {
	Index     int
	Direction Direction
	Status    CallStatus
	Number    string
	HasNumber bool
	StartTime time.Time
	Started   bool
}

func (c *CallInfo) clone() *CallInfo {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// PhoneStatus mirrors the AG's +CIEV-style indicators.
type PhoneStatus struct {
	SignalStrength   int
	BatteryLevel     int
	ServiceAvailable bool
	OperatorName     string
	HasOperatorName  bool
	Roaming          bool
}

// HFPState is the single aggregate protected by the Machine's lock.
type HFPState struct {
	Connection  Connection
	Call        CallStatus
	Audio       Audio
	PhoneStatus PhoneStatus
	ActiveCall  *CallInfo
}

// Snapshot returns a deep, by-value copy safe for the caller to retain.
func (s HFPState) Snapshot() HFPState {
	cp := s
	cp.ActiveCall = s.ActiveCall.clone()
	return cp
}

func zero() HFPState {
	return HFPState{
		Connection: Disconnected,
		Call:       CallIdle,
		Audio:      AudioDisconnected,
	}
}

// Machine is the single mutator of HFPState. Apply is safe for
// concurrent callers; it never suspends and is never held across I/O.
type Machine struct {
	mu    sync.Mutex
	state HFPState
}

// NewMachine returns a Machine initialized to the zero HFPState.
func NewMachine() *Machine {
	return &Machine{state: zero()}
}

// Snapshot returns an immutable, by-value copy of the current state.
func (m *Machine) Snapshot() HFPState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Snapshot()
}

// Apply mutates state according to ev and reports whether anything
// changed. Unspecified event kinds leave the state unchanged.
func (m *Machine) Apply(ev bus.Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := m.state.Snapshot()
	m.apply(ev)
	return !equalStates(before, m.state)
}

func (m *Machine) apply(ev bus.Event) {
	s := &m.state
	switch ev.Kind {
	case bus.EventConnecting:
		if s.Connection == Disconnected {
			s.Connection = Connecting
		}

	case bus.EventConnected:
		s.Connection = Connected

	case bus.EventDisconnected, bus.EventConnectFailed:
		*s = zero()

	case bus.EventIncomingCall:
		s.Call = CallIncoming
		if s.ActiveCall == nil {
			s.ActiveCall = &CallInfo{Index: 1, Direction: Incoming, Status: CallIncoming}
			if ev.Number != "" {
				s.ActiveCall.Number = ev.Number
				s.ActiveCall.HasNumber = true
			}
		} else if !s.ActiveCall.HasNumber && ev.Number != "" {
			s.ActiveCall.Number = ev.Number
			s.ActiveCall.HasNumber = true
		}

	case bus.EventCallDialing:
		s.Call = CallDialing
		s.ActiveCall = &CallInfo{Index: 1, Direction: Outgoing, Status: CallDialing, Number: ev.Number, HasNumber: ev.Number != ""}

	case bus.EventCallAlerting:
		s.Call = CallAlerting
		if s.ActiveCall != nil {
			s.ActiveCall.Status = CallAlerting
		}

	case bus.EventCallActive, bus.EventCallAnswered:
		s.Call = CallActive
		if s.ActiveCall == nil {
			// A call can become active without any prior setup event, for
			// example when the SLC comes up while a call is already in
			// progress on the AG. Direction is unknown until a CLCC
			// record reconciles it.
			s.ActiveCall = &CallInfo{Index: 1, Direction: Outgoing, Status: CallActive}
		}
		s.ActiveCall.Status = CallActive
		if !s.ActiveCall.Started {
			s.ActiveCall.StartTime = eventTime(ev)
			s.ActiveCall.Started = true
		}

	case bus.EventCallHeld:
		s.Call = CallHeld
		if s.ActiveCall == nil {
			s.ActiveCall = &CallInfo{Index: 1, Direction: Outgoing, Status: CallHeld}
		}
		s.ActiveCall.Status = CallHeld

	case bus.EventCallEnded:
		s.Call = CallIdle
		s.ActiveCall = nil

	case bus.EventCallSetup:
		switch ev.Setup {
		case 1:
			s.Call = CallIncoming
			if s.ActiveCall == nil {
				s.ActiveCall = &CallInfo{Index: 1, Direction: Incoming}
			}
			s.ActiveCall.Status = CallIncoming
		case 2:
			s.Call = CallDialing
			if s.ActiveCall == nil {
				s.ActiveCall = &CallInfo{Index: 1, Direction: Outgoing}
			}
			s.ActiveCall.Status = CallDialing
		case 3:
			s.Call = CallAlerting
			if s.ActiveCall == nil {
				s.ActiveCall = &CallInfo{Index: 1, Direction: Outgoing}
			}
			s.ActiveCall.Status = CallAlerting
		}

	case bus.EventCallIndicator:
		if ev.Active {
			if s.Call != CallActive {
				s.Call = CallActive
				if s.ActiveCall == nil {
					s.ActiveCall = &CallInfo{Index: 1, Direction: Outgoing, Status: CallActive}
				}
				s.ActiveCall.Status = CallActive
				if !s.ActiveCall.Started {
					s.ActiveCall.StartTime = eventTime(ev)
					s.ActiveCall.Started = true
				}
			}
		} else {
			s.Call = CallIdle
			s.ActiveCall = nil
		}

	case bus.EventCallHeldIndicator:
		switch ev.Hold {
		case 0:
			if s.Call == CallHeld {
				s.Call = CallActive
				if s.ActiveCall != nil {
					s.ActiveCall.Status = CallActive
				}
			}
		case 1, 2:
			s.Call = CallHeld
			if s.ActiveCall == nil {
				s.ActiveCall = &CallInfo{Index: 1, Direction: Outgoing, Status: CallHeld}
			}
			s.ActiveCall.Status = CallHeld
		}

	case bus.EventSCOConnected:
		s.Audio = AudioConnected

	case bus.EventSCODisconnected:
		s.Audio = AudioDisconnected

	case bus.EventSignalStrength:
		s.PhoneStatus.SignalStrength = ev.Signal

	case bus.EventBatteryLevel:
		s.PhoneStatus.BatteryLevel = ev.Battery

	case bus.EventServiceAvailable:
		s.PhoneStatus.ServiceAvailable = ev.Available

	case bus.EventRoaming:
		s.PhoneStatus.Roaming = ev.Roaming

	case bus.EventOperatorName:
		s.PhoneStatus.OperatorName = ev.Operator
		s.PhoneStatus.HasOperatorName = true

	case bus.EventCallerID:
		if s.ActiveCall != nil && ev.Number != "" {
			s.ActiveCall.Number = ev.Number
			s.ActiveCall.HasNumber = true
		}

	case bus.EventCallListRecord:
		status := clccStatusToCallStatus(ev.CLCCStat)
		if status == CallIdle {
			// An unrecognised CLCC status code means the AG no longer
			// reports this call as in progress; treat it like callEnded.
			s.Call = CallIdle
			s.ActiveCall = nil
			return
		}
		dir := Outgoing
		if ev.CLCCDir == bus.CLCCDirIncoming {
			dir = Incoming
		}
		started := s.ActiveCall != nil && s.ActiveCall.Index == ev.CLCCIndex && s.ActiveCall.Started
		startTime := time.Time{}
		if started {
			startTime = s.ActiveCall.StartTime
		}
		if status == CallActive && !started {
			startTime = eventTime(ev)
			started = true
		}
		s.ActiveCall = &CallInfo{
			Index:     ev.CLCCIndex,
			Direction: dir,
			Status:    status,
			Number:    ev.Number,
			HasNumber: ev.Number != "",
			StartTime: startTime,
			Started:   started,
		}
		s.Call = status

	default:
		// error, callerSpeech, callWaiting and others: no state change.
	}
}

func clccStatusToCallStatus(code int) CallStatus {
	switch code {
	case 0:
		return CallActive
	case 1:
		return CallHeld
	case 2:
		return CallDialing
	case 3:
		return CallAlerting
	case 4:
		return CallIncoming
	case 5:
		return CallWaiting
	default:
		return CallIdle
	}
}

func eventTime(ev bus.Event) time.Time {
	if ev.At.IsZero() {
		return time.Now()
	}
	return ev.At
}

func equalStates(a, b HFPState) bool {
	if a.Connection != b.Connection || a.Call != b.Call || a.Audio != b.Audio {
		return false
	}
	if a.PhoneStatus != b.PhoneStatus {
		return false
	}
	if (a.ActiveCall == nil) != (b.ActiveCall == nil) {
		return false
	}
	if a.ActiveCall == nil {
		return true
	}
	return *a.ActiveCall == *b.ActiveCall
}
