// Package transport defines the contract the HFP Protocol Engine requires
// from a platform Bluetooth HFP link: connection lifecycle, call-control
// primitives, SCO audio control, and a raw AT escape hatch, plus the
// asynchronous callback surface the transport uses to report AG-driven
// events back to the engine.
package transport

import "context"

// Callbacks is implemented by the Protocol Engine and registered with a
// BluetoothTransport via SetCallbacks. The transport invokes these from
// whatever goroutine observes the underlying link; implementations must
// do minimal work and never block.
type Callbacks interface {
	// Connected reports the outcome of a Connect attempt. err is nil on
	// success.
	Connected(err error)
	// Disconnected reports the SLC going down, for any reason.
	Disconnected(err error)
	// CallSetupMode reports the AG's call-setup indicator: 0 none,
	// 1 incoming, 2 outgoing dialing, 3 outgoing alerting.
	CallSetupMode(mode int)
	// CallActive reports the AG's call indicator.
	CallActive(active bool)
	// CallHoldState reports the AG's call-hold indicator: 0 none/resumed,
	// 1 held, 2 held with active call.
	CallHoldState(mode int)
	SignalStrength(level int)
	BatteryCharge(level int)
	ServiceAvailable(available bool)
	Roaming(roaming bool)
	// IncomingCallFrom reports caller ID for a ringing call, if available.
	// number may be empty.
	IncomingCallFrom(number string)
	SCOOpened()
	SCOClosed()
	// ATLine surfaces a raw line that the transport did not map to one
	// of the callbacks above, whether or not a SendATCommand (or
	// RequestCallList/RequestOperator) request is outstanding.
	ATLine(line string)
}

// BluetoothTransport is the platform capability the Protocol Engine
// drives. A BluetoothTransport is constructed already bound to one
// paired device; Connect establishes the SLC over it.
type BluetoothTransport interface {
	SetCallbacks(cb Callbacks)

	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool

	DialNumber(number string) error
	AcceptCall() error
	EndCall() error
	SendDTMF(digit string) error

	ConnectSCO() error
	DisconnectSCO() error
	TransferAudioToComputer() error

	// Send issues a raw AT command verbatim; responses are surfaced
	// through Callbacks.ATLine.
	Send(atCommand string) error
}
