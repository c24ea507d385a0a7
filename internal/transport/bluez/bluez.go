//go:build linux

// Package bluez implements transport.BluetoothTransport against a
// paired phone's HFP Hands-Free role, driven entirely over BlueZ's
// D-Bus API: org.bluez.ProfileManager1/Profile1 deliver the RFCOMM
// file descriptor, after which one goroutine owns it exactly the way
// the teacher's Modem.Loop owns a serial port — a single Reader, a
// single Writer, classify-and-dispatch.
package bluez

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	dbus "github.com/godbus/dbus/v5"

	"github.com/phonebt/phonebt/internal/at"
	"github.com/phonebt/phonebt/internal/transport"
)

const (
	bluezService        = "org.bluez"
	profileInterface    = "org.bluez.Profile1"
	profileManagerIface = "org.bluez.ProfileManager1"
	deviceIface         = "org.bluez.Device1"

	// HandsFreeUnitUUID is the Bluetooth SIG profile UUID for the HFP
	// Hands-Free (HF) role, the role phonebt plays against the AG.
	HandsFreeUnitUUID = "0000111e-0000-1000-8000-00805f9b34fb"
)

var pathCounter uint64

// Transport drives one paired device's HFP link over BlueZ D-Bus.
type Transport struct {
	// DevicePath is the BlueZ Device1 object path of the paired phone
	// (e.g. "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF").
	DevicePath dbus.ObjectPath

	mu        sync.Mutex
	conn      *dbus.Conn
	profile   *profile
	profileOn dbus.ObjectPath
	file      *os.File
	writer    *bufio.Writer
	cb        transport.Callbacks
	connected atomic.Bool
}

// New returns a Transport bound to devicePath, not yet connected.
func New(devicePath string) *Transport {
	return &Transport{DevicePath: dbus.ObjectPath(devicePath)}
}

// profile implements org.bluez.Profile1 for the client (HF) role and
// forwards BlueZ's NewConnection call to a channel Connect waits on.
type profile struct {
	result chan profileResult
}

type profileResult struct {
	fd  int
	err error
}

func (p *profile) Release() *dbus.Error                               { return nil }
func (p *profile) Cancel() *dbus.Error                                { return nil }
func (p *profile) RequestDisconnection(_ dbus.ObjectPath) *dbus.Error { return nil }

func (p *profile) NewConnection(_ dbus.ObjectPath, fd dbus.UnixFD, _ map[string]dbus.Variant) *dbus.Error {
	select {
	case p.result <- profileResult{fd: int(fd)}:
	default:
		_ = os.NewFile(uintptr(fd), "rfcomm").Close()
	}
	return nil
}

func (t *Transport) SetCallbacks(cb transport.Callbacks) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cb = cb
}

// Connect registers a client Profile1 for HandsFreeUnitUUID, asks
// BlueZ to connect that profile on DevicePath, waits for the RFCOMM
// file descriptor to arrive via Profile1.NewConnection, then starts
// the single reader/dispatch goroutine.
func (t *Transport) Connect(ctx context.Context) error {
	if t.DevicePath == "" {
		return errors.New("bluez: DevicePath required")
	}

	conn, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("bluez: connect system bus: %w", err)
	}

	prof := &profile{result: make(chan profileResult, 1)}
	id := atomic.AddUint64(&pathCounter, 1)
	objPath := dbus.ObjectPath("/org/phonebt/hfp/p" + strconv.FormatUint(id, 10))
	if err := conn.Export(prof, objPath, profileInterface); err != nil {
		conn.Close()
		return fmt.Errorf("bluez: export profile: %w", err)
	}

	opts := map[string]dbus.Variant{
		"Name": dbus.MakeVariant("Hands-Free unit"),
		"Role": dbus.MakeVariant("client"),
	}
	pm := conn.Object(bluezService, dbus.ObjectPath("/org/bluez"))
	if call := pm.Call(profileManagerIface+".RegisterProfile", 0, objPath, HandsFreeUnitUUID, opts); call.Err != nil {
		conn.Close()
		return fmt.Errorf("bluez: RegisterProfile: %w", call.Err)
	}

	t.mu.Lock()
	t.conn = conn
	t.profile = prof
	t.profileOn = objPath
	t.mu.Unlock()

	dev := conn.Object(bluezService, t.DevicePath)
	go func() {
		call := dev.Call(deviceIface+".ConnectProfile", 0, HandsFreeUnitUUID)
		if call.Err != nil {
			t.teardown()
			t.reportConnected(fmt.Errorf("bluez: ConnectProfile: %w", call.Err))
		}
	}()

	select {
	case res := <-prof.result:
		if res.err != nil {
			t.teardown()
			t.reportConnected(res.err)
			return res.err
		}
		f := os.NewFile(uintptr(res.fd), "rfcomm")
		t.mu.Lock()
		t.file = f
		t.writer = bufio.NewWriter(f)
		t.mu.Unlock()
		t.connected.Store(true)
		go t.readLoop(f)
		t.reportConnected(nil)
		return nil
	case <-ctx.Done():
		t.teardown()
		return ctx.Err()
	}
}

func (t *Transport) reportConnected(err error) {
	t.mu.Lock()
	cb := t.cb
	t.mu.Unlock()
	if cb != nil {
		cb.Connected(err)
	}
}

func (t *Transport) readLoop(f *os.File) {
	scanner := bufio.NewScanner(f)
	scanner.Split(at.Splitter)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		t.dispatch(line)
	}
	t.connected.Store(false)
	t.mu.Lock()
	cb := t.cb
	t.mu.Unlock()
	if cb != nil {
		cb.Disconnected(scanner.Err())
	}
}

// dispatch classifies an URC line into the matching Callbacks method,
// falling through to ATLine for anything it doesn't specifically
// recognize (CLCC/COPS responses, OK/ERROR finals for an outstanding
// SendATCommand). CLIP lines go to IncomingCallFrom, not ATLine.
func (t *Transport) dispatch(line string) {
	t.mu.Lock()
	cb := t.cb
	t.mu.Unlock()
	if cb == nil {
		return
	}

	switch {
	case line == at.Ring:
		// RING carries no caller ID of its own; CLIP (if the AG sends
		// it) arrives as a separate line and is handled by the ParseCLIP
		// branch below via IncomingCallFrom.
		cb.CallSetupMode(1)
		return
	}

	if number, _, _, ok := at.ParseCLIP(line); ok {
		cb.IncomingCallFrom(number)
		return
	}
	if ind, ok := parseCIEV(line); ok {
		dispatchIndicator(cb, ind)
		return
	}

	cb.ATLine(line)
}

// indicator is one decoded +CIEV: <index>,<value> notification. BlueZ
// does not interpret these for the HF role; phonebt must.
type indicator struct {
	index int
	value int
}

const (
	cievCall      = 2
	cievCallSetup = 3
	cievCallHeld  = 5
	cievSignal    = 1
	cievRoam      = 6
	cievBattChg   = 7
	cievService   = 0
)

// parseCIEV decodes a "+CIEV: <index>,<value>" indicator line. It is a
// transport-level concern distinct from internal/at's parser, which
// only decodes the CLCC/COPS/CLIP records the Protocol Engine issues
// requests for.
func parseCIEV(line string) (indicator, bool) {
	const prefix = "+CIEV: "
	if len(line) <= len(prefix) || line[:len(prefix)] != prefix {
		return indicator{}, false
	}
	rest := line[len(prefix):]
	comma := -1
	for i, r := range rest {
		if r == ',' {
			comma = i
			break
		}
	}
	if comma < 0 {
		return indicator{}, false
	}
	index, err1 := strconv.Atoi(rest[:comma])
	value, err2 := strconv.Atoi(rest[comma+1:])
	if err1 != nil || err2 != nil {
		return indicator{}, false
	}
	return indicator{index: index, value: value}, true
}

func dispatchIndicator(cb transport.Callbacks, ind indicator) {
	switch ind.index {
	case cievCall:
		cb.CallActive(ind.value != 0)
	case cievCallSetup:
		cb.CallSetupMode(ind.value)
	case cievCallHeld:
		cb.CallHoldState(ind.value)
	case cievSignal:
		cb.SignalStrength(ind.value)
	case cievRoam:
		cb.Roaming(ind.value != 0)
	case cievBattChg:
		cb.BatteryCharge(ind.value)
	case cievService:
		cb.ServiceAvailable(ind.value != 0)
	}
}

func (t *Transport) Disconnect() error {
	t.teardown()
	return nil
}

func (t *Transport) teardown() {
	t.mu.Lock()
	conn := t.conn
	profileOn := t.profileOn
	file := t.file
	t.conn = nil
	t.file = nil
	t.writer = nil
	t.mu.Unlock()

	t.connected.Store(false)
	if file != nil {
		_ = file.Close()
	}
	if conn != nil {
		pm := conn.Object(bluezService, dbus.ObjectPath("/org/bluez"))
		_ = pm.Call(profileManagerIface+".UnregisterProfile", 0, profileOn).Err
		_ = conn.Export(nil, profileOn, profileInterface)
		conn.Close()
	}
}

func (t *Transport) IsConnected() bool {
	return t.connected.Load()
}

// send writes one AT command line under the transport mutex, so
// concurrent engine operations cannot interleave bytes on the RFCOMM
// stream.
func (t *Transport) send(cmd string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writer == nil {
		return errors.New("bluez: not connected")
	}
	if _, err := t.writer.WriteString("AT" + cmd + at.CRLF); err != nil {
		return err
	}
	return t.writer.Flush()
}

func (t *Transport) DialNumber(number string) error { return t.send("D" + number + ";") }
func (t *Transport) AcceptCall() error              { return t.send("A") }
func (t *Transport) EndCall() error                 { return t.send("+CHUP") }
func (t *Transport) SendDTMF(digit string) error    { return t.send("+VTS=" + digit) }
func (t *Transport) ConnectSCO() error              { return t.send("+BCC") }
func (t *Transport) DisconnectSCO() error {
	return errors.New("bluez: SCO teardown is AG-initiated; no HF-side primitive")
}

// TransferAudioToComputer asks the AG to bring the SCO audio link up
// toward this HF, which is how HFP moves in-call audio off the phone.
func (t *Transport) TransferAudioToComputer() error { return t.send("+BCC") }

// Send issues atCommand verbatim, prefixed with "AT" and CRLF-terminated.
func (t *Transport) Send(atCommand string) error { return t.send(atCommand) }

var _ transport.BluetoothTransport = (*Transport)(nil)
