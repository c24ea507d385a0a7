// Package transportmock is a hand-maintained, mockgen-shaped double for
// transport.BluetoothTransport, in the style go.uber.org/mock/mockgen
// would generate for it.
package transportmock

import (
	"context"
	"reflect"

	"go.uber.org/mock/gomock"

	"github.com/phonebt/phonebt/internal/transport"
)

// MockBluetoothTransport is a mock of the BluetoothTransport interface.
type MockBluetoothTransport struct {
	ctrl     *gomock.Controller
	recorder *MockBluetoothTransportMockRecorder
}

// MockBluetoothTransportMockRecorder is the mock recorder for
// MockBluetoothTransport.
type MockBluetoothTransportMockRecorder struct {
	mock *MockBluetoothTransport
}

// NewMockBluetoothTransport creates a new mock instance.
func NewMockBluetoothTransport(ctrl *gomock.Controller) *MockBluetoothTransport {
	mock := &MockBluetoothTransport{ctrl: ctrl}
	mock.recorder = &MockBluetoothTransportMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockBluetoothTransport) EXPECT() *MockBluetoothTransportMockRecorder {
	return m.recorder
}

func (m *MockBluetoothTransport) SetCallbacks(cb transport.Callbacks) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "SetCallbacks", cb)
}

func (mr *MockBluetoothTransportMockRecorder) SetCallbacks(cb interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SetCallbacks", reflect.TypeOf((*MockBluetoothTransport)(nil).SetCallbacks), cb)
}

func (m *MockBluetoothTransport) Connect(ctx context.Context) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Connect", ctx)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockBluetoothTransportMockRecorder) Connect(ctx interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Connect", reflect.TypeOf((*MockBluetoothTransport)(nil).Connect), ctx)
}

func (m *MockBluetoothTransport) Disconnect() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Disconnect")
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockBluetoothTransportMockRecorder) Disconnect() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Disconnect", reflect.TypeOf((*MockBluetoothTransport)(nil).Disconnect))
}

func (m *MockBluetoothTransport) IsConnected() bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "IsConnected")
	ret0, _ := ret[0].(bool)
	return ret0
}

func (mr *MockBluetoothTransportMockRecorder) IsConnected() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "IsConnected", reflect.TypeOf((*MockBluetoothTransport)(nil).IsConnected))
}

func (m *MockBluetoothTransport) DialNumber(number string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DialNumber", number)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockBluetoothTransportMockRecorder) DialNumber(number interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DialNumber", reflect.TypeOf((*MockBluetoothTransport)(nil).DialNumber), number)
}

func (m *MockBluetoothTransport) AcceptCall() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AcceptCall")
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockBluetoothTransportMockRecorder) AcceptCall() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AcceptCall", reflect.TypeOf((*MockBluetoothTransport)(nil).AcceptCall))
}

func (m *MockBluetoothTransport) EndCall() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "EndCall")
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockBluetoothTransportMockRecorder) EndCall() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "EndCall", reflect.TypeOf((*MockBluetoothTransport)(nil).EndCall))
}

func (m *MockBluetoothTransport) SendDTMF(digit string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SendDTMF", digit)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockBluetoothTransportMockRecorder) SendDTMF(digit interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SendDTMF", reflect.TypeOf((*MockBluetoothTransport)(nil).SendDTMF), digit)
}

func (m *MockBluetoothTransport) ConnectSCO() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ConnectSCO")
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockBluetoothTransportMockRecorder) ConnectSCO() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ConnectSCO", reflect.TypeOf((*MockBluetoothTransport)(nil).ConnectSCO))
}

func (m *MockBluetoothTransport) DisconnectSCO() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DisconnectSCO")
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockBluetoothTransportMockRecorder) DisconnectSCO() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DisconnectSCO", reflect.TypeOf((*MockBluetoothTransport)(nil).DisconnectSCO))
}

func (m *MockBluetoothTransport) TransferAudioToComputer() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "TransferAudioToComputer")
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockBluetoothTransportMockRecorder) TransferAudioToComputer() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "TransferAudioToComputer", reflect.TypeOf((*MockBluetoothTransport)(nil).TransferAudioToComputer))
}

func (m *MockBluetoothTransport) Send(atCommand string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Send", atCommand)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockBluetoothTransportMockRecorder) Send(atCommand interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Send", reflect.TypeOf((*MockBluetoothTransport)(nil).Send), atCommand)
}

var _ transport.BluetoothTransport = (*MockBluetoothTransport)(nil)
