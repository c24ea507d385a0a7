// Package voicemock is a hand-maintained, mockgen-shaped double for
// voice.Pipeline, in the style go.uber.org/mock/mockgen would generate
// for it.
package voicemock

import (
	"context"
	"reflect"

	"go.uber.org/mock/gomock"

	"github.com/phonebt/phonebt/internal/voice"
)

// MockPipeline is a mock of the voice.Pipeline interface.
type MockPipeline struct {
	ctrl     *gomock.Controller
	recorder *MockPipelineMockRecorder
}

// MockPipelineMockRecorder is the mock recorder for MockPipeline.
type MockPipelineMockRecorder struct {
	mock *MockPipeline
}

// NewMockPipeline creates a new mock instance.
func NewMockPipeline(ctrl *gomock.Controller) *MockPipeline {
	mock := &MockPipeline{ctrl: ctrl}
	mock.recorder = &MockPipelineMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockPipeline) EXPECT() *MockPipelineMockRecorder {
	return m.recorder
}

func (m *MockPipeline) Speak(ctx context.Context, text string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Speak", ctx, text)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockPipelineMockRecorder) Speak(ctx, text interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Speak", reflect.TypeOf((*MockPipeline)(nil).Speak), ctx, text)
}

func (m *MockPipeline) CallerSpeech() <-chan string {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CallerSpeech")
	ret0, _ := ret[0].(<-chan string)
	return ret0
}

func (mr *MockPipelineMockRecorder) CallerSpeech() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CallerSpeech", reflect.TypeOf((*MockPipeline)(nil).CallerSpeech))
}

var _ voice.Pipeline = (*MockPipeline)(nil)
