// Package controller implements the uniform tool-dispatch surface an
// upstream agent loop or CLI drives the Protocol Engine through. Every
// tool call returns a Result that serializes to canonical JSON: sorted
// keys, no incidental whitespace, byte-identical for equal logical
// results.
package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phonebt/phonebt/internal/audio"
	"github.com/phonebt/phonebt/internal/bus"
	"github.com/phonebt/phonebt/internal/engine"
	"github.com/phonebt/phonebt/internal/errs"
	"github.com/phonebt/phonebt/internal/state"
	"github.com/phonebt/phonebt/internal/voice"
)

// Result is the uniform tool-call result envelope.
type Result struct {
	Success bool
	Data    map[string]any
	Err     string
}

func ok(data map[string]any) Result { return Result{Success: true, Data: data} }
func fail(format string, a ...any) Result {
	return Result{Success: false, Err: fmt.Sprintf(format, a...)}
}

// MarshalCanonical serializes r as a flat JSON object with success
// plus its data fields (on success) or its error string (on failure),
// with every object's keys sorted lexicographically.
func (r Result) MarshalCanonical() []byte {
	obj := map[string]any{"success": r.Success}
	if r.Success {
		for k, v := range r.Data {
			obj[k] = v
		}
	} else {
		obj["error"] = r.Err
	}
	var buf bytes.Buffer
	writeCanonical(&buf, obj)
	return buf.Bytes()
}

func writeCanonical(buf *bytes.Buffer, v any) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, k)
			buf.WriteByte(':')
			writeCanonical(buf, val[k])
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonical(buf, e)
		}
		buf.WriteByte(']')
	default:
		// Scalars (string, bool, numbers, nil) have no key ordering of
		// their own; encoding/json is deterministic for them already.
		b, err := json.Marshal(val)
		if err != nil {
			b, _ = json.Marshal(fmt.Sprint(val))
		}
		buf.Write(b)
	}
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

// Adapter is the Controller Adapter: it drives one engine.Engine plus
// an optional audio.Router and voice.Pipeline, translating the seven
// tool calls into engine operations and canonical results.
type Adapter struct {
	Engine *engine.Engine
	Bus    *bus.Bus
	Audio  audio.Router
	Voice  voice.Pipeline
	Log    *slog.Logger

	snapshot func() state.HFPState
}

// New returns an Adapter. snapshot reads current HFP state (normally
// engine's underlying state.Machine.Snapshot).
func New(e *engine.Engine, b *bus.Bus, a audio.Router, v voice.Pipeline, snapshot func() state.HFPState) *Adapter {
	return &Adapter{Engine: e, Bus: b, Audio: a, Voice: v, Log: slog.Default(), snapshot: snapshot}
}

// Execute dispatches tool against args and returns its Result. Each
// call is tagged with a correlation ID for the adapter's own log
// lines, independent of anything in the result itself.
func (a *Adapter) Execute(ctx context.Context, tool string, args map[string]any) Result {
	requestID := uuid.NewString()
	log := a.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("request_id", requestID, "tool", tool)
	log.Debug("executing tool call")
	r := a.dispatch(ctx, tool, args)
	log.Debug("tool call finished", "success", r.Success)
	return r
}

func (a *Adapter) dispatch(ctx context.Context, tool string, args map[string]any) Result {
	switch tool {
	case "dial_number":
		return a.dialNumber(ctx, args)
	case "accept_call":
		return a.acceptCall(ctx)
	case "end_call":
		return a.endCall(ctx)
	case "send_dtmf":
		return a.sendDTMF(args)
	case "get_call_status":
		return a.getCallStatus()
	case "get_phone_status":
		return a.getPhoneStatus()
	case "say_to_caller":
		return a.sayToCaller(ctx, args)
	default:
		return fail("Unknown tool: %s", tool)
	}
}

// InjectEvent emits a narration event carrying description, letting an
// upstream controller fold engine activity into its own prompt
// construction without the engine needing to know about prompts.
func (a *Adapter) InjectEvent(description string) {
	a.Bus.Emit(bus.Event{Kind: bus.EventNarration, Text: description})
}

func stringArg(args map[string]any, name string) (string, bool) {
	v, present := args[name]
	if !present {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func requireString(args map[string]any, name string) (string, *Result) {
	s, present := stringArg(args, name)
	if !present {
		r := fail("Missing required parameter: %s", name)
		return "", &r
	}
	return s, nil
}

func sanitizeNumber(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '+' || r == '*' || r == '#' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (a *Adapter) requireEngine() *Result {
	if a.Engine == nil {
		r := fail("%s", errs.ErrNotConnected.Error())
		return &r
	}
	return nil
}

func (a *Adapter) dialNumber(ctx context.Context, args map[string]any) Result {
	raw, errRes := requireString(args, "number")
	if errRes != nil {
		return *errRes
	}
	if errRes := a.requireEngine(); errRes != nil {
		return *errRes
	}
	number := sanitizeNumber(raw)

	if err := a.Engine.Dial(number); err != nil {
		return fail("%s", err.Error())
	}
	_ = a.Engine.TransferAudioToComputer() // best-effort; failures ignored

	return ok(map[string]any{"status": "dialing", "number": number})
}

func (a *Adapter) acceptCall(ctx context.Context) Result {
	if errRes := a.requireEngine(); errRes != nil {
		return *errRes
	}
	if err := a.Engine.AcceptCall(); err != nil {
		return fail("%s", err.Error())
	}
	_ = a.Engine.TransferAudioToComputer() // best-effort
	if a.Audio != nil {
		_, _ = a.Audio.RouteToBluetoothDevice(ctx) // best-effort
	}
	return ok(map[string]any{"status": "answered"})
}

func (a *Adapter) endCall(ctx context.Context) Result {
	if errRes := a.requireEngine(); errRes != nil {
		return *errRes
	}
	if err := a.Engine.EndCall(); err != nil {
		return fail("%s", err.Error())
	}
	if a.Audio != nil {
		_ = a.Audio.RestorePreviousRouting(ctx) // best-effort
	}
	return ok(map[string]any{"status": "ended"})
}

func (a *Adapter) sendDTMF(args map[string]any) Result {
	digit, errRes := requireString(args, "digit")
	if errRes != nil {
		return *errRes
	}
	if errRes := a.requireEngine(); errRes != nil {
		return *errRes
	}
	if err := a.Engine.SendDTMF(digit); err != nil {
		return fail("%s", err.Error())
	}
	return ok(map[string]any{"status": "sent", "digit": digit})
}

func (a *Adapter) getCallStatus() Result {
	s := a.snapshot()
	data := map[string]any{
		"call_state":      string(s.Call),
		"audio_connected": s.Audio == state.AudioConnected,
	}
	if s.ActiveCall != nil {
		data["direction"] = string(s.ActiveCall.Direction)
		if s.ActiveCall.HasNumber {
			data["number"] = s.ActiveCall.Number
		}
		if s.ActiveCall.Started {
			data["duration"] = time.Since(s.ActiveCall.StartTime).Seconds()
		}
	}
	return ok(data)
}

func (a *Adapter) getPhoneStatus() Result {
	s := a.snapshot()
	data := map[string]any{
		"signal_strength":   s.PhoneStatus.SignalStrength,
		"battery_level":     s.PhoneStatus.BatteryLevel,
		"service_available": s.PhoneStatus.ServiceAvailable,
		"roaming":           s.PhoneStatus.Roaming,
	}
	if s.PhoneStatus.HasOperatorName {
		data["operator_name"] = s.PhoneStatus.OperatorName
	}
	return ok(data)
}

func (a *Adapter) sayToCaller(ctx context.Context, args map[string]any) Result {
	text, errRes := requireString(args, "text")
	if errRes != nil {
		return *errRes
	}
	if a.Voice == nil {
		return fail("%s", errs.New(errs.ToolError, "no voice pipeline attached").Error())
	}
	// Detached: say_to_caller must return before playback, not when it
	// finishes, so this does not inherit ctx's cancellation.
	go func() {
		_ = a.Voice.Speak(context.Background(), text)
	}()
	return ok(map[string]any{"status": "speaking", "text": text})
}
