package at_test

import (
	"strconv"
	"testing"

	"github.com/phonebt/phonebt/internal/at"
	"github.com/phonebt/phonebt/internal/state"
)

func TestParseCLCCOutgoingActive(t *testing.T) {
	rec, ok := at.ParseCLCC(`+CLCC: 1,0,0,0,0,"+15551234567",145`)
	if !ok {
		t.Fatalf("expected ok")
	}
	if rec.Index != 1 {
		t.Errorf("index = %d, want 1", rec.Index)
	}
	if rec.Direction != state.Outgoing {
		t.Errorf("direction = %v, want outgoing", rec.Direction)
	}
	if rec.Status != state.CallActive {
		t.Errorf("status = %v, want active", rec.Status)
	}
	if !rec.HasNumber || rec.Number != "+15551234567" {
		t.Errorf("number = %q (has=%v), want +15551234567", rec.Number, rec.HasNumber)
	}
}

func TestParseCLCCStatusMapping(t *testing.T) {
	cases := map[int]state.CallStatus{
		0: state.CallActive,
		1: state.CallHeld,
		2: state.CallDialing,
		3: state.CallAlerting,
		4: state.CallIncoming,
		5: state.CallWaiting,
		9: state.CallIdle,
	}
	for s, want := range cases {
		line := at.PrefixCLCC + " 1,0," + strconv.Itoa(s) + ",0,0"
		rec, ok := at.ParseCLCC(line)
		if !ok {
			t.Fatalf("line %q: expected ok", line)
		}
		if rec.Status != want {
			t.Errorf("status %d -> %v, want %v", s, rec.Status, want)
		}
	}
}

func TestParseCLCCMalformed(t *testing.T) {
	for _, line := range []string{"+CLCC: bad", "OK", "", "+CLCC:"} {
		if _, ok := at.ParseCLCC(line); ok {
			t.Errorf("line %q: expected not ok", line)
		}
	}
}

func TestParseCOPS(t *testing.T) {
	name, ok := at.ParseCOPS(`+COPS: 0,0,"T-Mobile"`)
	if !ok || name != "T-Mobile" {
		t.Errorf("got (%q, %v), want (T-Mobile, true)", name, ok)
	}
}

func TestParseCOPSRequiresThreeFields(t *testing.T) {
	if _, ok := at.ParseCOPS(`+COPS: 0,0`); ok {
		t.Errorf("expected not ok with only two fields")
	}
}

func TestParseCLIPWithName(t *testing.T) {
	num, name, hasName, ok := at.ParseCLIP(`+CLIP: "+15551234567",145,,,"John Doe"`)
	if !ok {
		t.Fatalf("expected ok")
	}
	if num != "+15551234567" {
		t.Errorf("number = %q", num)
	}
	if !hasName || name != "John Doe" {
		t.Errorf("name = %q (has=%v), want John Doe", name, hasName)
	}
}

func TestParseCLIPWithoutName(t *testing.T) {
	num, _, hasName, ok := at.ParseCLIP(`+CLIP: "+15551234567",145`)
	if !ok || num != "+15551234567" {
		t.Fatalf("got (%q, ok=%v)", num, ok)
	}
	if hasName {
		t.Errorf("expected no name")
	}
}

func TestParseToleratesWhitespaceAndCRLF(t *testing.T) {
	rec, ok := at.ParseCLCC("  +CLCC: 2,1,4,0,0\r\n")
	if !ok {
		t.Fatalf("expected ok")
	}
	if rec.Index != 2 || rec.Direction != state.Incoming || rec.Status != state.CallIncoming {
		t.Errorf("got %+v", rec)
	}
}
