package at_test

import (
	"bufio"
	"strings"
	"testing"

	"github.com/phonebt/phonebt/internal/at"
)

func TestSplitterSplitsOnCRLF(t *testing.T) {
	input := "+CLCC: 1,0,0,0,0\r\nOK\r\n"
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Split(at.Splitter)

	var tokens []string
	for scanner.Scan() {
		tokens = append(tokens, scanner.Text())
	}
	want := []string{"+CLCC: 1,0,0,0,0", "OK"}
	if len(tokens) != len(want) {
		t.Fatalf("got %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, tokens[i], want[i])
		}
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]at.ResponseType{
		"OK":               at.TypeFinal,
		"ERROR":            at.TypeFinal,
		"+CME ERROR: 3":    at.TypeFinal,
		"RING":             at.TypeURC,
		"+CLCC: 1,0,0,0,0": at.TypeData,
		"+COPS: 0,0,\"T\"": at.TypeData,
	}
	for line, want := range cases {
		if got := at.Classify(line); got != want {
			t.Errorf("Classify(%q) = %v, want %v", line, got, want)
		}
	}
}
