package at

import (
	"strconv"
	"strings"

	"github.com/phonebt/phonebt/internal/state"
)

// CLCCRecord is the decoded form of one +CLCC: line.
type CLCCRecord struct {
	Index     int
	Direction state.Direction
	Status    state.CallStatus
	Number    string
	HasNumber bool
}

// ParseCLCC decodes a "+CLCC: i,d,s,m,p[,\"num\",t]" line. It returns
// ok=false for anything that isn't a well-formed CLCC line.
func ParseCLCC(line string) (rec CLCCRecord, ok bool) {
	body, ok := trimPrefixLine(line, PrefixCLCC)
	if !ok {
		return CLCCRecord{}, false
	}

	fields := splitFields(body)
	if len(fields) < 5 {
		return CLCCRecord{}, false
	}

	idx, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return CLCCRecord{}, false
	}

	dir, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return CLCCRecord{}, false
	}

	stat, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return CLCCRecord{}, false
	}

	rec.Index = idx
	if dir == 1 {
		rec.Direction = state.Incoming
	} else {
		rec.Direction = state.Outgoing
	}
	rec.Status = clccStatus(stat)

	if len(fields) >= 6 {
		num := unquote(strings.TrimSpace(fields[5]))
		if num != "" {
			rec.Number = num
			rec.HasNumber = true
		}
	}

	return rec, true
}

func clccStatus(s int) state.CallStatus {
	switch s {
	case 0:
		return state.CallActive
	case 1:
		return state.CallHeld
	case 2:
		return state.CallDialing
	case 3:
		return state.CallAlerting
	case 4:
		return state.CallIncoming
	case 5:
		return state.CallWaiting
	default:
		return state.CallIdle
	}
}

// ParseCOPS decodes a "+COPS: mode,fmt,\"name\"" line, returning the
// operator name.
func ParseCOPS(line string) (name string, ok bool) {
	body, ok := trimPrefixLine(line, PrefixCOPS)
	if !ok {
		return "", false
	}

	fields := splitFields(body)
	if len(fields) < 3 {
		return "", false
	}

	name = unquote(strings.TrimSpace(fields[2]))
	return name, true
}

// ParseCLIP decodes a "+CLIP: \"num\",type[,,,\"alpha\"]" line, returning
// the caller's number and, if present, a display name.
func ParseCLIP(line string) (number string, name string, hasName bool, ok bool) {
	body, ok := trimPrefixLine(line, PrefixCLIP)
	if !ok {
		return "", "", false, false
	}

	fields := splitFields(body)
	if len(fields) < 2 {
		return "", "", false, false
	}

	number = unquote(strings.TrimSpace(fields[0]))
	if len(fields) >= 5 {
		alpha := unquote(strings.TrimSpace(fields[4]))
		if alpha != "" {
			name = alpha
			hasName = true
		}
	}
	return number, name, hasName, true
}

func trimPrefixLine(line, prefix string) (string, bool) {
	line = strings.TrimSpace(line)
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	return strings.TrimSpace(line[len(prefix):]), true
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// splitFields splits a comma-separated AT parameter list, treating
// commas inside a double-quoted field as literal characters.
func splitFields(body string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false

	for _, r := range body {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			cur.WriteRune(r)
		case r == ',' && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, cur.String())
	return fields
}
