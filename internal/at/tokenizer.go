package at

import (
	"bufio"
	"bytes"
)

// Splitter is a bufio.SplitFunc that frames raw bytes from an AT-capable
// transport into lines, splitting on CRLF. Leading empty lines (a bare
// CRLF, common between an echoed command and its response) are skipped
// by the caller, not by Splitter itself.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.Index(data, []byte(CRLF)); i >= 0 {
		return i + len(CRLF), data[0:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter
