package provider

import (
	"bytes"

	"github.com/bazelment/agentgate/protocol"
)

// TrimLine strips surrounding whitespace, including a trailing CR.
func TrimLine(line []byte) []byte {
	return bytes.TrimSpace(line)
}

// LooksLikeJSON reports whether a trimmed line starts like a JSON value.
func LooksLikeJSON(line []byte) bool {
	return len(line) > 0 && (line[0] == '{' || line[0] == '[')
}

// PlainText is the fallback for lines that do not decode. Blank lines and
// JSON-looking garbage are dropped. Anything else is surfaced as assistant
// text so banners and warnings from the CLI are not silently lost.
func PlainText(line []byte) (protocol.Event, bool) {
	line = TrimLine(line)
	if len(line) == 0 || LooksLikeJSON(line) {
		return nil, false
	}
	return protocol.Assistant{Text: string(line)}, true
}
