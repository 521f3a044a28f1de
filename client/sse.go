package client

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

const maxFrameBytes = 32 << 20

// sseReader yields the data payload of each server-sent event.
type sseReader struct {
	scanner *bufio.Scanner
}

func newSSEReader(source io.Reader) *sseReader {
	scanner := bufio.NewScanner(source)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameBytes)
	return &sseReader{scanner: scanner}
}

// Next returns the next event payload, joining multi-line data fields with
// newlines. It returns io.EOF when the source ends.
func (r *sseReader) Next() ([]byte, error) {
	var data []byte
	var seen bool
	for r.scanner.Scan() {
		line := bytes.TrimRight(r.scanner.Bytes(), "\r")
		if len(line) == 0 {
			if seen {
				return data, nil
			}
			continue
		}
		if line[0] == ':' {
			continue
		}
		field, value, _ := bytes.Cut(line, []byte(":"))
		value = bytes.TrimPrefix(value, []byte(" "))
		switch string(field) {
		case "data":
			if seen {
				data = append(data, '\n')
			}
			data = append(data, value...)
			seen = true
		case "event", "id", "retry":
		default:
			return nil, fmt.Errorf("decode stream event: unsupported SSE field %q", field)
		}
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if seen {
		return data, nil
	}
	return nil, io.EOF
}
