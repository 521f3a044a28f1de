package gateway

import "bytes"

// lineBuffer splits a byte stream into newline-terminated lines, holding
// back the trailing fragment until its newline arrives.
type lineBuffer struct {
	buf     []byte
	maxLine int
	// discarding is set while skipping the rest of an oversized line.
	discarding bool
	dropped    int
}

func newLineBuffer(maxLine int) *lineBuffer {
	return &lineBuffer{maxLine: maxLine}
}

// Write appends chunk and returns the lines it completed, without their
// terminators. Returned slices do not alias the buffer.
func (b *lineBuffer) Write(chunk []byte) [][]byte {
	var lines [][]byte
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			b.appendFragment(chunk)
			break
		}
		if !b.discarding && b.appendFragment(chunk[:i]) {
			if line := b.take(); len(line) > 0 {
				lines = append(lines, line)
			}
		}
		b.discarding = false
		chunk = chunk[i+1:]
	}
	return lines
}

// Flush returns the trailing fragment once the stream has ended. EOF
// terminates the last line even without a newline.
func (b *lineBuffer) Flush() []byte {
	if b.discarding || len(b.buf) == 0 {
		b.buf = b.buf[:0]
		return nil
	}
	if line := b.take(); len(line) > 0 {
		return line
	}
	return nil
}

// Dropped reports how many oversized lines were skipped.
func (b *lineBuffer) Dropped() int {
	return b.dropped
}

func (b *lineBuffer) appendFragment(p []byte) bool {
	if b.discarding {
		return false
	}
	if b.maxLine > 0 && len(b.buf)+len(p) > b.maxLine {
		b.buf = b.buf[:0]
		b.discarding = true
		b.dropped++
		return false
	}
	b.buf = append(b.buf, p...)
	return true
}

func (b *lineBuffer) take() []byte {
	line := bytes.TrimSuffix(b.buf, []byte{'\r'})
	out := make([]byte, len(line))
	copy(out, line)
	b.buf = b.buf[:0]
	return out
}
