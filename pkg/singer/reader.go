package singer

import (
	"bufio"
	"bytes"
	"io"

	"github.com/cperrin88/gostitch/pkg/errors"
)

// MaxLineBytes bounds a single input line. Taps emit one message per line;
// a record near the gate's request limit still fits well inside this.
const MaxLineBytes = 20 * 1024 * 1024

// Reader delivers raw Singer message lines from an input stream, skipping
// blank lines and tracking line numbers for error reporting.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxLineBytes)
	return &Reader{scanner: scanner}
}

// Next returns the next non-blank line. io.EOF signals a clean end of input.
func (r *Reader) Next() ([]byte, error) {
	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		// The scanner reuses its buffer, so hand out a copy.
		out := make([]byte, len(line))
		copy(out, line)
		return out, nil
	}

	if err := r.scanner.Err(); err != nil {
		if err == bufio.ErrTooLong {
			return nil, errors.Wrapf(errors.ErrLineTooLong, "line %d is over %d bytes", r.line+1, MaxLineBytes)
		}
		return nil, errors.Wrapf(err, "failed reading line %d", r.line+1)
	}
	return nil, io.EOF
}

// Line returns the number of the most recently delivered line.
func (r *Reader) Line() int {
	return r.line
}
