// Package state tracks the most recent STATE value seen on the input and
// emits it once every record that preceded it has been persisted.
package state

import (
	"encoding/json"
	"io"

	"github.com/cperrin88/gostitch/internal/logger"
	"github.com/cperrin88/gostitch/pkg/errors"
)

// Emitter buffers the latest state value and writes it out when released.
// Emitted state lines are the only thing written to the output stream.
type Emitter struct {
	out     io.Writer
	pending json.RawMessage
	emitted int
}

// NewEmitter creates an emitter writing state lines to out.
func NewEmitter(out io.Writer) *Emitter {
	return &Emitter{out: out}
}

// Set replaces the pending state value. Only the latest value matters; a
// newer STATE message supersedes any unemitted predecessor.
func (e *Emitter) Set(value json.RawMessage) {
	e.pending = value
}

// HasPending reports whether an unemitted state value is buffered.
func (e *Emitter) HasPending() bool {
	return e.pending != nil
}

// Emit writes the pending state value followed by a newline and clears it.
// A no-op when nothing is pending. The caller must only call this once all
// records read before the state value were persisted.
func (e *Emitter) Emit() error {
	if e.pending == nil {
		return nil
	}

	line := append(json.RawMessage{}, e.pending...)
	line = append(line, '\n')
	if _, err := e.out.Write(line); err != nil {
		return errors.Wrap(err, "failed to write state")
	}

	logger.Debugf("Emitting state %s", e.pending)
	e.pending = nil
	e.emitted++
	return nil
}

// Emitted returns the number of state values written so far.
func (e *Emitter) Emitted() int {
	return e.emitted
}
