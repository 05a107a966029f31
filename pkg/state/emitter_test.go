package state

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmit_NothingPending(t *testing.T) {
	var out bytes.Buffer
	e := NewEmitter(&out)

	require.NoError(t, e.Emit())
	assert.Empty(t, out.String())
	assert.Equal(t, 0, e.Emitted())
}

func TestEmit_WritesLatestValueOnce(t *testing.T) {
	var out bytes.Buffer
	e := NewEmitter(&out)

	e.Set(json.RawMessage(`{"bookmarks":{"users":1}}`))
	e.Set(json.RawMessage(`{"bookmarks":{"users":2}}`))
	assert.True(t, e.HasPending())

	require.NoError(t, e.Emit())
	assert.Equal(t, "{\"bookmarks\":{\"users\":2}}\n", out.String())
	assert.False(t, e.HasPending())
	assert.Equal(t, 1, e.Emitted())

	// emitting again writes nothing
	require.NoError(t, e.Emit())
	assert.Equal(t, "{\"bookmarks\":{\"users\":2}}\n", out.String())
}

func TestEmit_SequentialValues(t *testing.T) {
	var out bytes.Buffer
	e := NewEmitter(&out)

	e.Set(json.RawMessage(`{"n":1}`))
	require.NoError(t, e.Emit())
	e.Set(json.RawMessage(`{"n":2}`))
	require.NoError(t, e.Emit())

	assert.Equal(t, "{\"n\":1}\n{\"n\":2}\n", out.String())
	assert.Equal(t, 2, e.Emitted())
}
