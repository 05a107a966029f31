package batch

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/cperrin88/gostitch/pkg/singer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordMsg(t *testing.T, stream string, record string, version ...int64) *singer.Message {
	t.Helper()
	line := fmt.Sprintf(`{"type":"RECORD","stream":"%s","record":%s}`, stream, record)
	if len(version) > 0 {
		line = fmt.Sprintf(`{"type":"RECORD","stream":"%s","record":%s,"version":%d}`, stream, record, version[0])
	}
	msg, err := singer.ParseMessage([]byte(line))
	require.NoError(t, err)
	return msg
}

func versionMsg(t *testing.T, stream string, version int64) *singer.Message {
	t.Helper()
	msg, err := singer.ParseMessage([]byte(
		fmt.Sprintf(`{"type":"ACTIVATE_VERSION","stream":"%s","version":%d}`, stream, version)))
	require.NoError(t, err)
	return msg
}

func TestManager_AddBelowLimits(t *testing.T) {
	m := NewManager(1000, 10)

	batch, full := m.Add(recordMsg(t, "users", `{"id":1}`))
	assert.Nil(t, batch)
	assert.False(t, full)
	assert.Equal(t, 1, m.Pending())
}

func TestManager_RecordLimitTriggersDrain(t *testing.T) {
	m := NewManager(1_000_000, 2)

	_, full := m.Add(recordMsg(t, "users", `{"id":1}`))
	require.False(t, full)

	batch, full := m.Add(recordMsg(t, "users", `{"id":2}`))
	require.True(t, full)
	require.NotNil(t, batch)
	assert.Equal(t, "users", batch.Stream)
	assert.Len(t, batch.Messages, 2)
	assert.Equal(t, 0, m.Pending())
}

func TestManager_ByteLimitTriggersDrain(t *testing.T) {
	m := NewManager(10, 1000)

	batch, full := m.Add(recordMsg(t, "users", `{"id":"0123456789"}`))
	require.True(t, full)
	assert.GreaterOrEqual(t, batch.Bytes, 10)
}

func TestManager_StreamsAreIndependent(t *testing.T) {
	m := NewManager(1_000_000, 2)

	_, full := m.Add(recordMsg(t, "users", `{"id":1}`))
	require.False(t, full)
	_, full = m.Add(recordMsg(t, "orders", `{"id":1}`))
	require.False(t, full)

	batch, full := m.Add(recordMsg(t, "users", `{"id":2}`))
	require.True(t, full)
	assert.Equal(t, "users", batch.Stream)
	assert.Equal(t, 1, m.Pending(), "orders should still be buffered")
}

func TestManager_SchemaMetadataFlowsIntoBatch(t *testing.T) {
	m := NewManager(1_000_000, 10)
	m.SetSchema("users", json.RawMessage(`{"type":"object"}`), []string{"id"}, []string{"updated_at"})

	m.Add(recordMsg(t, "users", `{"id":1}`))
	batch := m.Drain("users")
	require.NotNil(t, batch)

	assert.JSONEq(t, `{"type":"object"}`, string(batch.Schema))
	assert.Equal(t, []string{"id"}, batch.KeyNames)
	assert.Equal(t, []string{"updated_at"}, batch.BookmarkNames)
}

func TestManager_TableVersionFromFirstMessage(t *testing.T) {
	m := NewManager(1_000_000, 10)

	m.Add(recordMsg(t, "users", `{"id":1}`, 7))
	m.Add(versionMsg(t, "users", 7))
	batch := m.Drain("users")
	require.NotNil(t, batch)

	require.NotNil(t, batch.TableVersion)
	assert.Equal(t, int64(7), *batch.TableVersion)
	assert.Equal(t, ActionUpsert, batch.Messages[0].Action)
	assert.Equal(t, ActionActivateVersion, batch.Messages[1].Action)
}

func TestManager_DrainEmptyStream(t *testing.T) {
	m := NewManager(1000, 10)
	assert.Nil(t, m.Drain("nope"))
}

func TestManager_DrainAll(t *testing.T) {
	m := NewManager(1_000_000, 10)
	m.Add(recordMsg(t, "users", `{"id":1}`))
	m.Add(recordMsg(t, "orders", `{"id":2}`))

	batches := m.DrainAll()
	assert.Len(t, batches, 2)
	assert.Equal(t, 0, m.Pending())
	assert.Empty(t, m.DrainAll())
}
