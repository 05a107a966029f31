package singer

import (
	"testing"

	"github.com/cperrin88/gostitch/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage_Record(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"RECORD","stream":"users","record":{"id":1,"name":"mike"},"version":2,"time_extracted":"2024-01-01T00:00:00Z"}`))
	require.NoError(t, err)

	assert.Equal(t, TypeRecord, msg.Type)
	assert.Equal(t, "users", msg.Stream)
	assert.Equal(t, "mike", msg.Record["name"])
	require.NotNil(t, msg.Version)
	assert.Equal(t, int64(2), *msg.Version)
	assert.Equal(t, "2024-01-01T00:00:00Z", msg.TimeExtracted)
	assert.JSONEq(t, `{"id":1,"name":"mike"}`, string(msg.RawRecord))
}

func TestParseMessage_Schema(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"SCHEMA","stream":"users","key_properties":["id"],"bookmark_properties":["updated_at"],"schema":{"type":"object"}}`))
	require.NoError(t, err)

	assert.Equal(t, TypeSchema, msg.Type)
	assert.Equal(t, []string{"id"}, msg.KeyProperties)
	assert.Equal(t, []string{"updated_at"}, msg.BookmarkProperties)
	assert.JSONEq(t, `{"type":"object"}`, string(msg.Schema))
}

func TestParseMessage_State(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"STATE","value":{"bookmarks":{"users":5}}}`))
	require.NoError(t, err)

	assert.Equal(t, TypeState, msg.Type)
	assert.JSONEq(t, `{"bookmarks":{"users":5}}`, string(msg.Value))
}

func TestParseMessage_ActivateVersion(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"ACTIVATE_VERSION","stream":"users","version":3}`))
	require.NoError(t, err)

	assert.Equal(t, TypeActivateVersion, msg.Type)
	require.NotNil(t, msg.Version)
	assert.Equal(t, int64(3), *msg.Version)
}

func TestParseMessage_UnknownType(t *testing.T) {
	_, err := ParseMessage([]byte(`{"type":"FROBNICATE"}`))
	assert.ErrorIs(t, err, errors.ErrUnknownMessageType)
}

func TestParseMessage_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"record without stream", `{"type":"RECORD","record":{"a":1}}`},
		{"record without record", `{"type":"RECORD","stream":"users"}`},
		{"schema without schema", `{"type":"SCHEMA","stream":"users"}`},
		{"state without value", `{"type":"STATE"}`},
		{"activate without version", `{"type":"ACTIVATE_VERSION","stream":"users"}`},
		{"no type", `{"stream":"users"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage([]byte(tt.line))
			assert.ErrorIs(t, err, errors.ErrMessageMissingKey, "expected missing-key error")
		})
	}
}

func TestParseMessage_InvalidJSON(t *testing.T) {
	_, err := ParseMessage([]byte(`{not json`))
	assert.Error(t, err)
}

func TestParseMessage_RecordNotObject(t *testing.T) {
	_, err := ParseMessage([]byte(`{"type":"RECORD","stream":"users","record":[1,2]}`))
	assert.Error(t, err)
}
