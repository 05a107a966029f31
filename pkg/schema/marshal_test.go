package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSchema(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &out))
	return out
}

func TestMarshalDateTimes(t *testing.T) {
	schema := parseSchema(t, `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"date": {"type": "string", "format": "date-time"}
		}
	}`)
	record := map[string]interface{}{
		"name": "test1-0",
		"date": "2018-01-01T00:00:00Z",
	}

	out, err := MarshalDateTimes(schema, record)
	require.NoError(t, err)

	assert.Equal(t, "test1-0", out["name"])
	assert.Equal(t, time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), out["date"])
}

func TestMarshalDateTimes_Nested(t *testing.T) {
	schema := parseSchema(t, `{
		"type": "object",
		"properties": {
			"events": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {"at": {"type": "string", "format": "date-time"}}
				}
			}
		}
	}`)
	record := map[string]interface{}{
		"events": []interface{}{
			map[string]interface{}{"at": "2020-06-01T12:30:00Z"},
		},
	}

	out, err := MarshalDateTimes(schema, record)
	require.NoError(t, err)

	events := out["events"].([]interface{})
	inner := events[0].(map[string]interface{})
	assert.Equal(t, time.Date(2020, 6, 1, 12, 30, 0, 0, time.UTC), inner["at"])
}

func TestMarshalDateTimes_BadValue(t *testing.T) {
	schema := parseSchema(t, `{
		"type": "object",
		"properties": {"date": {"type": "string", "format": "date-time"}}
	}`)
	record := map[string]interface{}{"date": "not a timestamp"}

	_, err := MarshalDateTimes(schema, record)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "date")
}

func TestMarshalDateTimes_NonDateStringsUntouched(t *testing.T) {
	schema := parseSchema(t, `{
		"type": "object",
		"properties": {"name": {"type": "string"}}
	}`)
	record := map[string]interface{}{"name": "2018-01-01T00:00:00Z"}

	out, err := MarshalDateTimes(schema, record)
	require.NoError(t, err)
	assert.Equal(t, "2018-01-01T00:00:00Z", out["name"])
}

func TestMarshalDecimals(t *testing.T) {
	schema := parseSchema(t, `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"money": {"type": "number", "multipleOf": 0.01}
		}
	}`)
	record := map[string]interface{}{
		"name":  "test1-0",
		"money": 10.42,
	}

	out, err := MarshalDecimals(schema, record)
	require.NoError(t, err)

	money, ok := out["money"].(decimal.Decimal)
	require.True(t, ok, "money should be a decimal")
	assert.True(t, money.Equal(decimal.RequireFromString("10.42")))
	assert.Equal(t, "test1-0", out["name"])
}

func TestMarshalDecimals_PlainNumbersUntouched(t *testing.T) {
	schema := parseSchema(t, `{
		"type": "object",
		"properties": {"count": {"type": "number"}}
	}`)
	record := map[string]interface{}{"count": 3.0}

	out, err := MarshalDecimals(schema, record)
	require.NoError(t, err)
	assert.Equal(t, 3.0, out["count"])
}

func TestWalk_NilSchema(t *testing.T) {
	record := map[string]interface{}{"x": "y"}
	out, err := MarshalDateTimes(nil, record)
	require.NoError(t, err)
	assert.Equal(t, record, out)
}
