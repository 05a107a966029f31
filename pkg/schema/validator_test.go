package schema

import (
	"encoding/json"
	"testing"

	"github.com/cperrin88/gostitch/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_ValidRecord(t *testing.T) {
	v, err := NewValidator(json.RawMessage(`{
		"type": "object",
		"properties": {"name": {"type": "string"}}
	}`))
	require.NoError(t, err)

	assert.NoError(t, v.Validate(map[string]interface{}{"name": "test1-0"}))
}

func TestValidator_InvalidRecord(t *testing.T) {
	v, err := NewValidator(json.RawMessage(`{
		"type": "object",
		"properties": {"name": {"type": "string"}}
	}`))
	require.NoError(t, err)

	err = v.Validate(map[string]interface{}{"name": float64(1)})
	assert.ErrorIs(t, err, errors.ErrRecordInvalid)
}

func TestValidator_InvalidSchema(t *testing.T) {
	_, err := NewValidator(json.RawMessage(`{
		"type": "object",
		"properties": {"name": {"type": "orange"}}
	}`))
	assert.ErrorIs(t, err, errors.ErrSchemaInvalid)
}

func TestValidator_EmptySchemaIsPermissive(t *testing.T) {
	v, err := NewValidator(nil)
	require.NoError(t, err)

	assert.NoError(t, v.Validate(map[string]interface{}{"anything": []interface{}{1.0, "x"}}))
}

func TestValidator_NullableType(t *testing.T) {
	v, err := NewValidator(json.RawMessage(`{
		"type": "object",
		"properties": {"name": {"type": ["null", "string"]}}
	}`))
	require.NoError(t, err)

	assert.NoError(t, v.Validate(map[string]interface{}{"name": nil}))
	assert.NoError(t, v.Validate(map[string]interface{}{}))
}

func TestRequireKeys(t *testing.T) {
	record := map[string]interface{}{"id": 1.0, "name": "a"}

	assert.NoError(t, RequireKeys(record, []string{"id"}))
	assert.NoError(t, RequireKeys(record, nil))

	err := RequireKeys(map[string]interface{}{}, []string{"id", "name"})
	require.ErrorIs(t, err, errors.ErrRecordInvalid)
	assert.Contains(t, err.Error(), "id, name")
}

func TestValidator_MultipleOf(t *testing.T) {
	v, err := NewValidator(json.RawMessage(`{
		"type": "object",
		"properties": {"money": {"type": "number", "multipleOf": 0.01}}
	}`))
	require.NoError(t, err)

	assert.NoError(t, v.Validate(map[string]interface{}{"money": 10.42}))
}
