// Package schema validates records against their stream's JSON schema and
// marshals schema-typed values (date-times, decimals) for spool encoding.
package schema

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cperrin88/gostitch/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator validates records against a single stream's schema.
type Validator struct {
	compiled *jsonschema.Schema
	raw      map[string]interface{}
}

// NewValidator compiles the given JSON schema. A nil or empty schema yields a
// permissive validator, matching how streams without a SCHEMA message are
// handled.
func NewValidator(schemaJSON json.RawMessage) (*Validator, error) {
	if len(schemaJSON) == 0 {
		schemaJSON = json.RawMessage(`{}`)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(schemaJSON, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrSchemaInvalid, err.Error())
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft4
	compiler.AssertFormat = true
	if err := compiler.AddResource("stream.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, errors.Wrap(errors.ErrSchemaInvalid, err.Error())
	}

	compiled, err := compiler.Compile("stream.json")
	if err != nil {
		return nil, errors.Wrap(errors.ErrSchemaInvalid, err.Error())
	}

	return &Validator{compiled: compiled, raw: raw}, nil
}

// Validate checks the record against the schema.
func (v *Validator) Validate(record map[string]interface{}) error {
	if err := v.compiled.Validate(normalize(record)); err != nil {
		return errors.Wrap(errors.ErrRecordInvalid, err.Error())
	}
	return nil
}

// Raw returns the parsed schema document for marshalling walks.
func (v *Validator) Raw() map[string]interface{} {
	return v.raw
}

// RequireKeys verifies that every key property is present in the record. The
// gate rejects upserts with absent key columns, so catch it before sending.
func RequireKeys(record map[string]interface{}, keys []string) error {
	var missing []string
	for _, k := range keys {
		if _, ok := record[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return errors.Wrapf(errors.ErrRecordInvalid,
			"record is missing key properties: %s", strings.Join(missing, ", "))
	}
	return nil
}

// normalize converts the record to the value tree the validator expects.
// Floats are handed over as json.Number in their shortest decimal form so
// multipleOf checks run on exact decimal text instead of binary floats
// (10.42 is not a float multiple of 0.01).
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case float64:
		return json.Number(strconv.FormatFloat(val, 'g', -1, 64))
	default:
		return v
	}
}
