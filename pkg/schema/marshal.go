package schema

import (
	"time"

	"github.com/cperrin88/gostitch/pkg/errors"
	"github.com/shopspring/decimal"
)

// predicate decides whether a leaf value should be rewritten for the schema
// node governing it.
type predicate func(schema map[string]interface{}, data interface{}) bool

// marshaller rewrites a leaf value.
type marshaller func(data interface{}) (interface{}, error)

// walk recursively applies fn to every value whose schema node satisfies
// pred, descending through object properties and array items.
func walk(schema map[string]interface{}, data interface{}, pred predicate, fn marshaller) (interface{}, error) {
	if schema == nil {
		return data, nil
	}

	if props, ok := schema["properties"].(map[string]interface{}); ok {
		if obj, isObj := data.(map[string]interface{}); isObj {
			for key, sub := range props {
				subSchema, isMap := sub.(map[string]interface{})
				if !isMap {
					continue
				}
				if val, present := obj[key]; present {
					out, err := walk(subSchema, val, pred, fn)
					if err != nil {
						return nil, errors.Wrapf(err, "property %q", key)
					}
					obj[key] = out
				}
			}
			return obj, nil
		}
	}

	if items, ok := schema["items"].(map[string]interface{}); ok {
		if arr, isArr := data.([]interface{}); isArr {
			for i := range arr {
				out, err := walk(items, arr[i], pred, fn)
				if err != nil {
					return nil, errors.Wrapf(err, "item %d", i)
				}
				arr[i] = out
			}
			return arr, nil
		}
	}

	if pred(schema, data) {
		return fn(data)
	}

	return data, nil
}

// MarshalDateTimes converts every date-time formatted string governed by the
// schema into a UTC time.Time. The record is modified in place and returned.
func MarshalDateTimes(schema map[string]interface{}, record map[string]interface{}) (map[string]interface{}, error) {
	out, err := walk(schema, record,
		func(s map[string]interface{}, d interface{}) bool {
			_, isStr := d.(string)
			return isStr && s["format"] == "date-time"
		},
		func(d interface{}) (interface{}, error) {
			ts, err := time.Parse(time.RFC3339, d.(string))
			if err != nil {
				return nil, errors.Wrapf(err, "invalid date-time value %q", d)
			}
			return ts.UTC(), nil
		})
	if err != nil {
		return nil, err
	}
	return out.(map[string]interface{}), nil
}

// MarshalDecimals converts every number governed by a multipleOf schema node
// into a decimal. The record is modified in place and returned.
func MarshalDecimals(schema map[string]interface{}, record map[string]interface{}) (map[string]interface{}, error) {
	out, err := walk(schema, record,
		func(s map[string]interface{}, d interface{}) bool {
			_, hasMultiple := s["multipleOf"]
			if !hasMultiple {
				return false
			}
			_, isNum := d.(float64)
			return isNum
		},
		func(d interface{}) (interface{}, error) {
			return decimal.NewFromFloat(d.(float64)), nil
		})
	if err != nil {
		return nil, err
	}
	return out.(map[string]interface{}), nil
}
