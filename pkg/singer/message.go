package singer

import (
	"encoding/json"

	"github.com/cperrin88/gostitch/pkg/errors"
)

// MessageType identifies a Singer message.
type MessageType string

// Message types defined by the Singer specification.
const (
	TypeRecord          MessageType = "RECORD"
	TypeSchema          MessageType = "SCHEMA"
	TypeState           MessageType = "STATE"
	TypeActivateVersion MessageType = "ACTIVATE_VERSION"
)

// Message is a single parsed Singer message. Only the fields relevant to the
// message type are populated.
type Message struct {
	Type   MessageType
	Stream string

	// RECORD fields. RawRecord preserves the original JSON so byte-size
	// accounting and serialization do not depend on map iteration order.
	Record        map[string]interface{}
	RawRecord     json.RawMessage
	TimeExtracted string

	// RECORD and ACTIVATE_VERSION field.
	Version *int64

	// SCHEMA fields.
	Schema             json.RawMessage
	KeyProperties      []string
	BookmarkProperties []string

	// STATE field.
	Value json.RawMessage
}

// envelope mirrors the wire form of every message type.
type envelope struct {
	Type               string          `json:"type"`
	Stream             string          `json:"stream"`
	Record             json.RawMessage `json:"record"`
	Version            *int64          `json:"version"`
	TimeExtracted      string          `json:"time_extracted"`
	Schema             json.RawMessage `json:"schema"`
	KeyProperties      []string        `json:"key_properties"`
	BookmarkProperties []string        `json:"bookmark_properties"`
	Value              json.RawMessage `json:"value"`
}

// ParseMessage parses a single line of Singer input.
func ParseMessage(line []byte) (*Message, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, errors.Wrap(err, "failed to parse message")
	}

	if env.Type == "" {
		return nil, errors.Wrap(errors.ErrMessageMissingKey, "type")
	}

	switch MessageType(env.Type) {
	case TypeRecord:
		return parseRecord(&env)
	case TypeSchema:
		return parseSchema(&env)
	case TypeState:
		return parseState(&env)
	case TypeActivateVersion:
		return parseActivateVersion(&env)
	default:
		return nil, errors.Wrapf(errors.ErrUnknownMessageType, "%q", env.Type)
	}
}

func parseRecord(env *envelope) (*Message, error) {
	if env.Stream == "" {
		return nil, errors.Wrap(errors.ErrMessageMissingKey, "RECORD requires stream")
	}
	if len(env.Record) == 0 {
		return nil, errors.Wrap(errors.ErrMessageMissingKey, "RECORD requires record")
	}

	var record map[string]interface{}
	if err := json.Unmarshal(env.Record, &record); err != nil {
		return nil, errors.Wrapf(err, "record for stream %s is not an object", env.Stream)
	}

	return &Message{
		Type:          TypeRecord,
		Stream:        env.Stream,
		Record:        record,
		RawRecord:     env.Record,
		Version:       env.Version,
		TimeExtracted: env.TimeExtracted,
	}, nil
}

func parseSchema(env *envelope) (*Message, error) {
	if env.Stream == "" {
		return nil, errors.Wrap(errors.ErrMessageMissingKey, "SCHEMA requires stream")
	}
	if len(env.Schema) == 0 {
		return nil, errors.Wrap(errors.ErrMessageMissingKey, "SCHEMA requires schema")
	}

	return &Message{
		Type:               TypeSchema,
		Stream:             env.Stream,
		Schema:             env.Schema,
		KeyProperties:      env.KeyProperties,
		BookmarkProperties: env.BookmarkProperties,
	}, nil
}

func parseState(env *envelope) (*Message, error) {
	if len(env.Value) == 0 {
		return nil, errors.Wrap(errors.ErrMessageMissingKey, "STATE requires value")
	}

	return &Message{
		Type:  TypeState,
		Value: env.Value,
	}, nil
}

func parseActivateVersion(env *envelope) (*Message, error) {
	if env.Stream == "" {
		return nil, errors.Wrap(errors.ErrMessageMissingKey, "ACTIVATE_VERSION requires stream")
	}
	if env.Version == nil {
		return nil, errors.Wrap(errors.ErrMessageMissingKey, "ACTIVATE_VERSION requires version")
	}

	return &Message{
		Type:    TypeActivateVersion,
		Stream:  env.Stream,
		Version: env.Version,
	}, nil
}
