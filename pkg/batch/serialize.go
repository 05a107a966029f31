package batch

import (
	"encoding/json"

	"github.com/cperrin88/gostitch/internal/logger"
	"github.com/cperrin88/gostitch/pkg/errors"
)

// gateMessage is the wire form of a single message inside a gate body.
type gateMessage struct {
	Action        Action          `json:"action"`
	Data          json.RawMessage `json:"data,omitempty"`
	Sequence      int64           `json:"sequence"`
	TimeExtracted string          `json:"time_extracted,omitempty"`
}

// gateBody is the wire form of one gate request.
type gateBody struct {
	TableName     string          `json:"table_name"`
	Schema        json.RawMessage `json:"schema"`
	KeyNames      []string        `json:"key_names"`
	TableVersion  *int64          `json:"table_version,omitempty"`
	BookmarkNames []string        `json:"bookmark_names,omitempty"`
	Messages      []gateMessage   `json:"messages"`
}

// Serialize produces the request bodies for a batch.
//
// It builds a body containing every message and serializes it as JSON. If the
// result exceeds maxBytes, the batch is split in half and serialized
// recursively. A single message that alone exceeds the limit cannot be sent.
func Serialize(b *Batch, gen *SequenceGenerator, maxBytes int) ([][]byte, error) {
	if len(b.Messages) == 0 {
		return nil, errors.ErrBatchEmpty
	}

	wire := make([]gateMessage, len(b.Messages))
	for i, msg := range b.Messages {
		wire[i] = gateMessage{
			Action:        msg.Action,
			Data:          msg.RawRecord,
			Sequence:      gen.Generate(i),
			TimeExtracted: msg.TimeExtracted,
		}
	}

	return serialize(b, wire, maxBytes)
}

func serialize(b *Batch, wire []gateMessage, maxBytes int) ([][]byte, error) {
	schema := b.Schema
	if len(schema) == 0 {
		schema = json.RawMessage(`{}`)
	}
	keyNames := b.KeyNames
	if keyNames == nil {
		keyNames = []string{}
	}

	body := gateBody{
		TableName:     b.Stream,
		Schema:        schema,
		KeyNames:      keyNames,
		TableVersion:  b.TableVersion,
		BookmarkNames: b.BookmarkNames,
		Messages:      wire,
	}

	serialized, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to serialize batch for table %s", b.Stream)
	}

	logger.Debugf("Serialized %d messages into %d bytes", len(wire), len(serialized))

	if len(serialized) < maxBytes {
		return [][]byte{serialized}, nil
	}

	if len(wire) <= 1 {
		return nil, errors.Wrapf(errors.ErrBatchTooLarge,
			"table %s: limit is %d Mb", b.Stream, maxBytes/1_000_000)
	}

	pivot := len(wire) / 2
	left, err := serialize(b, wire[:pivot], maxBytes)
	if err != nil {
		return nil, err
	}
	right, err := serialize(b, wire[pivot:], maxBytes)
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}
