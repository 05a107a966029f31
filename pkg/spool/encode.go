package spool

import (
	"bytes"
	"time"

	"github.com/cperrin88/gostitch/pkg/batch"
	"github.com/cperrin88/gostitch/pkg/errors"
	"github.com/mholt/archives"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

// Envelope format identifiers carried in every spooled message.
const (
	MessageVersion  = 2
	PipelineVersion = 2

	// Format names the encoding of uploaded batch objects.
	Format = "msgpack+gzip"

	// FormatVersion tracks the envelope layout.
	FormatVersion = "1"
)

// Envelope wraps one message for the downstream pipeline.
type Envelope struct {
	MessageVersion  int                  `msgpack:"message_version"`
	PipelineVersion int                  `msgpack:"pipeline_version"`
	Timestamps      map[string]time.Time `msgpack:"timestamps"`
	Body            EnvelopeBody         `msgpack:"body"`
}

// EnvelopeBody carries the actual persistence instruction.
type EnvelopeBody struct {
	ClientID  int                    `msgpack:"client_id"`
	Namespace string                 `msgpack:"namespace"`
	TableName string                 `msgpack:"table_name"`
	Action    batch.Action           `msgpack:"action"`
	Sequence  int64                  `msgpack:"sequence"`
	KeyNames  []string               `msgpack:"key_names,omitempty"`
	Data      map[string]interface{} `msgpack:"data,omitempty"`
}

// NewEnvelope stamps a body with the current pipeline versions and receive time.
func NewEnvelope(body EnvelopeBody, receivedAt time.Time) Envelope {
	return Envelope{
		MessageVersion:  MessageVersion,
		PipelineVersion: PipelineVersion,
		Timestamps:      map[string]time.Time{"_rjm_received_at": receivedAt.UTC()},
		Body:            body,
	}
}

// EncodeEnvelopes serializes the envelope stream as gzipped msgpack.
// Decimal values are rendered as their exact decimal text so downstream
// consumers never see binary float drift.
func EncodeEnvelopes(envelopes []Envelope) ([]byte, error) {
	var buf bytes.Buffer

	gz, err := archives.Gz{}.OpenWriter(&buf)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open gzip writer")
	}

	enc := msgpack.NewEncoder(gz)
	for i := range envelopes {
		envelopes[i].Body.Data = sanitizeData(envelopes[i].Body.Data)
		if err := enc.Encode(&envelopes[i]); err != nil {
			_ = gz.Close()
			return nil, errors.Wrap(err, "failed to encode envelope")
		}
	}

	if err := gz.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to finish gzip stream")
	}
	return buf.Bytes(), nil
}

// DecodeEnvelopes reads back an encoded envelope stream. Used by tests and
// the spool inspection tooling.
func DecodeEnvelopes(data []byte) ([]Envelope, error) {
	gz, err := archives.Gz{}.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open gzip reader")
	}
	defer func() { _ = gz.Close() }()

	var out []Envelope
	dec := msgpack.NewDecoder(gz)
	for {
		var env Envelope
		if err := dec.Decode(&env); err != nil {
			break
		}
		out = append(out, env)
	}
	return out, nil
}

// sanitizeData rewrites values msgpack cannot represent faithfully.
func sanitizeData(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	out, _ := sanitizeValue(data).(map[string]interface{})
	return out
}

func sanitizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case decimal.Decimal:
		return val.String()
	case map[string]interface{}:
		for k, item := range val {
			val[k] = sanitizeValue(item)
		}
		return val
	case []interface{}:
		for i, item := range val {
			val[i] = sanitizeValue(item)
		}
		return val
	default:
		return v
	}
}
