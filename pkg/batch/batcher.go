// Package batch buffers parsed Singer messages per stream and serializes
// them into gate request bodies.
package batch

import (
	"encoding/json"

	"github.com/cperrin88/gostitch/pkg/singer"
)

// Action is the persistence action carried by a buffered message.
type Action string

// Actions understood by the gate and the spool.
const (
	ActionUpsert          Action = "upsert"
	ActionActivateVersion Action = "activate_version"
	ActionSwitchView      Action = "switch_view"
)

// Message is one buffered record or version activation.
type Message struct {
	Action        Action
	Record        map[string]interface{}
	RawRecord     json.RawMessage
	TimeExtracted string
	Version       *int64
}

// Batch is a drained buffer ready for serialization and sending.
type Batch struct {
	Stream        string
	Schema        json.RawMessage
	KeyNames      []string
	BookmarkNames []string
	TableVersion  *int64
	Messages      []Message

	// Bytes is the buffered record byte size at drain time; the spool
	// router uses it to pick the send path.
	Bytes int
}

// Buffer accumulates messages for one stream.
type Buffer struct {
	stream        string
	schema        json.RawMessage
	keyNames      []string
	bookmarkNames []string

	messages []Message
	bytes    int
}

// Manager owns the per-stream buffers and the flush limits.
type Manager struct {
	maxBytes   int
	maxRecords int
	buffers    map[string]*Buffer
}

// NewManager creates a buffer manager with the given flush limits.
func NewManager(maxBytes, maxRecords int) *Manager {
	return &Manager{
		maxBytes:   maxBytes,
		maxRecords: maxRecords,
		buffers:    make(map[string]*Buffer),
	}
}

func (m *Manager) buffer(stream string) *Buffer {
	buf, ok := m.buffers[stream]
	if !ok {
		buf = &Buffer{stream: stream}
		m.buffers[stream] = buf
	}
	return buf
}

// SetSchema records the schema and key metadata for a stream. The caller must
// flush the stream first if records for a previous schema are still buffered.
func (m *Manager) SetSchema(stream string, schema json.RawMessage, keyNames, bookmarkNames []string) {
	buf := m.buffer(stream)
	buf.schema = schema
	buf.keyNames = keyNames
	buf.bookmarkNames = bookmarkNames
}

// Schema returns the stored schema metadata for a stream. Streams that never
// saw a SCHEMA message report an empty schema and no keys.
func (m *Manager) Schema(stream string) (json.RawMessage, []string, []string) {
	buf, ok := m.buffers[stream]
	if !ok {
		return nil, nil, nil
	}
	return buf.schema, buf.keyNames, buf.bookmarkNames
}

// Add buffers a RECORD or ACTIVATE_VERSION message. When the addition pushes
// the stream's buffer over a flush limit, the drained batch is returned.
func (m *Manager) Add(msg *singer.Message) (*Batch, bool) {
	buf := m.buffer(msg.Stream)

	switch msg.Type {
	case singer.TypeRecord:
		buf.messages = append(buf.messages, Message{
			Action:        ActionUpsert,
			Record:        msg.Record,
			RawRecord:     msg.RawRecord,
			TimeExtracted: msg.TimeExtracted,
			Version:       msg.Version,
		})
		buf.bytes += len(msg.RawRecord)
	case singer.TypeActivateVersion:
		buf.messages = append(buf.messages, Message{
			Action:  ActionActivateVersion,
			Version: msg.Version,
		})
	default:
		return nil, false
	}

	if buf.bytes >= m.maxBytes || len(buf.messages) >= m.maxRecords {
		return m.drain(buf), true
	}
	return nil, false
}

// Drain flushes one stream's buffer, returning nil when nothing is buffered.
func (m *Manager) Drain(stream string) *Batch {
	buf, ok := m.buffers[stream]
	if !ok || len(buf.messages) == 0 {
		return nil
	}
	return m.drain(buf)
}

// DrainAll flushes every non-empty buffer.
func (m *Manager) DrainAll() []*Batch {
	var batches []*Batch
	for _, buf := range m.buffers {
		if len(buf.messages) == 0 {
			continue
		}
		batches = append(batches, m.drain(buf))
	}
	return batches
}

// Pending returns the total number of buffered messages across all streams.
func (m *Manager) Pending() int {
	total := 0
	for _, buf := range m.buffers {
		total += len(buf.messages)
	}
	return total
}

func (m *Manager) drain(buf *Buffer) *Batch {
	batch := &Batch{
		Stream:        buf.stream,
		Schema:        buf.schema,
		KeyNames:      buf.keyNames,
		BookmarkNames: buf.bookmarkNames,
		TableVersion:  tableVersion(buf.messages),
		Messages:      buf.messages,
		Bytes:         buf.bytes,
	}
	buf.messages = nil
	buf.bytes = 0
	return batch
}

// tableVersion takes the version from the first buffered message carrying one.
func tableVersion(messages []Message) *int64 {
	if len(messages) == 0 {
		return nil
	}
	return messages[0].Version
}
