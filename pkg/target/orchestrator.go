// Package target ties the input reader, validation, batching and the send
// paths together into the record processing loop.
package target

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/cperrin88/gostitch/internal/logger"
	"github.com/cperrin88/gostitch/pkg/batch"
	"github.com/cperrin88/gostitch/pkg/errors"
	"github.com/cperrin88/gostitch/pkg/gate"
	"github.com/cperrin88/gostitch/pkg/hook"
	"github.com/cperrin88/gostitch/pkg/schema"
	"github.com/cperrin88/gostitch/pkg/singer"
	"github.com/cperrin88/gostitch/pkg/state"
)

// route is the sticky send path of a table.
type route int

const (
	routeUndecided route = iota
	routeGate
	routeSpool
)

// Stats counts what a run did.
type Stats struct {
	RecordsRead      int
	RecordsPersisted int
	RecordsDropped   int
	BatchesSent      int
	BatchesSpooled   int
	BytesSent        int
	StatesEmitted    int
}

// Options control the processing loop.
type Options struct {
	MaxBatchBytes   int
	MaxBatchRecords int
	FlushInterval   time.Duration

	// SpoolThresholdBytes routes a table to the spool once a drained batch
	// reaches this size. Zero disables spool routing.
	SpoolThresholdBytes int
}

// Orchestrator drives the message loop: it reads Singer messages, validates
// records, buffers them per stream and persists drained batches through the
// gate or the spool.
type Orchestrator struct {
	opts    Options
	sender  gate.Sender
	spooler Persister
	hooks   hook.Executor
	emitter *state.Emitter

	batches    *batch.Manager
	sequences  *batch.SequenceGenerator
	validators map[string]*schema.Validator
	routes     map[string]route

	stats     Stats
	lastFlush time.Time
	now       func() time.Time
}

// NewOrchestrator wires an orchestrator. The spooler may be nil when the
// spool is disabled; hooks may be nil when no scripts are configured.
func NewOrchestrator(opts Options, sender gate.Sender, spooler Persister, hooks hook.Executor, emitter *state.Emitter) *Orchestrator {
	if hooks == nil {
		hooks = hook.NewTengoExecutor()
	}
	return &Orchestrator{
		opts:       opts,
		sender:     sender,
		spooler:    spooler,
		hooks:      hooks,
		emitter:    emitter,
		batches:    batch.NewManager(opts.MaxBatchBytes, opts.MaxBatchRecords),
		sequences:  batch.NewSequenceGenerator(opts.MaxBatchRecords),
		validators: make(map[string]*schema.Validator),
		routes:     make(map[string]route),
		now:        time.Now,
	}
}

// Stats returns the counters of the run so far.
func (o *Orchestrator) Stats() Stats {
	s := o.stats
	s.StatesEmitted = o.emitter.Emitted()
	return s
}

// Run processes Singer messages from in until EOF. On a clean end of input
// every buffered record is flushed and the final state is emitted.
func (o *Orchestrator) Run(ctx context.Context, in io.Reader) error {
	reader := singer.NewReader(in)
	o.lastFlush = o.now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		msg, err := singer.ParseMessage(line)
		if err != nil {
			return errors.Wrapf(err, "line %d", reader.Line())
		}

		if err := o.handle(ctx, msg); err != nil {
			return errors.Wrapf(err, "line %d", reader.Line())
		}

		if o.opts.FlushInterval > 0 && o.now().Sub(o.lastFlush) >= o.opts.FlushInterval && o.batches.Pending() > 0 {
			if err := o.flushAll(ctx); err != nil {
				return err
			}
		}
	}

	if err := o.flushAll(ctx); err != nil {
		return err
	}

	stats := o.Stats()
	logger.Info("Run complete", logger.Fields{
		"records_read":      stats.RecordsRead,
		"records_persisted": stats.RecordsPersisted,
		"records_dropped":   stats.RecordsDropped,
		"batches_sent":      stats.BatchesSent,
		"batches_spooled":   stats.BatchesSpooled,
		"bytes_sent":        stats.BytesSent,
		"states_emitted":    stats.StatesEmitted,
	})
	return nil
}

func (o *Orchestrator) handle(ctx context.Context, msg *singer.Message) error {
	switch msg.Type {
	case singer.TypeSchema:
		return o.handleSchema(ctx, msg)
	case singer.TypeRecord:
		return o.handleRecord(ctx, msg)
	case singer.TypeActivateVersion:
		return o.handleActivateVersion(ctx, msg)
	case singer.TypeState:
		return o.handleState(msg)
	default:
		return errors.Wrapf(errors.ErrUnknownMessageType, "%q", msg.Type)
	}
}

// handleSchema registers a stream's schema. Records buffered under the
// previous schema are flushed first so every gate body carries the schema
// its records were validated against.
func (o *Orchestrator) handleSchema(ctx context.Context, msg *singer.Message) error {
	if b := o.batches.Drain(msg.Stream); b != nil {
		if err := o.persistAndRelease(ctx, b); err != nil {
			return err
		}
	}

	validator, err := schema.NewValidator(msg.Schema)
	if err != nil {
		return errors.Wrapf(err, "stream %s", msg.Stream)
	}

	o.validators[msg.Stream] = validator
	o.batches.SetSchema(msg.Stream, msg.Schema, msg.KeyProperties, msg.BookmarkProperties)
	return nil
}

func (o *Orchestrator) handleRecord(ctx context.Context, msg *singer.Message) error {
	o.stats.RecordsRead++

	validator, ok := o.validators[msg.Stream]
	if !ok {
		return errors.Wrapf(errors.ErrRecordInvalid,
			"a record for stream %s was encountered before a corresponding schema", msg.Stream)
	}

	if o.hooks.HasScript(hook.PreRecord) {
		result, err := o.hooks.ExecutePreRecord(hook.RecordContext{Stream: msg.Stream, Record: msg.Record})
		if err != nil {
			return err
		}
		if result.Drop {
			o.stats.RecordsDropped++
			return nil
		}
		if err := o.replaceRecord(msg, result.Record); err != nil {
			return err
		}
	}

	if err := validator.Validate(msg.Record); err != nil {
		return errors.Wrapf(err, "stream %s", msg.Stream)
	}

	_, keyNames, _ := o.batches.Schema(msg.Stream)
	if err := schema.RequireKeys(msg.Record, keyNames); err != nil {
		return errors.Wrapf(err, "stream %s", msg.Stream)
	}

	if b, full := o.batches.Add(msg); full {
		return o.persistAndRelease(ctx, b)
	}
	return nil
}

func (o *Orchestrator) handleActivateVersion(ctx context.Context, msg *singer.Message) error {
	if b, full := o.batches.Add(msg); full {
		return o.persistAndRelease(ctx, b)
	}
	return nil
}

// handleState buffers the state value. It can only go out once everything
// read before it has been persisted, so it is emitted immediately only when
// no records are buffered.
func (o *Orchestrator) handleState(msg *singer.Message) error {
	o.emitter.Set(msg.Value)
	if o.batches.Pending() == 0 {
		return o.emitter.Emit()
	}
	return nil
}

// replaceRecord swaps in a hook-rewritten record and refreshes the raw JSON
// the serializer sends.
func (o *Orchestrator) replaceRecord(msg *singer.Message, record map[string]interface{}) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return errors.Wrapf(errors.ErrHookScript, "rewritten record for stream %s: %v", msg.Stream, err)
	}
	msg.Record = record
	msg.RawRecord = raw
	return nil
}

// flushAll drains and persists every stream. Pending state is released only
// after the whole flush succeeded; a failure mid-flush keeps it held.
func (o *Orchestrator) flushAll(ctx context.Context) error {
	for _, b := range o.batches.DrainAll() {
		if err := o.persist(ctx, b); err != nil {
			return err
		}
	}
	o.lastFlush = o.now()
	return o.emitter.Emit()
}

// persistAndRelease sends a single drained batch and releases pending state
// when no other stream still buffers records.
func (o *Orchestrator) persistAndRelease(ctx context.Context, b *batch.Batch) error {
	if err := o.persist(ctx, b); err != nil {
		return err
	}
	if o.batches.Pending() == 0 {
		return o.emitter.Emit()
	}
	return nil
}

func (o *Orchestrator) persist(ctx context.Context, b *batch.Batch) error {
	if len(b.Messages) == 0 {
		return nil
	}

	switch o.routeFor(b) {
	case routeSpool:
		if err := o.spooler.Persist(ctx, b); err != nil {
			return err
		}
		o.stats.BatchesSpooled++
	default:
		bodies, err := batch.Serialize(b, o.sequences, o.opts.MaxBatchBytes)
		if err != nil {
			return err
		}
		for _, body := range bodies {
			if err := o.sender.Send(ctx, body); err != nil {
				return err
			}
			o.stats.BytesSent += len(body)
		}
		o.stats.BatchesSent += len(bodies)
	}

	for _, msg := range b.Messages {
		if msg.Action == batch.ActionUpsert {
			o.stats.RecordsPersisted++
		}
	}

	return o.hooks.ExecutePostBatch(hook.BatchContext{
		Stream:     b.Stream,
		NumRecords: len(b.Messages),
		NumBytes:   b.Bytes,
	})
}

// routeFor picks the send path for a table. The decision is made on the
// first drained batch and is sticky: a table that went to the spool once
// keeps going there so its sequence ordering stays within one pipeline.
func (o *Orchestrator) routeFor(b *batch.Batch) route {
	if r, ok := o.routes[b.Stream]; ok && r != routeUndecided {
		return r
	}

	r := routeGate
	if o.spooler != nil && o.opts.SpoolThresholdBytes > 0 && b.Bytes >= o.opts.SpoolThresholdBytes {
		r = routeSpool
		logger.Info("Routing table to spool", logger.Fields{
			"table": b.Stream,
			"bytes": b.Bytes,
		})
	}
	o.routes[b.Stream] = r
	return r
}
