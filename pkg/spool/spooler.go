// Package spool persists batches too large for the gate: encoded batch
// objects go to S3 storage and a notification tells the pipeline where to
// find them.
package spool

import (
	"context"
	"crypto/sha1" //nolint:gosec // object key disambiguation, not security
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cperrin88/gostitch/internal/logger"
	"github.com/cperrin88/gostitch/pkg/batch"
	"github.com/cperrin88/gostitch/pkg/errors"
	"github.com/cperrin88/gostitch/pkg/fsutil"
	"github.com/cperrin88/gostitch/pkg/schema"
	"github.com/google/uuid"
)

// Notification is the body posted to the spool service after an upload.
type Notification struct {
	Namespace        string            `json:"namespace"`
	TableName        string            `json:"table_name"`
	TableVersion     *int64            `json:"table_version"`
	Action           batch.Action      `json:"action"`
	MaxTimeExtracted string            `json:"max_time_extracted"`
	BookmarkMetadata *BookmarkMetadata `json:"bookmark_metadata"`
	S3Key            string            `json:"s3_key"`
	S3Bucket         string            `json:"s3_bucket"`
	NumRecords       int               `json:"num_records"`
	NumBytes         int               `json:"num_bytes"`
	Format           string            `json:"format"`
	FormatVersion    string            `json:"format_version"`
	PersistMillis    int64             `json:"persist_duration_millis"`
}

// BookmarkMetadata describes the bookmark range covered by a batch.
type BookmarkMetadata struct {
	Key      string      `json:"key"`
	MinValue interface{} `json:"min_value"`
	MaxValue interface{} `json:"max_value"`
}

// Spooler uploads batches and notifies the pipeline about them.
type Spooler struct {
	uploader Uploader
	notifier Notifier

	clientID   int
	namespace  string
	bucket     string
	stagingDir string

	sequences *batch.SequenceGenerator
	now       func() time.Time
}

// NewSpooler wires a spooler from its collaborators.
func NewSpooler(uploader Uploader, notifier Notifier, clientID int, namespace, bucket, stagingDir string, sequences *batch.SequenceGenerator) *Spooler {
	return &Spooler{
		uploader:   uploader,
		notifier:   notifier,
		clientID:   clientID,
		namespace:  namespace,
		bucket:     bucket,
		stagingDir: stagingDir,
		sequences:  sequences,
		now:        time.Now,
	}
}

// Persist uploads a drained batch. Upserts are shipped as one batch object;
// every version activation becomes its own switch_view object, after the
// upserts, matching the order the pipeline applies them in.
func (s *Spooler) Persist(ctx context.Context, b *batch.Batch) error {
	var upserts []batch.Message
	var activations []batch.Message
	for _, msg := range b.Messages {
		switch msg.Action {
		case batch.ActionUpsert:
			upserts = append(upserts, msg)
		case batch.ActionActivateVersion:
			activations = append(activations, msg)
		default:
			return errors.Wrapf(errors.ErrSpoolUpload, "unrecognized action %q", msg.Action)
		}
	}

	if len(upserts) > 0 {
		if err := s.persistUpserts(ctx, b, upserts); err != nil {
			return err
		}
	}
	for range activations {
		if err := s.persistSwitchView(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func (s *Spooler) persistUpserts(ctx context.Context, b *batch.Batch, upserts []batch.Message) error {
	var schemaDoc map[string]interface{}
	if len(b.Schema) > 0 {
		if err := json.Unmarshal(b.Schema, &schemaDoc); err != nil {
			return errors.Wrapf(errors.ErrSchemaInvalid, "table %s: %v", b.Stream, err)
		}
	}

	received := s.now()
	envelopes := make([]Envelope, 0, len(upserts))
	var maxTimeExtracted string
	for i, msg := range upserts {
		record, err := schema.MarshalDecimals(schemaDoc, msg.Record)
		if err != nil {
			return errors.Wrapf(err, "table %s", b.Stream)
		}
		record, err = schema.MarshalDateTimes(schemaDoc, record)
		if err != nil {
			return errors.Wrapf(err, "table %s", b.Stream)
		}
		if msg.TimeExtracted > maxTimeExtracted {
			maxTimeExtracted = msg.TimeExtracted
		}

		envelopes = append(envelopes, NewEnvelope(EnvelopeBody{
			ClientID:  s.clientID,
			Namespace: s.namespace,
			TableName: b.Stream,
			Action:    batch.ActionUpsert,
			Sequence:  s.sequences.Generate(i),
			KeyNames:  b.KeyNames,
			Data:      record,
		}, received))
	}

	bookmarks, err := bookmarkMetadata(b.BookmarkNames, upserts)
	if err != nil {
		return errors.Wrapf(err, "table %s", b.Stream)
	}

	data, err := EncodeEnvelopes(envelopes)
	if err != nil {
		return err
	}

	key, persistMillis, err := s.upload(ctx, b.Stream, data, len(upserts))
	if err != nil {
		return err
	}

	return s.notify(ctx, &Notification{
		Namespace:        s.namespace,
		TableName:        b.Stream,
		TableVersion:     b.TableVersion,
		Action:           batch.ActionUpsert,
		MaxTimeExtracted: s.maxTimeExtracted(maxTimeExtracted),
		BookmarkMetadata: bookmarks,
		S3Key:            key,
		S3Bucket:         s.bucket,
		NumRecords:       len(upserts),
		NumBytes:         len(data),
		Format:           Format,
		FormatVersion:    FormatVersion,
		PersistMillis:    persistMillis,
	})
}

func (s *Spooler) persistSwitchView(ctx context.Context, b *batch.Batch) error {
	env := NewEnvelope(EnvelopeBody{
		ClientID:  s.clientID,
		Namespace: s.namespace,
		TableName: b.Stream,
		Action:    batch.ActionSwitchView,
		Sequence:  s.sequences.Generate(0),
	}, s.now())

	data, err := EncodeEnvelopes([]Envelope{env})
	if err != nil {
		return err
	}

	key, persistMillis, err := s.upload(ctx, b.Stream, data, 1)
	if err != nil {
		return err
	}

	return s.notify(ctx, &Notification{
		Namespace:        s.namespace,
		TableName:        b.Stream,
		TableVersion:     b.TableVersion,
		Action:           batch.ActionSwitchView,
		MaxTimeExtracted: s.maxTimeExtracted(""),
		S3Key:            key,
		S3Bucket:         s.bucket,
		NumRecords:       1,
		NumBytes:         len(data),
		Format:           Format,
		FormatVersion:    FormatVersion,
		PersistMillis:    persistMillis,
	})
}

// upload stages the object locally, uploads it, and removes the staged copy.
// A failed upload leaves the staged file behind for inspection and retry.
func (s *Spooler) upload(ctx context.Context, table string, data []byte, numRecords int) (string, int64, error) {
	key := s.objectKey(data)

	staged, err := s.stage(key, data)
	if err != nil {
		return "", 0, err
	}

	logger.Info("Sending batch to spool", logger.Fields{
		"table":   table,
		"records": numRecords,
		"key":     key,
	})

	start := s.now()
	if err := s.uploader.Upload(ctx, key, data); err != nil {
		return "", 0, errors.Wrapf(errors.ErrSpoolUpload, "key %s (staged copy kept at %s): %v", key, staged, err)
	}
	persistMillis := s.now().Sub(start).Milliseconds()

	_ = os.Remove(staged)
	return key, persistMillis, nil
}

func (s *Spooler) notify(ctx context.Context, n *Notification) error {
	if err := s.notifier.Notify(ctx, n); err != nil {
		return errors.Wrapf(errors.ErrSpoolNotify, "table %s key %s: %v", n.TableName, n.S3Key, err)
	}
	return nil
}

// objectKey builds a collision-free object key scoped by client ID.
func (s *Spooler) objectKey(data []byte) string {
	now := s.now().UTC()
	return fmt.Sprintf("%07d/%s-%x-%s%06d",
		s.clientID,
		uuid.New(),
		sha1.Sum(data), //nolint:gosec
		now.Format("20060102-150405"),
		now.Nanosecond()/1000)
}

// stage writes the encoded object into the staging directory.
func (s *Spooler) stage(key string, data []byte) (string, error) {
	if s.stagingDir == "" {
		return "", errors.ErrSpoolDirectory
	}
	if err := os.MkdirAll(s.stagingDir, fsutil.DirModeSecure); err != nil {
		return "", errors.Wrap(err, "could not create staging directory")
	}

	path := filepath.Join(s.stagingDir, filepath.Base(key))
	if err := os.WriteFile(path, data, fsutil.FileModeSecure); err != nil {
		return "", errors.Wrap(err, "could not stage batch object")
	}
	return path, nil
}

func (s *Spooler) maxTimeExtracted(fromRecords string) string {
	if fromRecords != "" {
		return fromRecords
	}
	return s.now().UTC().Format("2006-01-02T15:04:05.000000Z")
}

// bookmarkMetadata computes the bookmark range over a batch. Only a single
// bookmark key is supported.
func bookmarkMetadata(bookmarkNames []string, upserts []batch.Message) (*BookmarkMetadata, error) {
	if len(bookmarkNames) == 0 {
		return nil, nil
	}

	key := bookmarkNames[0]
	meta := &BookmarkMetadata{Key: key}
	for _, msg := range upserts {
		val, ok := msg.Record[key]
		if !ok {
			return nil, errors.Wrapf(errors.ErrRecordInvalid, "record is missing bookmark property %q", key)
		}
		if meta.MinValue == nil || lessThan(val, meta.MinValue) {
			meta.MinValue = val
		}
		if meta.MaxValue == nil || lessThan(meta.MaxValue, val) {
			meta.MaxValue = val
		}
	}
	return meta, nil
}

// lessThan orders bookmark values. Bookmarks are either strings (timestamps)
// or numbers; mixed types fall back to string comparison.
func lessThan(a, b interface{}) bool {
	af, aNum := a.(float64)
	bf, bNum := b.(float64)
	if aNum && bNum {
		return af < bf
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}
