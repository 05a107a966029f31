package gate

import (
	"context"

	"github.com/cperrin88/gostitch/internal/logger"
)

// DryRunSender accepts batches without persisting anything. Useful for
// exercising a tap's output against the full validation and batching path.
type DryRunSender struct {
	// Bodies collects everything that would have been sent.
	Bodies [][]byte
}

// Send logs and discards the body.
func (d *DryRunSender) Send(_ context.Context, body []byte) error {
	logger.Info("---- DRY RUN: NOTHING IS BEING PERSISTED TO STITCH ----")
	logger.Debugf("dry run discarded %d bytes", len(body))
	d.Bodies = append(d.Bodies, body)
	return nil
}
