//go:generate mockgen -destination=./mocks/target.go -package=mocks . Persister

package target

import (
	"context"

	"github.com/cperrin88/gostitch/pkg/batch"
)

// Persister takes a drained batch and stores it outside the gate.
type Persister interface {
	Persist(ctx context.Context, b *batch.Batch) error
}
