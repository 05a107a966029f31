package gate

import "context"

// Sender persists serialized batch bodies.
type Sender interface {
	Send(ctx context.Context, body []byte) error
}
