package spool

import "context"

// Uploader stores encoded batch objects under a key.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte) error
}

// Notifier tells the spool service about an uploaded batch object.
type Notifier interface {
	Notify(ctx context.Context, n *Notification) error
}
