package storage

import "context"

// Update describes one key change, fanned out to every listener so
// subscribed connections can push it to their clients.
type Update struct {
	Key   []byte
	Value []byte
}

type Store interface {
	Set(ctx context.Context, key []byte, value []byte) error
	Get(ctx context.Context, key []byte) ([]byte, bool, error)
	Del(ctx context.Context, keys ...[]byte) (int64, error)

	ListenToUpdates() <-chan *Update

	Close() error
}
