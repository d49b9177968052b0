package storage

import (
	"context"
	"sync"
)

const updateBufferSize = 255

// InmemoryStore keeps binary-safe values in a plain map and fans key
// changes out to every update listener. Values are copied on the way in
// and out so callers can never alias the map's backing bytes.
type InmemoryStore struct {
	mu          sync.Mutex
	values      map[string][]byte
	updateChans []chan *Update

	// stop will be closed when Close() is called
	stop      chan struct{}
	closeOnce sync.Once
}

func NewInmemoryStore() *InmemoryStore {
	return &InmemoryStore{
		values:      make(map[string][]byte),
		stop:        make(chan struct{}),
		updateChans: make([]chan *Update, 0),
	}
}

func (i *InmemoryStore) Close() error {
	i.closeOnce.Do(func() {
		close(i.stop)

		i.mu.Lock()
		defer i.mu.Unlock()

		for _, updateChan := range i.updateChans {
			close(updateChan)
		}
		i.updateChans = nil
	})

	return nil
}

func (i *InmemoryStore) Set(ctx context.Context, key []byte, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	i.mu.Lock()
	defer i.mu.Unlock()

	i.values[string(key)] = stored

	if i.isRunning() {
		for _, updateChan := range i.updateChans {
			// The send happens under mu, so a listener that has fallen a
			// full buffer behind must lose the update rather than stall
			// every store operation.
			select {
			case updateChan <- &Update{Key: key, Value: stored}:
			default:
			}
		}
	}

	return nil
}

func (i *InmemoryStore) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	value, ok := i.values[string(key)]
	if !ok {
		return nil, false, nil
	}

	out := make([]byte, len(value))
	copy(out, value)

	return out, true, nil
}

func (i *InmemoryStore) Del(ctx context.Context, keys ...[]byte) (int64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var removed int64
	for _, key := range keys {
		if _, ok := i.values[string(key)]; ok {
			delete(i.values, string(key))
			removed++
		}
	}

	return removed, nil
}

func (i *InmemoryStore) ListenToUpdates() <-chan *Update {
	i.mu.Lock()
	defer i.mu.Unlock()

	updateChan := make(chan *Update, updateBufferSize)

	if !i.isRunning() {
		close(updateChan)
		return updateChan
	}

	i.updateChans = append(i.updateChans, updateChan)

	return updateChan
}

// isRunning returns true if Close has not been called
func (i *InmemoryStore) isRunning() bool {
	select {
	case <-i.stop:
		return false

	default:
		return true
	}
}

var _ Store = (*InmemoryStore)(nil)
