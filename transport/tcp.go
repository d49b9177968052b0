package transport

import (
	"context"
	"errors"
	"net"
	"runtime"
	"strconv"
	"sync"

	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/redsail/redsail/storage"
)

const writeQueueSize = 127

// TCP is the stub RESP server behind `redsail mock`. It answers enough
// of the command surface (PING, ECHO, SET, GET, DEL, SUBSCRIBE, QUIT)
// for the client to be exercised against a real socket, including the
// push mode feed driven by store updates.
type TCP struct {
	cancel     context.CancelFunc
	stopWaiter sync.WaitGroup

	addr string

	numListeners int
	listeners    []*TCPListener
	reuse        bool

	store storage.Store

	log *zap.Logger
}

func NewTCP(options Options) *TCP {
	numListeners := options.NumListeners

	if numListeners < 1 {
		numListeners = runtime.NumCPU()
	}

	return &TCP{
		addr:         net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		numListeners: numListeners,
		listeners:    make([]*TCPListener, 0, numListeners),
		reuse:        options.Reuseport,
		store:        options.Store,
		log:          options.Log,
	}
}

func (t *TCP) Start(parentCtx context.Context) error {
	ctx, cancel := context.WithCancel(parentCtx)
	t.cancel = cancel

	t.log.Info("Starting tcp listeners", zap.Int("count", t.numListeners))

	for i := 0; i < t.numListeners; i++ {
		t.startListener(ctx, t.addr)
	}

	return nil
}

func (t *TCP) Store() storage.Store {
	return t.store
}

func (t *TCP) startListener(ctx context.Context, addr string) {
	t.stopWaiter.Add(1)
	listener := NewTCPListener(
		ctx,
		addr,
		t.reuse,
		t.store,
		t.log.Named("listener").With(zap.Int("listener", len(t.listeners))),
	)

	t.listeners = append(t.listeners, listener)

	go func() {
		defer t.stopWaiter.Done()

		if err := listener.Listen(); err != nil {
			t.log.Error("Failed to listen", zap.Error(err))
		}
	}()
}

// Close immediately closes all active listeners and connections.
func (t *TCP) Close() error {
	t.log.Info("Stopping TCP server")
	t.cancel()

	var err error
	for _, listener := range t.listeners {
		err = multierr.Append(err, listener.Close())
	}

	t.stopWaiter.Wait()

	// Closing the store ends every update fan-out goroutine.
	return multierr.Append(err, t.store.Close())
}

type TCPListener struct {
	ctx context.Context

	addr  string
	reuse bool
	log   *zap.Logger

	mu          sync.Mutex
	activeConns map[*TCPConn]struct{}

	store storage.Store
}

func NewTCPListener(
	ctx context.Context,
	addr string,
	reuse bool,
	store storage.Store,
	log *zap.Logger,
) *TCPListener {
	return &TCPListener{
		ctx:         ctx,
		activeConns: make(map[*TCPConn]struct{}),
		addr:        addr,
		reuse:       reuse,
		store:       store,
		log:         log,
	}
}

func (t *TCPListener) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	for conn := range t.activeConns {
		err = multierr.Append(err, conn.Close())
		delete(t.activeConns, conn)
	}

	return err
}

func (t *TCPListener) Listen() error {
	var (
		listener net.Listener
		err      error
	)

	if t.reuse {
		listener, err = reuseport.Listen("tcp", t.addr)
	} else {
		listener, err = net.Listen("tcp", t.addr)
	}
	if err != nil {
		return err
	}

	defer listener.Close()

	var loopWaiter sync.WaitGroup

	go func() {
		<-t.ctx.Done()

		t.log.Info("Closing listener")
		if err := listener.Close(); err != nil {
			t.log.Warn("TCP Listener did not close cleanly", zap.Error(err))
		}
	}()

	// Fan store updates out to subscribed connections
	go func() {
		for update := range t.store.ListenToUpdates() {
			if err := t.WriteUpdate(update); err != nil {
				t.log.Warn("Failed to push update", zap.Error(err))
			}
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if t.isStopping() || errors.Is(err, net.ErrClosed) {
				t.log.Info("Stopped accepting new connections")
				loopWaiter.Wait()

				t.log.Info("Listener stopped")
				return nil
			}

			return err
		}

		tcpConn := NewTCPConn(t.ctx, conn, t.store, t.log.Named("conn"))
		t.addConn(tcpConn)

		loopWaiter.Add(1)
		go func() {
			defer loopWaiter.Done()
			tcpConn.Start()
			t.removeConn(tcpConn)
		}()
	}
}

// WriteUpdate pushes one key change to every connection subscribed to
// that key, collecting the per-connection write failures.
func (t *TCPListener) WriteUpdate(update *storage.Update) (err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for conn := range t.activeConns {
		if !conn.isSubscribed(string(update.Key)) {
			continue
		}

		if uerr := conn.WriteUpdate(update); uerr != nil {
			err = multierr.Append(err, uerr)
		}
	}

	return err
}

func (t *TCPListener) addConn(conn *TCPConn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.activeConns[conn] = struct{}{}
}

func (t *TCPListener) removeConn(conn *TCPConn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.activeConns, conn)
}

func (t *TCPListener) isStopping() bool {
	select {
	case <-t.ctx.Done():
		return true

	default:
		return false
	}
}
