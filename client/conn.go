package client

import (
	"context"
	"errors"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/redsail/redsail/protocol"
)

var (
	ErrNoCommand = errors.New("cannot send an empty command")
	ErrClosed    = errors.New("connection is closed")
)

const (
	// ReadChunkSize is how many bytes a single transport read asks for.
	// It is purely a transport detail, message boundaries come from the
	// decoder alone, never from how a read happens to be sized.
	ReadChunkSize = 4096

	valueBufferSize = 255
)

// Conn is one logical connection to a server. A single read loop owns
// the accumulation buffer, decodes every complete frame out of it and
// delivers the values in arrival order on a channel. Request/response
// callers take exactly one value per command through Do, push mode
// callers drain Values directly.
//
// Conn is not safe for concurrent Do calls, it models a single ordered
// conversation.
type Conn struct {
	ctx    context.Context
	cancel context.CancelFunc

	conn net.Conn

	values     chan protocol.Value
	loopWaiter sync.WaitGroup

	mu      sync.Mutex
	readErr error

	log *zap.Logger
}

// Dial connects to addr and starts the read loop.
func Dial(ctx context.Context, addr string, log *zap.Logger) (*Conn, error) {
	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(ctx)

	c := &Conn{
		ctx:    loopCtx,
		cancel: cancel,
		conn:   conn,
		values: make(chan protocol.Value, valueBufferSize),
		log:    log.Named("conn"),
	}

	c.loopWaiter.Add(1)
	go func() {
		defer c.loopWaiter.Done()
		c.readLoop()
	}()

	return c, nil
}

// Do sends one command and blocks until exactly one value has been
// decoded for it. The value may itself be an error reply, that is not a
// transport fault and err is nil for it.
func (c *Conn) Do(ctx context.Context, args ...string) (protocol.Value, error) {
	cmd := protocol.NewCommand(args...)
	if cmd.Kind == protocol.KindNull {
		return protocol.Value{}, ErrNoCommand
	}

	if err := protocol.EncodeTo(c.conn, cmd); err != nil {
		return protocol.Value{}, err
	}

	select {
	case v, ok := <-c.values:
		if !ok {
			return protocol.Value{}, c.Err()
		}
		return v, nil

	case <-ctx.Done():
		return protocol.Value{}, ctx.Err()
	}
}

// Values exposes the decoded value stream for push mode, where the
// server emits an unbounded sequence of frames with no request pairing.
// The channel closes when the transport closes or faults, Err tells the
// two apart.
func (c *Conn) Values() <-chan protocol.Value {
	return c.values
}

// Err reports why the value stream ended. It returns ErrClosed after a
// clean close, the decode or transport fault otherwise.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.readErr != nil {
		return c.readErr
	}

	return ErrClosed
}

// Close stops the read loop and closes the socket.
func (c *Conn) Close() error {
	c.cancel()
	err := c.conn.Close()
	c.loopWaiter.Wait()

	return err
}

// readLoop drives the accumulation buffer. Each transport read appends
// its bytes, then every complete frame currently in the buffer is
// decoded and delivered before the next read. Decoding stops only on
// ErrIncomplete, it never infers a message boundary from a short read.
func (c *Conn) readLoop() {
	log := c.log.Named("readLoop")

	defer close(c.values)

	var buf []byte
	chunk := make([]byte, ReadChunkSize)

	for {
		n, err := c.conn.Read(chunk)

		if n > 0 {
			buf = append(buf, chunk[:n]...)

			for {
				v, consumed, derr := protocol.Decode(buf)
				if errors.Is(derr, protocol.ErrIncomplete) {
					break
				}

				if derr != nil {
					log.Warn("Stream is corrupt, closing", zap.Error(derr))
					c.setErr(derr)
					return
				}

				// Decoded values own copies of their payloads, the
				// consumed prefix can be dropped immediately.
				buf = buf[consumed:]

				select {
				case c.values <- v:
				case <-c.ctx.Done():
					return
				}
			}
		}

		if err != nil {
			if c.isStopping() {
				return
			}

			if errors.Is(err, net.ErrClosed) {
				return
			}

			c.setErr(err)

			log.Warn("Transport read ended", zap.Error(err))
			return
		}
	}
}

func (c *Conn) setErr(err error) {
	c.mu.Lock()
	c.readErr = err
	c.mu.Unlock()
}

// isStopping returns true once Close has been called, read errors after
// that point are expected and not faults.
func (c *Conn) isStopping() bool {
	select {
	case <-c.ctx.Done():
		return true

	default:
		return false
	}
}
