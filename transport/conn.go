package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/redsail/redsail/client"
	"github.com/redsail/redsail/protocol"
	"github.com/redsail/redsail/storage"
)

// TCPConn serves one client connection. The read loop owns an
// accumulation buffer and decodes command frames out of it with the
// same codec contract the client side uses, the write loop drains a
// queue so replies and pushed updates never interleave mid-frame.
type TCPConn struct {
	ctx        context.Context
	cancel     context.CancelFunc
	loopWaiter sync.WaitGroup

	conn  net.Conn
	store storage.Store

	writeQueue chan []byte

	subMu      sync.Mutex
	subscribed map[string]struct{}

	closeOnce sync.Once

	log *zap.Logger
}

func NewTCPConn(
	parentCtx context.Context,
	conn net.Conn,
	store storage.Store,
	log *zap.Logger,
) *TCPConn {
	ctx, cancel := context.WithCancel(parentCtx)

	t := &TCPConn{
		ctx:        ctx,
		cancel:     cancel,
		conn:       conn,
		store:      store,
		writeQueue: make(chan []byte, writeQueueSize),
		subscribed: make(map[string]struct{}),
		log:        log,
	}
	t.loopWaiter.Add(2)

	return t
}

func (t *TCPConn) Close() error {
	t.closeOnce.Do(func() {
		t.cancel()
		t.conn.Close()
		t.loopWaiter.Wait()
	})

	return nil
}

func (t *TCPConn) Start() {
	go func() {
		defer t.loopWaiter.Done()
		t.readLoop()
	}()

	go func() {
		defer t.loopWaiter.Done()
		t.writeLoop()
	}()

	t.loopWaiter.Wait()
	t.Close()
}

func (t *TCPConn) readLoop() {
	log := t.log.Named("readLoop")

	defer func() {
		// Stop accepting commands but let queued replies drain
		t.cancel()
		log.Debug("Read loop exited")
	}()

	var buf []byte
	chunk := make([]byte, client.ReadChunkSize)

	for {
		n, err := t.conn.Read(chunk)

		if n > 0 {
			buf = append(buf, chunk[:n]...)

			for {
				cmd, consumed, derr := protocol.Decode(buf)
				if errors.Is(derr, protocol.ErrIncomplete) {
					break
				}

				if derr != nil {
					log.Warn("Client sent a corrupt stream, closing", zap.Error(derr))
					return
				}

				buf = buf[consumed:]

				if derr := t.dispatch(cmd); derr != nil {
					if !errors.Is(derr, errQuit) {
						log.Warn("Failed to deliver a reply", zap.Error(derr))
					}
					return
				}
			}
		}

		if err != nil {
			if t.isRunning() && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.EOF) {
				log.Warn("Client read failed", zap.Error(err))
			}
			return
		}
	}
}

func (t *TCPConn) writeLoop() {
	log := t.log.Named("writeLoop")

	defer log.Debug("Write loop exited")

	for {
		select {
		case <-t.ctx.Done():
			// Drain replies that were queued before the stop, a QUIT
			// acknowledgement must still reach the client.
			for {
				select {
				case data := <-t.writeQueue:
					if data == nil {
						return
					}

					if _, err := t.conn.Write(data); err != nil {
						return
					}

				default:
					return
				}
			}

		case data := <-t.writeQueue:
			if data == nil {
				return
			}

			if _, err := t.conn.Write(data); err != nil {
				log.Warn("Failed to write from write queue", zap.Error(err))
				return
			}
		}
	}
}

// errQuit tells the read loop the client asked to close, after its
// acknowledgement has been queued.
var errQuit = errors.New("client sent QUIT")

// dispatch answers one decoded command frame. A non-nil return ends the
// read loop, either errQuit or a failure to deliver the reply.
func (t *TCPConn) dispatch(cmd protocol.Value) error {
	args, err := commandArgs(cmd)
	if err != nil {
		return t.reply(protocol.ErrorString("ERR " + err.Error()))
	}

	name := strings.ToUpper(args[0])

	switch name {
	case "PING":
		if len(args) > 1 {
			return t.reply(protocol.BulkString(args[1]))
		}
		return t.reply(protocol.SimpleString("PONG"))

	case "ECHO":
		if len(args) != 2 {
			return t.replyArity(name)
		}
		return t.reply(protocol.BulkString(args[1]))

	case "SET":
		if len(args) != 3 {
			return t.replyArity(name)
		}

		if err := t.store.Set(t.ctx, []byte(args[1]), []byte(args[2])); err != nil {
			return t.reply(protocol.ErrorString("ERR " + err.Error()))
		}
		return t.reply(protocol.SimpleString("OK"))

	case "GET":
		if len(args) != 2 {
			return t.replyArity(name)
		}

		value, ok, err := t.store.Get(t.ctx, []byte(args[1]))
		if err != nil {
			return t.reply(protocol.ErrorString("ERR " + err.Error()))
		}

		if !ok {
			return t.reply(protocol.Null)
		}
		return t.reply(protocol.BulkString(string(value)))

	case "DEL":
		if len(args) < 2 {
			return t.replyArity(name)
		}

		keys := make([][]byte, 0, len(args)-1)
		for _, arg := range args[1:] {
			keys = append(keys, []byte(arg))
		}

		removed, err := t.store.Del(t.ctx, keys...)
		if err != nil {
			return t.reply(protocol.ErrorString("ERR " + err.Error()))
		}
		return t.reply(protocol.Integer(removed))

	case "SUBSCRIBE":
		if len(args) < 2 {
			return t.replyArity(name)
		}

		for _, key := range args[1:] {
			count := t.subscribe(key)
			err := t.reply(protocol.Array(
				protocol.BulkString("subscribe"),
				protocol.BulkString(key),
				protocol.Integer(count),
			))
			if err != nil {
				return err
			}
		}
		return nil

	case "QUIT":
		if err := t.reply(protocol.SimpleString("OK")); err != nil {
			return err
		}
		return errQuit

	default:
		return t.reply(protocol.ErrorString(fmt.Sprintf("ERR unknown command '%s'", args[0])))
	}
}

// WriteUpdate pushes one key change as a `message` frame, the shape a
// subscriber expects.
func (t *TCPConn) WriteUpdate(update *storage.Update) error {
	return t.reply(protocol.Array(
		protocol.BulkString("message"),
		protocol.BulkString(string(update.Key)),
		protocol.BulkString(string(update.Value)),
	))
}

func (t *TCPConn) reply(v protocol.Value) error {
	if !t.isRunning() {
		return net.ErrClosed
	}

	select {
	case t.writeQueue <- protocol.Encode(v):
		return nil

	case <-t.ctx.Done():
		return net.ErrClosed
	}
}

func (t *TCPConn) replyArity(name string) error {
	return t.reply(protocol.ErrorString(fmt.Sprintf(
		"ERR wrong number of arguments for '%s' command", strings.ToLower(name))))
}

func (t *TCPConn) subscribe(key string) int64 {
	t.subMu.Lock()
	defer t.subMu.Unlock()

	t.subscribed[key] = struct{}{}
	return int64(len(t.subscribed))
}

func (t *TCPConn) isSubscribed(key string) bool {
	t.subMu.Lock()
	defer t.subMu.Unlock()

	_, ok := t.subscribed[key]
	return ok
}

// isRunning returns true if Close has not been called
func (t *TCPConn) isRunning() bool {
	select {
	case <-t.ctx.Done():
		return false

	default:
		return true
	}
}

// commandArgs flattens a command frame into its argument tokens. The
// wire shape for commands is always an array of bulk strings.
func commandArgs(cmd protocol.Value) ([]string, error) {
	if cmd.Kind != protocol.KindArray {
		return nil, errors.New("protocol error: expected an array of bulk strings")
	}

	if len(cmd.Elems) == 0 {
		return nil, errors.New("protocol error: empty command")
	}

	args := make([]string, 0, len(cmd.Elems))
	for _, elem := range cmd.Elems {
		switch elem.Kind {
		case protocol.KindBulkString, protocol.KindSimpleString:
			args = append(args, elem.Str)
		default:
			return nil, errors.New("protocol error: command arguments must be bulk strings")
		}
	}

	return args, nil
}
