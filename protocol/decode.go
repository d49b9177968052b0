package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrIncomplete means the buffer does not yet hold a full frame.
	// This is not a fault, it signals "wait for more bytes".
	ErrIncomplete = errors.New("frame is incomplete, more bytes are needed")

	// ErrMalformedFrame means the buffer can never become a valid frame,
	// the tag byte is unknown or a numeric field failed to parse. The
	// connection that produced it should be considered corrupt.
	ErrMalformedFrame = errors.New("frame is malformed")
)

// Decode parses one frame from the front of buf. On success it returns
// the decoded value together with the number of bytes consumed, so the
// caller can decode the next frame from buf[consumed:]. An empty or
// truncated buffer returns ErrIncomplete, a buffer that cannot parse
// returns an error wrapping ErrMalformedFrame.
func Decode(buf []byte) (Value, int, error) {
	return decodeValue(buf, 0)
}

// decodeValue decodes the frame starting at pos and returns the cursor
// position just past it. Arrays recurse, the tag byte alone decides the
// production so no backtracking is ever needed.
func decodeValue(buf []byte, pos int) (Value, int, error) {
	if pos >= len(buf) {
		return Value{}, 0, ErrIncomplete
	}

	tag := buf[pos]
	pos++

	switch tag {
	case '+':
		line, pos, err := readLine(buf, pos)
		if err != nil {
			return Value{}, 0, err
		}
		return SimpleString(string(line)), pos, nil

	case '-':
		line, pos, err := readLine(buf, pos)
		if err != nil {
			return Value{}, 0, err
		}
		return ErrorString(string(line)), pos, nil

	case ':':
		line, pos, err := readLine(buf, pos)
		if err != nil {
			return Value{}, 0, err
		}

		i, err := strconv.ParseInt(string(line), 10, 64)
		if err != nil {
			return Value{}, 0, fmt.Errorf("bad integer field %q: %w", line, ErrMalformedFrame)
		}
		return Integer(i), pos, nil

	case '$':
		return decodeBulk(buf, pos)

	case '*':
		return decodeArray(buf, pos)

	default:
		return Value{}, 0, fmt.Errorf("unknown tag byte %q: %w", tag, ErrMalformedFrame)
	}
}

func decodeBulk(buf []byte, pos int) (Value, int, error) {
	line, pos, err := readLine(buf, pos)
	if err != nil {
		return Value{}, 0, err
	}

	n, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return Value{}, 0, fmt.Errorf("bad bulk string length %q: %w", line, ErrMalformedFrame)
	}

	if n == -1 {
		// The null value, exactly the length line is consumed and no
		// payload follows.
		return Null, pos, nil
	}

	if n < -1 {
		return Value{}, 0, fmt.Errorf("negative bulk string length %d: %w", n, ErrMalformedFrame)
	}

	// The declared length is authoritative, exactly n payload bytes plus
	// the trailing terminator must be present. The bound check stays in
	// int64, a hostile length must not overflow the cursor arithmetic.
	if n > int64(len(buf)-pos-len(crlf)) {
		return Value{}, 0, ErrIncomplete
	}

	end := pos + int(n)

	if !bytes.Equal(buf[end:end+len(crlf)], crlf) {
		return Value{}, 0, fmt.Errorf("bulk string payload is not terminated by CRLF: %w", ErrMalformedFrame)
	}

	return BulkString(string(buf[pos:end])), end + len(crlf), nil
}

func decodeArray(buf []byte, pos int) (Value, int, error) {
	line, pos, err := readLine(buf, pos)
	if err != nil {
		return Value{}, 0, err
	}

	n, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil || n < 0 {
		return Value{}, 0, fmt.Errorf("bad array count %q: %w", line, ErrMalformedFrame)
	}

	// Preallocation is capped, the count is attacker controlled and a
	// huge count with no elements behind it must not allocate.
	hint := n
	if hint > 1024 {
		hint = 1024
	}

	elems := make([]Value, 0, hint)
	for i := int64(0); i < n; i++ {
		// A truncated element makes the whole array incomplete, a
		// partially received array is no value yet.
		elem, next, err := decodeValue(buf, pos)
		if err != nil {
			return Value{}, 0, err
		}

		elems = append(elems, elem)
		pos = next
	}

	return Array(elems...), pos, nil
}

// readLine consumes up to and including the next CRLF, returning the
// bytes between pos and the terminator. A buffer with no terminator yet
// is incomplete, not malformed, the rest of the line may still arrive.
func readLine(buf []byte, pos int) ([]byte, int, error) {
	idx := bytes.Index(buf[pos:], crlf)
	if idx < 0 {
		return nil, 0, ErrIncomplete
	}

	return buf[pos : pos+idx], pos + idx + len(crlf), nil
}
