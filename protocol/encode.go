package protocol

import (
	"io"
	"strconv"
)

var crlf = []byte("\r\n")

// Encode serialises a value into its wire frame. Encoding is total for
// any constructible Value, there is no failure mode. Bulk string length
// prefixes are computed from the payload's byte length at encode time, so
// they are always correct for non-ASCII payloads.
func Encode(v Value) []byte {
	return appendValue(nil, v)
}

// EncodeTo writes the wire frame for a value into w. The only possible
// error is the writer's own.
func EncodeTo(w io.Writer, v Value) error {
	_, err := w.Write(appendValue(nil, v))
	return err
}

func appendValue(dst []byte, v Value) []byte {
	switch v.Kind {
	case KindSimpleString:
		dst = append(dst, '+')
		dst = append(dst, v.Str...)
		dst = append(dst, crlf...)

	case KindError:
		dst = append(dst, '-')
		dst = append(dst, v.Str...)
		dst = append(dst, crlf...)

	case KindInteger:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, v.Int, 10)
		dst = append(dst, crlf...)

	case KindBulkString:
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(v.Str)), 10)
		dst = append(dst, crlf...)
		dst = append(dst, v.Str...)
		dst = append(dst, crlf...)

	case KindNull:
		// The null value is the bulk string of length -1, no payload
		// bytes follow the length line.
		dst = append(dst, '$', '-', '1')
		dst = append(dst, crlf...)

	case KindArray:
		dst = append(dst, '*')
		dst = strconv.AppendInt(dst, int64(len(v.Elems)), 10)
		dst = append(dst, crlf...)
		for _, elem := range v.Elems {
			dst = appendValue(dst, elem)
		}
	}

	return dst
}
