package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the variants of Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindSimpleString
	KindError
	KindInteger
	KindBulkString
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindSimpleString:
		return "simple-string"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulkString:
		return "bulk-string"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is one RESP wire value. It is a tagged union, only the fields
// relevant to its Kind are meaningful. Values are immutable once
// constructed and an array exclusively owns its elements.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Elems []Value
}

// Null is the absent value. On the wire it is the bulk string with
// length -1, there is no separate tag for it.
var Null = Value{Kind: KindNull}

func SimpleString(s string) Value {
	return Value{Kind: KindSimpleString, Str: s}
}

func ErrorString(s string) Value {
	return Value{Kind: KindError, Str: s}
}

func Integer(i int64) Value {
	return Value{Kind: KindInteger, Int: i}
}

func BulkString(s string) Value {
	return Value{Kind: KindBulkString, Str: s}
}

func Array(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{Kind: KindArray, Elems: elems}
}

// NewCommand builds the canonical wire shape for an outgoing command, an
// array with one bulk string per argument token. An empty argument list
// yields Null rather than an empty array, callers that need an empty
// array must construct one explicitly.
func NewCommand(args ...string) Value {
	if len(args) == 0 {
		return Null
	}

	elems := make([]Value, 0, len(args))
	for _, arg := range args {
		elems = append(elems, BulkString(arg))
	}

	return Array(elems...)
}

// IsError reports whether the value is an error reply.
func (v Value) IsError() bool {
	return v.Kind == KindError
}

// String renders the value the way an interactive client displays it.
// This is the human readable form, not the wire encoding.
//
//   - simple and bulk strings render as their text
//   - integers render as `(integer) N`
//   - the null value renders as `(nil)`
//   - errors render as `(error) <text>`
//   - arrays render as a 1-indexed enumeration, one element per line,
//     or the literal `(empty array)` when there are no elements
func (v Value) String() string {
	switch v.Kind {
	case KindSimpleString, KindBulkString:
		return v.Str
	case KindInteger:
		return "(integer) " + strconv.FormatInt(v.Int, 10)
	case KindNull:
		return "(nil)"
	case KindError:
		return "(error) " + v.Str
	case KindArray:
		if len(v.Elems) == 0 {
			return "(empty array)"
		}

		var b strings.Builder
		for i, elem := range v.Elems {
			if i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%d) %s", i+1, elem)
		}
		return b.String()
	default:
		return fmt.Sprintf("(unknown kind %d)", v.Kind)
	}
}
