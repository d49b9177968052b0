package protocol

import (
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// JSON renders a value as a JSON document, the machine readable
// alternative to String(). Strings become JSON strings, integers JSON
// numbers, the null value null, errors their message text and arrays
// JSON arrays, recursively.
func JSON(v Value) (string, error) {
	// The value is assembled under a root key and unwrapped at the end,
	// which keeps every sjson path non-empty.
	doc, err := appendJSON("{}", "result", v)
	if err != nil {
		return "", err
	}

	return gjson.Get(doc, "result").Raw, nil
}

func appendJSON(doc, path string, v Value) (string, error) {
	switch v.Kind {
	case KindInteger:
		return sjson.Set(doc, path, v.Int)

	case KindNull:
		return sjson.SetRaw(doc, path, "null")

	case KindSimpleString, KindBulkString, KindError:
		return sjson.Set(doc, path, v.Str)

	case KindArray:
		doc, err := sjson.SetRaw(doc, path, "[]")
		if err != nil {
			return "", err
		}

		for i, elem := range v.Elems {
			doc, err = appendJSON(doc, path+"."+strconv.Itoa(i), elem)
			if err != nil {
				return "", err
			}
		}
		return doc, nil

	default:
		return sjson.SetRaw(doc, path, "null")
	}
}
