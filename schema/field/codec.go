package field

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// codec converts between Go values and the values bound to or read from
// the database. Neither function sees nil; columns short-circuit it.
type codec struct {
	encode func(any) (any, error)
	decode func(any) (any, error)
}

func identity(v any) (any, error) { return v, nil }

var passthrough = codec{encode: identity, decode: identity}

// timestampLayouts are tried in order when decoding timestamps stored as text.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

var boolCodec = codec{
	encode: identity,
	decode: func(v any) (any, error) {
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		case int:
			return x != 0, nil
		case string:
			return strconv.ParseBool(x)
		case []byte:
			return strconv.ParseBool(string(x))
		default:
			return nil, fmt.Errorf("unexpected boolean value of type %T", v)
		}
	},
}

var jsonCodec = codec{
	encode: func(v any) (any, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	},
	decode: func(v any) (any, error) {
		var data []byte
		switch x := v.(type) {
		case string:
			// Text that neither parses nor opens an object, array or string
			// is a string scalar that was already decoded.
			if !jsonText(x) {
				return x, nil
			}
			data = []byte(x)
		case []byte:
			data = x
		default:
			return v, nil
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var out any
		if err := dec.Decode(&out); err != nil {
			return nil, err
		}
		if dec.More() {
			return nil, fmt.Errorf("unexpected data after JSON value at offset %d", dec.InputOffset())
		}
		return jsonNumbers(out), nil
	},
}

// jsonText reports whether s is, or is meant to be, a JSON document.
func jsonText(s string) bool {
	t := strings.TrimSpace(s)
	return json.Valid([]byte(t)) || t != "" && strings.ContainsRune(`{["`, rune(t[0]))
}

// jsonNumbers replaces the json.Number values of a decoded document with
// int64 when integral and representable, and float64 otherwise.
func jsonNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = jsonNumbers(e)
		}
	case []any:
		for i, e := range x {
			x[i] = jsonNumbers(e)
		}
	}
	return v
}

var dateCodec = codec{
	encode: func(v any) (any, error) {
		switch x := v.(type) {
		case civil.Date:
			return x.String(), nil
		case time.Time:
			return civil.DateOf(x).String(), nil
		case string:
			d, err := civil.ParseDate(x)
			if err != nil {
				return nil, err
			}
			return d.String(), nil
		default:
			return nil, fmt.Errorf("unexpected date value of type %T", v)
		}
	},
	decode: func(v any) (any, error) {
		switch x := v.(type) {
		case civil.Date:
			return x, nil
		case time.Time:
			return civil.DateOf(x), nil
		case string:
			return parseDate(x)
		case []byte:
			return parseDate(string(x))
		default:
			return nil, fmt.Errorf("unexpected date value of type %T", v)
		}
	},
}

// parseDate accepts a date optionally followed by a time part.
func parseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil && len(s) > 10 {
		return civil.ParseDate(s[:10])
	}
	return d, err
}

var timeCodec = codec{
	encode: func(v any) (any, error) {
		switch x := v.(type) {
		case civil.Time:
			return x.String(), nil
		case time.Time:
			return civil.TimeOf(x).String(), nil
		case string:
			t, err := civil.ParseTime(x)
			if err != nil {
				return nil, err
			}
			return t.String(), nil
		default:
			return nil, fmt.Errorf("unexpected time value of type %T", v)
		}
	},
	decode: func(v any) (any, error) {
		switch x := v.(type) {
		case civil.Time:
			return x, nil
		case time.Time:
			return civil.TimeOf(x), nil
		case string:
			return civil.ParseTime(x)
		case []byte:
			return civil.ParseTime(string(x))
		default:
			return nil, fmt.Errorf("unexpected time value of type %T", v)
		}
	},
}

var timestampCodec = codec{
	encode: func(v any) (any, error) {
		switch x := v.(type) {
		case time.Time:
			return x.Format(time.RFC3339Nano), nil
		case string:
			t, err := parseTimestamp(x)
			if err != nil {
				return nil, err
			}
			return t.Format(time.RFC3339Nano), nil
		default:
			return nil, fmt.Errorf("unexpected timestamp value of type %T", v)
		}
	},
	decode: func(v any) (any, error) {
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			return parseTimestamp(x)
		case []byte:
			return parseTimestamp(string(x))
		default:
			return nil, fmt.Errorf("unexpected timestamp value of type %T", v)
		}
	},
}

func parseTimestamp(s string) (time.Time, error) {
	var err error
	for _, layout := range timestampLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
}

var uuidCodec = codec{
	encode: func(v any) (any, error) {
		switch x := v.(type) {
		case uuid.UUID:
			return x.String(), nil
		case [16]byte:
			return uuid.UUID(x).String(), nil
		case string:
			u, err := uuid.Parse(x)
			if err != nil {
				return nil, err
			}
			return u.String(), nil
		default:
			return nil, fmt.Errorf("unexpected uuid value of type %T", v)
		}
	},
	decode: func(v any) (any, error) {
		switch x := v.(type) {
		case uuid.UUID:
			return x, nil
		case [16]byte:
			return uuid.UUID(x), nil
		case string:
			return uuid.Parse(x)
		case []byte:
			if len(x) == 16 {
				return uuid.FromBytes(x)
			}
			return uuid.ParseBytes(x)
		default:
			return nil, fmt.Errorf("unexpected uuid value of type %T", v)
		}
	},
}

var msgpackCodec = codec{
	encode: func(v any) (any, error) {
		return msgpack.Marshal(v)
	},
	decode: func(v any) (any, error) {
		var data []byte
		switch x := v.(type) {
		case []byte:
			data = x
		case string:
			data = []byte(x)
		default:
			return v, nil
		}
		var out any
		if err := msgpack.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	},
}
