package field

import (
	"fmt"
	"strconv"

	"github.com/syssam/schemix/dialect"
)

// A Type represents a column type.
type Type uint8

// List of column types.
const (
	TypeInvalid Type = iota
	TypeInteger
	TypeSmallInt
	TypeBigInt
	TypeSerial
	TypeSmallSerial
	TypeBigSerial
	TypeNumeric
	TypeDecimal
	TypeReal
	TypeVarchar
	TypeChar
	TypeText
	TypeBoolean
	TypeDate
	TypeTime
	TypeTimestamp
	TypeJSON
	TypeJSONB
	TypeBlob
	TypeUUID
	TypeMsgPack
	endTypes
)

// Types returns all valid column types.
func Types() []Type {
	types := make([]Type, 0, endTypes-1)
	for t := TypeInteger; t < endTypes; t++ {
		types = append(types, t)
	}
	return types
}

// String returns the name of the type.
func (t Type) String() string {
	if info, ok := typeInfos[t]; ok {
		return info.name
	}
	return "invalid"
}

// Valid reports if the given type is known.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// Capability is a set of operator groups a column type supports.
type Capability uint8

// Operator groups. Equality and NULL checks are available to every type.
const (
	Ordering    Capability = 1 << iota // < <= > >=
	Arithmetic                         // + - * / % ^
	StringMatch                        // || LIKE ILIKE
	Counting                           // COUNT
	MinMax                             // MIN MAX
	SumAvg                             // SUM AVG
)

const (
	numericCaps  = Ordering | Arithmetic | Counting | MinMax | SumAvg
	textCaps     = Ordering | StringMatch | Counting | MinMax
	temporalCaps = Ordering | Counting | MinMax
)

// Has reports whether all capabilities in o are present in c.
func (c Capability) Has(o Capability) bool { return c&o == o }

// Params keys.
const (
	ParamLength    = "length"
	ParamPrecision = "precision"
	ParamScale     = "scale"
	ParamTimezone  = "with_timezone"
)

// sqlTypeFunc renders the SQL type of a column. A nil function marks the
// (type, dialect) pair as unsupported.
type sqlTypeFunc func(params map[string]any) string

type typeInfo struct {
	name  string
	caps  Capability
	codec codec
	sql   map[string]sqlTypeFunc
}

func fixed(s string) sqlTypeFunc {
	return func(map[string]any) string { return s }
}

// withLength renders NAME(n), or NAME when no length is set.
func withLength(name string) sqlTypeFunc {
	return func(p map[string]any) string {
		if n, ok := intParam(p, ParamLength); ok {
			return name + "(" + strconv.Itoa(n) + ")"
		}
		return name
	}
}

// withPrecisionScale renders NAME, NAME(p) or NAME(p, s).
func withPrecisionScale(name string) sqlTypeFunc {
	return func(p map[string]any) string {
		prec, ok := intParam(p, ParamPrecision)
		if !ok {
			return name
		}
		if scale, ok := intParam(p, ParamScale); ok {
			return fmt.Sprintf("%s(%d, %d)", name, prec, scale)
		}
		return fmt.Sprintf("%s(%d)", name, prec)
	}
}

// temporal renders NAME[(p)][ WITH TIME ZONE].
func temporal(name string) sqlTypeFunc {
	return func(p map[string]any) string {
		s := name
		if prec, ok := intParam(p, ParamPrecision); ok {
			s += "(" + strconv.Itoa(prec) + ")"
		}
		if tz, _ := p[ParamTimezone].(bool); tz {
			s += " WITH TIME ZONE"
		}
		return s
	}
}

func intParam(p map[string]any, key string) (int, bool) {
	n, ok := p[key].(int)
	return n, ok
}

// typeInfos is keyed by type, then dialect. Every type must list every
// dialect, using a nil function for unsupported pairs.
var typeInfos = map[Type]*typeInfo{
	TypeInteger: {
		name: "integer", caps: numericCaps, codec: passthrough,
		sql: map[string]sqlTypeFunc{dialect.SQLite: fixed("INTEGER"), dialect.Postgres: fixed("INTEGER")},
	},
	TypeSmallInt: {
		name: "smallint", caps: numericCaps, codec: passthrough,
		sql: map[string]sqlTypeFunc{dialect.SQLite: fixed("INTEGER"), dialect.Postgres: fixed("SMALLINT")},
	},
	TypeBigInt: {
		name: "bigint", caps: numericCaps, codec: passthrough,
		sql: map[string]sqlTypeFunc{dialect.SQLite: fixed("INTEGER"), dialect.Postgres: fixed("BIGINT")},
	},
	TypeSerial: {
		name: "serial", caps: numericCaps, codec: passthrough,
		sql: map[string]sqlTypeFunc{dialect.SQLite: nil, dialect.Postgres: fixed("SERIAL")},
	},
	TypeSmallSerial: {
		name: "smallserial", caps: numericCaps, codec: passthrough,
		sql: map[string]sqlTypeFunc{dialect.SQLite: nil, dialect.Postgres: fixed("SMALLSERIAL")},
	},
	TypeBigSerial: {
		name: "bigserial", caps: numericCaps, codec: passthrough,
		sql: map[string]sqlTypeFunc{dialect.SQLite: nil, dialect.Postgres: fixed("BIGSERIAL")},
	},
	TypeNumeric: {
		name: "numeric", caps: numericCaps, codec: passthrough,
		sql: map[string]sqlTypeFunc{dialect.SQLite: fixed("NUMERIC"), dialect.Postgres: withPrecisionScale("NUMERIC")},
	},
	TypeDecimal: {
		name: "decimal", caps: numericCaps, codec: passthrough,
		sql: map[string]sqlTypeFunc{dialect.SQLite: fixed("NUMERIC"), dialect.Postgres: withPrecisionScale("DECIMAL")},
	},
	TypeReal: {
		name: "real", caps: numericCaps, codec: passthrough,
		sql: map[string]sqlTypeFunc{dialect.SQLite: fixed("REAL"), dialect.Postgres: fixed("REAL")},
	},
	TypeVarchar: {
		name: "varchar", caps: textCaps, codec: passthrough,
		sql: map[string]sqlTypeFunc{dialect.SQLite: withLength("VARCHAR"), dialect.Postgres: withLength("VARCHAR")},
	},
	TypeChar: {
		name: "char", caps: textCaps, codec: passthrough,
		sql: map[string]sqlTypeFunc{dialect.SQLite: fixed("TEXT"), dialect.Postgres: withLength("CHAR")},
	},
	TypeText: {
		name: "text", caps: textCaps, codec: passthrough,
		sql: map[string]sqlTypeFunc{dialect.SQLite: fixed("TEXT"), dialect.Postgres: fixed("TEXT")},
	},
	TypeBoolean: {
		name: "boolean", caps: Counting, codec: boolCodec,
		sql: map[string]sqlTypeFunc{dialect.SQLite: fixed("BOOLEAN"), dialect.Postgres: fixed("BOOLEAN")},
	},
	TypeDate: {
		name: "date", caps: temporalCaps, codec: dateCodec,
		sql: map[string]sqlTypeFunc{dialect.SQLite: fixed("TEXT"), dialect.Postgres: fixed("DATE")},
	},
	TypeTime: {
		name: "time", caps: temporalCaps, codec: timeCodec,
		sql: map[string]sqlTypeFunc{dialect.SQLite: fixed("TEXT"), dialect.Postgres: temporal("TIME")},
	},
	TypeTimestamp: {
		name: "timestamp", caps: temporalCaps, codec: timestampCodec,
		sql: map[string]sqlTypeFunc{dialect.SQLite: fixed("TEXT"), dialect.Postgres: temporal("TIMESTAMP")},
	},
	TypeJSON: {
		name: "json", caps: Counting, codec: jsonCodec,
		sql: map[string]sqlTypeFunc{dialect.SQLite: fixed("TEXT"), dialect.Postgres: fixed("JSON")},
	},
	TypeJSONB: {
		name: "jsonb", caps: Counting, codec: jsonCodec,
		sql: map[string]sqlTypeFunc{dialect.SQLite: fixed("TEXT"), dialect.Postgres: fixed("JSONB")},
	},
	TypeBlob: {
		name: "blob", caps: Counting, codec: passthrough,
		sql: map[string]sqlTypeFunc{dialect.SQLite: fixed("BLOB"), dialect.Postgres: nil},
	},
	TypeUUID: {
		name: "uuid", caps: Ordering | Counting, codec: uuidCodec,
		sql: map[string]sqlTypeFunc{dialect.SQLite: fixed("TEXT"), dialect.Postgres: fixed("UUID")},
	},
	TypeMsgPack: {
		name: "msgpack", caps: Counting, codec: msgpackCodec,
		sql: map[string]sqlTypeFunc{dialect.SQLite: fixed("BLOB"), dialect.Postgres: fixed("BYTEA")},
	},
}

func init() {
	if err := checkTypes(typeInfos); err != nil {
		panic(err)
	}
}

func checkTypes(infos map[Type]*typeInfo) error {
	for _, t := range Types() {
		info, ok := infos[t]
		if !ok {
			return fmt.Errorf("field: type %d has no definition", t)
		}
		if info.codec.encode == nil || info.codec.decode == nil {
			return fmt.Errorf("field: type %s has no codec", info.name)
		}
		for _, d := range dialect.Dialects() {
			if _, ok := info.sql[d]; !ok {
				return fmt.Errorf("field: type %s has no entry for dialect %s", info.name, d)
			}
		}
	}
	return nil
}
