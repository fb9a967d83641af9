package coredb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToJSON renders a Value as a JSON-marshalable any, the representation
// clients see when a document crosses the package boundary. Bytes
// become `{"$bytes": [..]}` (a plain array of byte values) since JSON
// has no binary type. Note that converting a Float64 to a plain Go
// float64 loses the Int64/Float64 distinction for whole numbers once
// re-encoded; MarshalJSON is the round-trip-preserving encoder.
func (v Value) ToJSON() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindNumber:
		if v.num == numInt64 {
			return v.i
		}
		return v.f
	case KindBoolean:
		return v.b
	case KindString:
		return v.s
	case KindBytes:
		nums := make([]int, len(v.bytes))
		for i, b := range v.bytes {
			nums[i] = int(b)
		}
		return map[string]any{"$bytes": nums}
	case KindArray:
		out := make([]any, len(v.array))
		for i, item := range v.array {
			out[i] = item.ToJSON()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.object))
		for k, item := range v.object {
			out[k] = item.ToJSON()
		}
		return out
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Int64 emits a bare integer
// literal; Float64 always emits a literal carrying a fraction or
// exponent (a whole 30.0 encodes as "30.0", not "30"), so DecodeJSON
// can tell the two numeric kinds apart again on the way back in.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if v.num == numInt64 {
			return strconv.AppendInt(nil, v.i, 10), nil
		}
		return floatJSONLiteral(v.f)
	case KindArray:
		return json.Marshal(v.array)
	case KindObject:
		return json.Marshal(v.object)
	default:
		return json.Marshal(v.ToJSON())
	}
}

// floatJSONLiteral formats a float64 so its literal is recognizably
// floating-point: whole values gain a trailing ".0".
func floatJSONLiteral(f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("coredb: cannot encode %v as JSON", f)
	}
	b := strconv.AppendFloat(nil, f, 'g', -1, 64)
	if !bytes.ContainsAny(b, ".eE") {
		b = append(b, '.', '0')
	}
	return b, nil
}

// DecodeJSON decodes a JSON document into a Value. Numbers are
// inspected as literals: a fraction or exponent means Float64, a bare
// integer fitting in int64 means Int64, and anything else falls back
// to Float64.
func DecodeJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, err
	}
	return FromJSON(raw), nil
}

// FromJSON converts a decoded JSON value (as produced by
// encoding/json's unmarshal into `any`) into a Value. Decoding with
// json.Decoder.UseNumber (as DecodeJSON does) preserves the numeric
// literal so Int64 and Float64 are distinguished exactly; a plain
// float64, where the literal is gone, falls back to Int64 when the
// value is whole and fits.
func FromJSON(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case bool:
		return Bool(t)
	case string:
		return Str(t)
	case float64:
		return numberFromFloat(t)
	case json.Number:
		return numberFromLiteral(t)
	case int:
		return Int64(int64(t))
	case int64:
		return Int64(t)
	case []byte:
		return BytesValue(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromJSON(item)
		}
		return Arr(items...)
	case map[string]any:
		// Decoding "$bytes" back into Bytes is intentionally not
		// attempted: the JSON boundary only guarantees Bytes -> JSON,
		// not the reverse.
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			fields[k] = FromJSON(item)
		}
		return Obj(fields)
	default:
		panic(fmt.Sprintf("coredb: FromJSON: unsupported type %T", v))
	}
}

// numberFromLiteral picks the numeric kind from the literal itself:
// "30" is Int64, "30.0" and "3e1" are Float64.
func numberFromLiteral(n json.Number) Value {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int64(i)
		}
	}
	f, _ := n.Float64()
	return Float64(f)
}

// numberFromFloat is the lossy fallback for callers handing in a bare
// float64: whole values in int64 range become Int64, everything else
// Float64.
func numberFromFloat(f float64) Value {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return Int64(int64(f))
	}
	return Float64(f)
}
