package value

import (
	"strconv"
	"strings"
)

// ToInteger implements toInteger(): invalid conversions degrade to Null
// rather than erroring (§4.1 failure modes).
func ToInteger(v Value) Value {
	switch vv := v.(type) {
	case Null:
		return NullValue
	case Int:
		return vv
	case Float:
		return Int(int64(vv))
	case Str:
		s := strings.TrimSpace(string(vv))
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(n)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Int(int64(f))
		}
		return NullValue
	case Bool:
		if vv {
			return Int(1)
		}
		return Int(0)
	default:
		return NullValue
	}
}

// ToFloat implements toFloat().
func ToFloat(v Value) Value {
	switch vv := v.(type) {
	case Null:
		return NullValue
	case Float:
		return vv
	case Int:
		return Float(vv)
	case Str:
		s := strings.TrimSpace(string(vv))
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Float(f)
		}
		return NullValue
	default:
		return NullValue
	}
}

// ToStringValue implements toString().
func ToStringValue(v Value) Value {
	if IsNull(v) {
		return NullValue
	}
	switch v.(type) {
	case List, Map, Node, Rel, Path:
		return NullValue
	}
	return Str(String(v))
}

// ToBoolean implements toBoolean(): only the literal strings "true"/"false"
// (case-insensitive) convert; anything else is Null.
func ToBoolean(v Value) Value {
	switch vv := v.(type) {
	case Null:
		return NullValue
	case Bool:
		return vv
	case Str:
		switch strings.ToLower(string(vv)) {
		case "true":
			return Bool(true)
		case "false":
			return Bool(false)
		default:
			return NullValue
		}
	default:
		return NullValue
	}
}
