package value

import (
	"fmt"
	"math"
)

// ErrType is returned by evaluator-level callers (pkg/eval) when an
// arithmetic op is attempted on operand types that have no Null-degrading
// interpretation (§4.1, §4.5): anything other than Null-propagation,
// numeric widening, or string concatenation.
type ErrType struct {
	Op       string
	LeftKind Kind
	RightKind Kind
}

func (e *ErrType) Error() string {
	return fmt.Sprintf("TypeError: %s not supported between %s and %s", e.Op, e.LeftKind, e.RightKind)
}

// Add implements `+`: numeric add with widening, string/list concatenation
// when either side is a Str or List, Duration/temporal addition, else
// TypeError. Null propagates first (§4.1, §4.5).
func Add(a, b Value) (Value, error) {
	if IsNull(a) || IsNull(b) {
		return NullValue, nil
	}
	switch av := a.(type) {
	case Str:
		return Str(string(av) + String(b)), nil
	case List:
		if bl, ok := b.(List); ok {
			out := make(List, 0, len(av)+len(bl))
			out = append(out, av...)
			out = append(out, bl...)
			return out, nil
		}
		out := make(List, 0, len(av)+1)
		out = append(out, av...)
		out = append(out, b)
		return out, nil
	}
	if bv, ok := b.(Str); ok {
		return Str(String(a) + string(bv)), nil
	}
	if bl, ok := b.(List); ok {
		out := make(List, 0, len(bl)+1)
		out = append(out, a)
		out = append(out, bl...)
		return out, nil
	}
	if d, ok := addTemporal(a, b); ok {
		return d, nil
	}
	return numericBinOp(a, b, "+",
		func(x, y int64) (int64, bool) { return x + y, true },
		func(x, y float64) float64 { return x + y },
	)
}

// Sub implements binary `-`.
func Sub(a, b Value) (Value, error) {
	if IsNull(a) || IsNull(b) {
		return NullValue, nil
	}
	if d, ok := subTemporal(a, b); ok {
		return d, nil
	}
	return numericBinOp(a, b, "-",
		func(x, y int64) (int64, bool) { return x - y, true },
		func(x, y float64) float64 { return x - y },
	)
}

// Mul implements `*`.
func Mul(a, b Value) (Value, error) {
	if IsNull(a) || IsNull(b) {
		return NullValue, nil
	}
	return numericBinOp(a, b, "*",
		func(x, y int64) (int64, bool) { return x * y, true },
		func(x, y float64) float64 { return x * y },
	)
}

// Div implements `/`: division by zero yields Null rather than erroring
// (§3.1, §4.1); two Ints divide to a Float (§3.1).
func Div(a, b Value) (Value, error) {
	if IsNull(a) || IsNull(b) {
		return NullValue, nil
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return NullValue, &ErrType{Op: "/", LeftKind: a.Kind(), RightKind: b.Kind()}
	}
	if bf == 0 {
		return NullValue, nil
	}
	if ai, aIsInt := a.(Int); aIsInt {
		if bi, bIsInt := b.(Int); bIsInt {
			return Float(float64(ai) / float64(bi)), nil
		}
	}
	return Float(af / bf), nil
}

// Mod implements `%`: modulo by zero yields Null (§3.1, §4.1).
func Mod(a, b Value) (Value, error) {
	if IsNull(a) || IsNull(b) {
		return NullValue, nil
	}
	ai, aIsInt := a.(Int)
	bi, bIsInt := b.(Int)
	if aIsInt && bIsInt {
		if bi == 0 {
			return NullValue, nil
		}
		return Int(int64(ai) % int64(bi)), nil
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return NullValue, &ErrType{Op: "%", LeftKind: a.Kind(), RightKind: b.Kind()}
	}
	if bf == 0 {
		return NullValue, nil
	}
	return Float(math.Mod(af, bf)), nil
}

// Pow implements `^`, right-associative at the parser level. Returns Int
// only when the mathematical result is integral and both operands are Int
// with a non-negative exponent; otherwise Float (§4.1).
func Pow(a, b Value) (Value, error) {
	if IsNull(a) || IsNull(b) {
		return NullValue, nil
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return NullValue, &ErrType{Op: "^", LeftKind: a.Kind(), RightKind: b.Kind()}
	}
	result := math.Pow(af, bf)
	if ai, aIsInt := a.(Int); aIsInt {
		if bi, bIsInt := b.(Int); bIsInt && bi >= 0 {
			if result == math.Trunc(result) && !math.IsInf(result, 0) {
				whole := int64(result)
				_ = ai
				return Int(whole), nil
			}
		}
	}
	return Float(result), nil
}

// Neg implements unary `-`.
func Neg(a Value) (Value, error) {
	if IsNull(a) {
		return NullValue, nil
	}
	switch v := a.(type) {
	case Int:
		return Int(-v), nil
	case Float:
		return Float(-v), nil
	default:
		return NullValue, &ErrType{Op: "unary -", LeftKind: a.Kind()}
	}
}

func numericBinOp(a, b Value, op string, intOp func(int64, int64) (int64, bool), floatOp func(float64, float64) float64) (Value, error) {
	ai, aIsInt := a.(Int)
	bi, bIsInt := b.(Int)
	if aIsInt && bIsInt {
		if r, ok := intOp(int64(ai), int64(bi)); ok {
			return Int(r), nil
		}
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return NullValue, &ErrType{Op: op, LeftKind: a.Kind(), RightKind: b.Kind()}
	}
	return Float(floatOp(af, bf)), nil
}

func toFloat(v Value) (float64, bool) {
	switch vv := v.(type) {
	case Int:
		return float64(vv), true
	case Float:
		return float64(vv), true
	default:
		return 0, false
	}
}
