package value

// Ordering is the result of a definite comparison.
type Ordering int

const (
	Less Ordering = iota - 1
	EqualOrd
	Greater
)

// Compare orders two values for <, >, <=, >=, and ORDER BY. It returns
// (ordering, true) when the pair is orderable, or (0, false) when the
// comparison is indefinite (mixed, non-numeric types) and should surface
// as Null to a relational operator, or be handled by the Null-ordering
// rule inside Sort (§4.1, §4.6).
func Compare(a, b Value) (Ordering, bool) {
	switch av := a.(type) {
	case Int:
		switch bv := b.(type) {
		case Int:
			return cmpInt64(int64(av), int64(bv)), true
		case Float:
			return cmpFloat64(float64(av), float64(bv)), true
		}
	case Float:
		switch bv := b.(type) {
		case Int:
			return cmpFloat64(float64(av), float64(bv)), true
		case Float:
			return cmpFloat64(float64(av), float64(bv)), true
		}
	case Str:
		if bv, ok := b.(Str); ok {
			return cmpString(string(av), string(bv)), true
		}
	case Bool:
		if bv, ok := b.(Bool); ok {
			return cmpBool(bool(av), bool(bv)), true
		}
	case List:
		if bv, ok := b.(List); ok {
			return cmpList(av, bv)
		}
	case Date:
		if bv, ok := b.(Date); ok {
			return cmpInt64(av.EpochDay, bv.EpochDay), true
		}
	case LocalTime:
		if bv, ok := b.(LocalTime); ok {
			return cmpInt64(int64(av), int64(bv)), true
		}
	case LocalDateTime:
		if bv, ok := b.(LocalDateTime); ok {
			if av.EpochDay != bv.EpochDay {
				return cmpInt64(av.EpochDay, bv.EpochDay), true
			}
			return cmpInt64(av.NanosOfDay, bv.NanosOfDay), true
		}
	case ZonedDateTime:
		if bv, ok := b.(ZonedDateTime); ok {
			return cmpInt64(av.Epoch().UnixNano(), bv.Epoch().UnixNano()), true
		}
	case Duration:
		if bv, ok := b.(Duration); ok {
			return cmpInt64(av.ApproxNanos(), bv.ApproxNanos()), true
		}
	}
	return 0, false
}

func cmpInt64(a, b int64) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return EqualOrd
	}
}

func cmpFloat64(a, b float64) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return EqualOrd
	}
}

func cmpString(a, b string) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return EqualOrd
	}
}

func cmpBool(a, b bool) Ordering {
	if a == b {
		return EqualOrd
	}
	if !a && b {
		return Less
	}
	return Greater
}

func cmpList(a, b List) (Ordering, bool) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		o, ok := Compare(a[i], b[i])
		if !ok {
			return 0, false
		}
		if o != EqualOrd {
			return o, true
		}
	}
	return cmpInt64(int64(len(a)), int64(len(b))), true
}

// Less3 evaluates `a < b` per openCypher's three-valued comparison
// semantics: Null if either operand is Null or the pair is unorderable,
// else a definite Bool.
func Less3(a, b Value) Value { return orderOp(a, b, Less, false) }

// LessEq3 evaluates `a <= b`.
func LessEq3(a, b Value) Value { return orderOp(a, b, Less, true) }

// Greater3 evaluates `a > b`.
func Greater3(a, b Value) Value { return orderOp(a, b, Greater, false) }

// GreaterEq3 evaluates `a >= b`.
func GreaterEq3(a, b Value) Value { return orderOp(a, b, Greater, true) }

func orderOp(a, b Value, want Ordering, orEqual bool) Value {
	if IsNull(a) || IsNull(b) {
		return NullValue
	}
	o, ok := Compare(a, b)
	if !ok {
		return NullValue
	}
	if o == want {
		return Bool(true)
	}
	if orEqual && o == EqualOrd {
		return Bool(true)
	}
	return Bool(false)
}

// NullsLast sorts Null after every definite value; used for ASC with
// default null ordering (§4.6 Sort).
func NullsLast(a, b Value) Ordering {
	return nullOrder(a, b, true)
}

// NullsFirst sorts Null before every definite value; used for DESC.
func NullsFirst(a, b Value) Ordering {
	return nullOrder(a, b, false)
}

func nullOrder(a, b Value, nullGreatest bool) Ordering {
	an, bn := IsNull(a), IsNull(b)
	if an && bn {
		return EqualOrd
	}
	if an {
		if nullGreatest {
			return Greater
		}
		return Less
	}
	if bn {
		if nullGreatest {
			return Less
		}
		return Greater
	}
	o, ok := Compare(a, b)
	if !ok {
		return EqualOrd
	}
	return o
}
