package value

import "math"

// Equal implements openCypher's three-valued equality (§3.1, §4.1):
//   - Null in either operand (and not both being the literal Null check)
//     returns Null.
//   - Containers compare pointwise/by-key.
//   - Graph elements compare by id only.
//   - Mixed scalar types compare false, except numeric widening.
func Equal(a, b Value) Value {
	if IsNull(a) || IsNull(b) {
		return NullValue
	}
	return Bool(rawEqual(a, b))
}

// rawEqual is definite equality assuming neither side is Null. It never
// itself returns Null; callers decide whether to surface that.
func rawEqual(a, b Value) bool {
	switch av := a.(type) {
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		switch bv := b.(type) {
		case Int:
			return av == bv
		case Float:
			return float64(av) == float64(bv)
		}
		return false
	case Float:
		switch bv := b.(type) {
		case Int:
			return float64(av) == float64(bv)
		case Float:
			return av == bv || (math.IsNaN(float64(av)) && math.IsNaN(float64(bv)))
		}
		return false
	case Str:
		bv, ok := b.(Str)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if IsNull(av[i]) || IsNull(bv[i]) {
				return false
			}
			if !rawEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, e := range av.Entries() {
			other, ok := bv.Get(e.Key)
			if !ok || IsNull(e.Value) || IsNull(other) {
				return false
			}
			if !rawEqual(e.Value, other) {
				return false
			}
		}
		return true
	case Node:
		bv, ok := b.(Node)
		return ok && av.ID == bv.ID
	case Rel:
		bv, ok := b.(Rel)
		return ok && av.ID == bv.ID
	case Path:
		bv, ok := b.(Path)
		if !ok || len(av.Steps) != len(bv.Steps) {
			return false
		}
		if av.Start.ID != bv.Start.ID {
			return false
		}
		for i := range av.Steps {
			if av.Steps[i].Rel.ID != bv.Steps[i].Rel.ID {
				return false
			}
		}
		return true
	case Date:
		bv, ok := b.(Date)
		return ok && av == bv
	case LocalTime:
		bv, ok := b.(LocalTime)
		return ok && av == bv
	case ZonedTime:
		bv, ok := b.(ZonedTime)
		return ok && av.NanosOfDay == bv.NanosOfDay && av.OffsetSeconds == bv.OffsetSeconds
	case LocalDateTime:
		bv, ok := b.(LocalDateTime)
		return ok && av == bv
	case ZonedDateTime:
		bv, ok := b.(ZonedDateTime)
		return ok && av.Epoch().Equal(bv.Epoch())
	case Duration:
		bv, ok := b.(Duration)
		return ok && av == bv
	case Point:
		bv, ok := b.(Point)
		return ok && av == bv
	default:
		return false
	}
}

// In implements the IN operator: true if any element equals item; Null if
// not found but the list contains Null or item is Null; else false (§4.1).
func In(item Value, list Value) Value {
	l, ok := list.(List)
	if !ok {
		return NullValue
	}
	sawNull := IsNull(item)
	for _, e := range l {
		if IsNull(e) {
			sawNull = true
			continue
		}
		if IsNull(item) {
			continue
		}
		if rawEqual(item, e) {
			return Bool(true)
		}
	}
	if sawNull {
		return NullValue
	}
	return Bool(false)
}
