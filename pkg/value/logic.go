package value

// And implements three-valued AND: short-circuits on a definite false,
// otherwise Null propagates if either side is non-definite (§4.1).
func And(a, b Value) Value {
	ab, aIsBool := AsBool(a)
	bb, bIsBool := AsBool(b)

	if aIsBool && !ab {
		return Bool(false)
	}
	if bIsBool && !bb {
		return Bool(false)
	}
	if aIsBool && bIsBool {
		return Bool(ab && bb)
	}
	return NullValue
}

// Or implements three-valued OR: short-circuits on a definite true.
func Or(a, b Value) Value {
	ab, aIsBool := AsBool(a)
	bb, bIsBool := AsBool(b)

	if aIsBool && ab {
		return Bool(true)
	}
	if bIsBool && bb {
		return Bool(true)
	}
	if aIsBool && bIsBool {
		return Bool(ab || bb)
	}
	return NullValue
}

// Xor propagates Null in every non-definite combination; only two definite
// booleans produce a definite result (§4.1).
func Xor(a, b Value) Value {
	ab, aIsBool := AsBool(a)
	bb, bIsBool := AsBool(b)
	if !aIsBool || !bIsBool {
		return NullValue
	}
	return Bool(ab != bb)
}

// Not implements three-valued NOT: NOT Null is Null.
func Not(a Value) Value {
	ab, ok := AsBool(a)
	if !ok {
		return NullValue
	}
	return Bool(!ab)
}

// IsTruthy reports whether v is the definite boolean true — the only
// condition under which a Filter/WHERE keeps a row.
func IsTruthy(v Value) bool {
	b, ok := AsBool(v)
	return ok && b
}
