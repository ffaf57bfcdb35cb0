package value_test

import (
	"testing"

	"github.com/orneryd/graphforge/pkg/value"
	"github.com/stretchr/testify/assert"
)

func TestThreeValuedAnd(t *testing.T) {
	assert.Equal(t, value.Bool(false), value.And(value.Bool(false), value.NullValue))
	assert.Equal(t, value.NullValue, value.And(value.Bool(true), value.NullValue))
	assert.Equal(t, value.Bool(true), value.And(value.Bool(true), value.Bool(true)))
}

func TestThreeValuedOr(t *testing.T) {
	assert.Equal(t, value.Bool(true), value.Or(value.Bool(true), value.NullValue))
	assert.Equal(t, value.NullValue, value.Or(value.Bool(false), value.NullValue))
}

func TestNotNullIdempotence(t *testing.T) {
	// NOT (NOT x) == x for definite x, Null for x == Null (§8.1).
	for _, b := range []value.Value{value.Bool(true), value.Bool(false)} {
		assert.Equal(t, b, value.Not(value.Not(b)))
	}
	assert.Equal(t, value.NullValue, value.Not(value.Not(value.NullValue)))
}

func TestEqualityNullPropagation(t *testing.T) {
	assert.Equal(t, value.NullValue, value.Equal(value.NullValue, value.Int(1)))
	assert.Equal(t, value.Bool(true), value.Equal(value.Int(1), value.Float(1.0)))
}

func TestArithmeticNullPropagation(t *testing.T) {
	sum, err := value.Add(value.Int(1), value.NullValue)
	assert.NoError(t, err)
	assert.Equal(t, value.NullValue, sum)

	prod, err := value.Mul(value.Int(3), value.NullValue)
	assert.NoError(t, err)
	assert.Equal(t, value.NullValue, prod)

	quot, err := value.Div(value.NullValue, value.Int(2))
	assert.NoError(t, err)
	assert.Equal(t, value.NullValue, quot)

	mod, err := value.Mod(value.NullValue, value.Int(2))
	assert.NoError(t, err)
	assert.Equal(t, value.NullValue, mod)
}

func TestDivisionByZeroYieldsNull(t *testing.T) {
	v, err := value.Div(value.Int(4), value.Int(0))
	assert.NoError(t, err)
	assert.Equal(t, value.NullValue, v)

	v, err = value.Mod(value.Int(4), value.Int(0))
	assert.NoError(t, err)
	assert.Equal(t, value.NullValue, v)
}

func TestDivisionOfIntsProducesFloat(t *testing.T) {
	v, err := value.Div(value.Int(7), value.Int(2))
	assert.NoError(t, err)
	assert.Equal(t, value.Float(3.5), v)
}

func TestIntegerExponentiation(t *testing.T) {
	v, err := value.Pow(value.Int(2), value.Int(10))
	assert.NoError(t, err)
	assert.Equal(t, value.Int(1024), v)

	v, err = value.Pow(value.Int(2), value.Float(0.5))
	assert.NoError(t, err)
	assert.Equal(t, value.KindFloat, v.Kind())
}

func TestInOperator(t *testing.T) {
	list := value.List{value.Int(1), value.Int(2), value.NullValue}
	assert.Equal(t, value.Bool(true), value.In(value.Int(2), list))
	assert.Equal(t, value.NullValue, value.In(value.Int(3), list))

	listNoNull := value.List{value.Int(1), value.Int(2)}
	assert.Equal(t, value.Bool(false), value.In(value.Int(3), listNoNull))
}

func TestListEqualityPointwise(t *testing.T) {
	a := value.List{value.Int(1), value.Str("x")}
	b := value.List{value.Int(1), value.Str("x")}
	assert.Equal(t, value.Bool(true), value.Equal(a, b))
}

func TestMapPreservesInsertionOrderButEqualityIsUnordered(t *testing.T) {
	m1 := value.NewMap(value.MapEntry{Key: "a", Value: value.Int(1)}, value.MapEntry{Key: "b", Value: value.Int(2)})
	m2 := value.NewMap(value.MapEntry{Key: "b", Value: value.Int(2)}, value.MapEntry{Key: "a", Value: value.Int(1)})
	assert.Equal(t, value.Bool(true), value.Equal(m1, m2))
	assert.Equal(t, []string{"a", "b"}, m1.Keys())
	assert.Equal(t, []string{"b", "a"}, m2.Keys())
}

func TestSortNullOrdering(t *testing.T) {
	assert.Equal(t, value.Greater, value.NullsLast(value.NullValue, value.Int(1)))
	assert.Equal(t, value.Less, value.NullsFirst(value.NullValue, value.Int(1)))
}

func TestDurationParseRoundTrip(t *testing.T) {
	d, ok := value.ParseDuration("P1Y2M3DT4H5M6S")
	assert.True(t, ok)
	assert.Equal(t, int64(14), d.Months)
	assert.Equal(t, int64(3), d.Days)
	assert.Equal(t, int64(4*3600+5*60+6), d.Seconds)
}

func TestAddDurationToDateCalendarArithmetic(t *testing.T) {
	d, _ := value.ParseDate("2024-01-31")
	dur, _ := value.ParseDuration("P1M")
	sum, err := value.Add(d, dur)
	assert.NoError(t, err)
	assert.Equal(t, value.KindDate, sum.Kind())
}

func TestDistanceMismatchedCRSIsNull(t *testing.T) {
	a := value.Point{CRS: value.CRSCartesian2D, X: 0, Y: 0}
	b := value.Point{CRS: value.CRSGeographic2D, X: 0, Y: 0}
	assert.Equal(t, value.NullValue, value.Distance(a, b))
}

func TestDistanceCartesian(t *testing.T) {
	a := value.Point{CRS: value.CRSCartesian2D, X: 0, Y: 0}
	b := value.Point{CRS: value.CRSCartesian2D, X: 3, Y: 4}
	assert.Equal(t, value.Float(5), value.Distance(a, b))
}

func TestToIntegerInvalidStringIsNull(t *testing.T) {
	assert.Equal(t, value.NullValue, value.ToInteger(value.Str("abc")))
	assert.Equal(t, value.Int(42), value.ToInteger(value.Str("42")))
}
