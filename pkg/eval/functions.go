package eval

import (
	"math"
	"sort"
	"strings"

	"github.com/orneryd/graphforge/pkg/ast"
	"github.com/orneryd/graphforge/pkg/value"
)

func evalFunctionCall(ctx *Context, e *ast.FunctionCall, row Row) (value.Value, error) {
	name := strings.ToLower(e.Name)
	args := make([]value.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := Eval(ctx, a, row)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	fn, ok := scalarFuncs[name]
	if !ok {
		return nil, typeErr("unknown function %s", e.Name)
	}
	return fn(args)
}

type scalarFunc func(args []value.Value) (value.Value, error)

// scalarFuncs covers every non-aggregate builtin named for §4.5's
// "conversion functions" / "string ops" / "graph" surface; aggregate
// functions (count, sum, avg, min, max, collect, percentileCont/Disc,
// stDev/P) are evaluated by pkg/executor's Aggregate operator instead,
// since they fold across rows rather than within one.
var scalarFuncs = map[string]scalarFunc{
	"coalesce": func(args []value.Value) (value.Value, error) {
		for _, a := range args {
			if !value.IsNull(a) {
				return a, nil
			}
		}
		return value.NullValue, nil
	},
	"tointeger": unary(value.ToInteger),
	"tofloat":   unary(value.ToFloat),
	"tostring":  unary(value.ToStringValue),
	"toboolean": unary(value.ToBoolean),
	"id":        fnID,
	"type":      fnType,
	"labels":    fnLabels,
	"keys":      fnKeys,
	"properties": fnProperties,
	"size":      fnSize,
	"head":      fnHead,
	"last":      fnLast,
	"tail":      fnTail,
	"reverse":   fnReverse,
	"range":     fnRange,
	"length":    fnPathLength,
	"nodes":     fnPathNodes,
	"relationships": fnPathRels,
	"upper":     stringFn(strings.ToUpper),
	"tolower":   stringFn(strings.ToLower),
	"toupper":   stringFn(strings.ToUpper),
	"lower":     stringFn(strings.ToLower),
	"trim":      stringFn(strings.TrimSpace),
	"ltrim":     stringFn(func(s string) string { return strings.TrimLeft(s, " \t\n\r") }),
	"rtrim":     stringFn(func(s string) string { return strings.TrimRight(s, " \t\n\r") }),
	"substring": fnSubstring,
	"split":     fnSplit,
	"replace":   fnReplace,
	"left":      fnLeft,
	"right":     fnRight,
	"abs":       fnAbs,
	"ceil":      fnCeil,
	"floor":     fnFloor,
	"round":     fnRound,
	"sign":      fnSign,
	"sqrt":      fnSqrt,
	"point":     fnPoint,
	"distance":  fnDistance,
	"date":      fnDate,
	"duration":  fnDuration,
}

func unary(f func(value.Value) value.Value) scalarFunc {
	return func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, typeErr("function expects exactly one argument")
		}
		return f(args[0]), nil
	}
}

func stringFn(f func(string) string) scalarFunc {
	return func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, typeErr("function expects exactly one argument")
		}
		if value.IsNull(args[0]) {
			return value.NullValue, nil
		}
		s, ok := args[0].(value.Str)
		if !ok {
			return nil, typeErr("expected String, got %s", args[0].Kind())
		}
		return value.Str(f(string(s))), nil
	}
}

func fnID(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, typeErr("id() expects exactly one argument")
	}
	switch v := args[0].(type) {
	case value.Node:
		return value.Int(v.ID), nil
	case value.Rel:
		return value.Int(v.ID), nil
	case value.Null:
		return value.NullValue, nil
	}
	return nil, typeErr("id() expects a Node or Relationship, got %s", args[0].Kind())
}

func fnType(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, typeErr("type() expects exactly one argument")
	}
	switch v := args[0].(type) {
	case value.Rel:
		return value.Str(v.Type), nil
	case value.Null:
		return value.NullValue, nil
	}
	return nil, typeErr("type() expects a Relationship, got %s", args[0].Kind())
}

func fnLabels(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, typeErr("labels() expects exactly one argument")
	}
	switch v := args[0].(type) {
	case value.Node:
		out := make(value.List, len(v.Labels))
		for i, l := range v.Labels {
			out[i] = value.Str(l)
		}
		return out, nil
	case value.Null:
		return value.NullValue, nil
	}
	return nil, typeErr("labels() expects a Node, got %s", args[0].Kind())
}

func fnKeys(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, typeErr("keys() expects exactly one argument")
	}
	var m value.Map
	switch v := args[0].(type) {
	case value.Node:
		m = v.Properties
	case value.Rel:
		m = v.Properties
	case value.Map:
		m = v
	case value.Null:
		return value.NullValue, nil
	default:
		return nil, typeErr("keys() expects a Node, Relationship, or Map, got %s", args[0].Kind())
	}
	keys := m.Keys()
	out := make(value.List, len(keys))
	for i, k := range keys {
		out[i] = value.Str(k)
	}
	return out, nil
}

func fnProperties(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, typeErr("properties() expects exactly one argument")
	}
	switch v := args[0].(type) {
	case value.Node:
		return v.Properties, nil
	case value.Rel:
		return v.Properties, nil
	case value.Map:
		return v, nil
	case value.Null:
		return value.NullValue, nil
	}
	return nil, typeErr("properties() expects a Node, Relationship, or Map, got %s", args[0].Kind())
}

func fnSize(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, typeErr("size() expects exactly one argument")
	}
	switch v := args[0].(type) {
	case value.List:
		return value.Int(len(v)), nil
	case value.Str:
		return value.Int(len([]rune(string(v)))), nil
	case value.Map:
		return value.Int(v.Len()), nil
	case value.Null:
		return value.NullValue, nil
	}
	return nil, typeErr("size() expects a List, String, or Map, got %s", args[0].Kind())
}

func asList(v value.Value) (value.List, bool, error) {
	switch l := v.(type) {
	case value.List:
		return l, false, nil
	case value.Null:
		return nil, true, nil
	}
	return nil, false, typeErr("expected a List, got %s", v.Kind())
}

func fnHead(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, typeErr("head() expects exactly one argument")
	}
	l, isNull, err := asList(args[0])
	if err != nil {
		return nil, err
	}
	if isNull || len(l) == 0 {
		return value.NullValue, nil
	}
	return l[0], nil
}

func fnLast(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, typeErr("last() expects exactly one argument")
	}
	l, isNull, err := asList(args[0])
	if err != nil {
		return nil, err
	}
	if isNull || len(l) == 0 {
		return value.NullValue, nil
	}
	return l[len(l)-1], nil
}

func fnTail(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, typeErr("tail() expects exactly one argument")
	}
	l, isNull, err := asList(args[0])
	if err != nil {
		return nil, err
	}
	if isNull {
		return value.NullValue, nil
	}
	if len(l) == 0 {
		return value.List{}, nil
	}
	return append(value.List{}, l[1:]...), nil
}

func fnReverse(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, typeErr("reverse() expects exactly one argument")
	}
	switch v := args[0].(type) {
	case value.Str:
		r := []rune(string(v))
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return value.Str(string(r)), nil
	case value.List:
		out := make(value.List, len(v))
		for i, x := range v {
			out[len(v)-1-i] = x
		}
		return out, nil
	case value.Null:
		return value.NullValue, nil
	}
	return nil, typeErr("reverse() expects a String or List, got %s", args[0].Kind())
}

func fnRange(args []value.Value) (value.Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, typeErr("range() expects 2 or 3 arguments")
	}
	start, ok := args[0].(value.Int)
	if !ok {
		return nil, typeErr("range() start must be an Integer")
	}
	end, ok := args[1].(value.Int)
	if !ok {
		return nil, typeErr("range() end must be an Integer")
	}
	step := value.Int(1)
	if len(args) == 3 {
		s, ok := args[2].(value.Int)
		if !ok || s == 0 {
			return nil, typeErr("range() step must be a non-zero Integer")
		}
		step = s
	}
	var out value.List
	if step > 0 {
		for i := start; i <= end; i += step {
			out = append(out, value.Int(i))
		}
	} else {
		for i := start; i >= end; i += step {
			out = append(out, value.Int(i))
		}
	}
	if out == nil {
		out = value.List{}
	}
	return out, nil
}

func fnPathLength(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, typeErr("length() expects exactly one argument")
	}
	p, ok := args[0].(value.Path)
	if !ok {
		if value.IsNull(args[0]) {
			return value.NullValue, nil
		}
		return nil, typeErr("length() expects a Path, got %s", args[0].Kind())
	}
	return value.Int(p.Length()), nil
}

func fnPathNodes(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, typeErr("nodes() expects exactly one argument")
	}
	p, ok := args[0].(value.Path)
	if !ok {
		if value.IsNull(args[0]) {
			return value.NullValue, nil
		}
		return nil, typeErr("nodes() expects a Path, got %s", args[0].Kind())
	}
	ns := p.Nodes()
	out := make(value.List, len(ns))
	for i, n := range ns {
		out[i] = n
	}
	return out, nil
}

func fnPathRels(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, typeErr("relationships() expects exactly one argument")
	}
	p, ok := args[0].(value.Path)
	if !ok {
		if value.IsNull(args[0]) {
			return value.NullValue, nil
		}
		return nil, typeErr("relationships() expects a Path, got %s", args[0].Kind())
	}
	rs := p.Rels()
	out := make(value.List, len(rs))
	for i, r := range rs {
		out[i] = r
	}
	return out, nil
}

func fnSubstring(args []value.Value) (value.Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, typeErr("substring() expects 2 or 3 arguments")
	}
	s, ok := args[0].(value.Str)
	if !ok {
		if value.IsNull(args[0]) {
			return value.NullValue, nil
		}
		return nil, typeErr("substring() expects a String")
	}
	start, ok := args[1].(value.Int)
	if !ok {
		return nil, typeErr("substring() start must be an Integer")
	}
	r := []rune(string(s))
	from := int(start)
	if from < 0 {
		from = 0
	}
	if from > len(r) {
		from = len(r)
	}
	to := len(r)
	if len(args) == 3 {
		length, ok := args[2].(value.Int)
		if !ok {
			return nil, typeErr("substring() length must be an Integer")
		}
		to = from + int(length)
		if to > len(r) {
			to = len(r)
		}
	}
	if to < from {
		to = from
	}
	return value.Str(string(r[from:to])), nil
}

func fnSplit(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, typeErr("split() expects exactly two arguments")
	}
	s, ok1 := args[0].(value.Str)
	sep, ok2 := args[1].(value.Str)
	if !ok1 || !ok2 {
		if value.IsNull(args[0]) {
			return value.NullValue, nil
		}
		return nil, typeErr("split() expects two Strings")
	}
	parts := strings.Split(string(s), string(sep))
	out := make(value.List, len(parts))
	for i, p := range parts {
		out[i] = value.Str(p)
	}
	return out, nil
}

func fnReplace(args []value.Value) (value.Value, error) {
	if len(args) != 3 {
		return nil, typeErr("replace() expects exactly three arguments")
	}
	s, ok1 := args[0].(value.Str)
	from, ok2 := args[1].(value.Str)
	to, ok3 := args[2].(value.Str)
	if !ok1 || !ok2 || !ok3 {
		if value.IsNull(args[0]) {
			return value.NullValue, nil
		}
		return nil, typeErr("replace() expects three Strings")
	}
	return value.Str(strings.ReplaceAll(string(s), string(from), string(to))), nil
}

func fnLeft(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, typeErr("left() expects exactly two arguments")
	}
	s, ok := args[0].(value.Str)
	if !ok {
		if value.IsNull(args[0]) {
			return value.NullValue, nil
		}
		return nil, typeErr("left() expects a String")
	}
	n, ok := args[1].(value.Int)
	if !ok {
		return nil, typeErr("left() length must be an Integer")
	}
	r := []rune(string(s))
	if int(n) > len(r) {
		n = value.Int(len(r))
	}
	if n < 0 {
		n = 0
	}
	return value.Str(string(r[:n])), nil
}

func fnRight(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, typeErr("right() expects exactly two arguments")
	}
	s, ok := args[0].(value.Str)
	if !ok {
		if value.IsNull(args[0]) {
			return value.NullValue, nil
		}
		return nil, typeErr("right() expects a String")
	}
	n, ok := args[1].(value.Int)
	if !ok {
		return nil, typeErr("right() length must be an Integer")
	}
	r := []rune(string(s))
	if int(n) > len(r) {
		n = value.Int(len(r))
	}
	if n < 0 {
		n = 0
	}
	return value.Str(string(r[len(r)-int(n):])), nil
}

func fnAbs(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, typeErr("abs() expects exactly one argument")
	}
	switch v := args[0].(type) {
	case value.Int:
		if v < 0 {
			return -v, nil
		}
		return v, nil
	case value.Float:
		if v < 0 {
			return -v, nil
		}
		return v, nil
	case value.Null:
		return value.NullValue, nil
	}
	return nil, typeErr("abs() expects a numeric value, got %s", args[0].Kind())
}

func fnCeil(args []value.Value) (value.Value, error)  { return roundingFn(args, "ceil()", math.Ceil) }
func fnFloor(args []value.Value) (value.Value, error) { return roundingFn(args, "floor()", math.Floor) }
func fnRound(args []value.Value) (value.Value, error) {
	return roundingFn(args, "round()", math.Round)
}
func fnSqrt(args []value.Value) (value.Value, error) { return roundingFn(args, "sqrt()", math.Sqrt) }
func fnSign(args []value.Value) (value.Value, error) {
	return roundingFn(args, "sign()", func(f float64) float64 {
		switch {
		case f > 0:
			return 1
		case f < 0:
			return -1
		default:
			return 0
		}
	})
}

// roundingFn implements the numeric functions that always widen their
// argument to Float before applying f, per §4.1's numeric widening rule.
func roundingFn(args []value.Value, name string, f func(float64) float64) (value.Value, error) {
	if len(args) != 1 {
		return nil, typeErr("%s expects exactly one argument", name)
	}
	if value.IsNull(args[0]) {
		return value.NullValue, nil
	}
	fv, ok := value.ToFloat(args[0]).(value.Float)
	if !ok {
		return nil, typeErr("%s expects a numeric value, got %s", name, args[0].Kind())
	}
	return value.Float(f(float64(fv))), nil
}

func fnPoint(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, typeErr("point() expects exactly one Map argument")
	}
	m, ok := args[0].(value.Map)
	if !ok {
		return nil, typeErr("point() expects a Map, got %s", args[0].Kind())
	}
	p, ok := value.NewPointFromMap(m)
	if !ok {
		return value.NullValue, nil
	}
	return p, nil
}

func fnDistance(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, typeErr("distance() expects exactly two arguments")
	}
	a, ok1 := args[0].(value.Point)
	b, ok2 := args[1].(value.Point)
	if !ok1 || !ok2 {
		if value.IsNull(args[0]) || value.IsNull(args[1]) {
			return value.NullValue, nil
		}
		return nil, typeErr("distance() expects two Points")
	}
	return value.Distance(a, b), nil
}

func fnDate(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return nil, typeErr("date() with no arguments requires a clock, not supported in a pure expression context")
	}
	switch v := args[0].(type) {
	case value.Str:
		d, ok := value.ParseDate(string(v))
		if !ok {
			return value.NullValue, nil
		}
		return d, nil
	case value.Map:
		d, ok := value.DateFromComponents(v)
		if !ok {
			return value.NullValue, nil
		}
		return d, nil
	}
	return nil, typeErr("date() expects a String or Map, got %s", args[0].Kind())
}

func fnDuration(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, typeErr("duration() expects exactly one argument")
	}
	s, ok := args[0].(value.Str)
	if !ok {
		return nil, typeErr("duration() expects a String, got %s", args[0].Kind())
	}
	d, ok := value.ParseDuration(string(s))
	if !ok {
		return value.NullValue, nil
	}
	return d, nil
}

// sortList returns a stably sorted copy of l ordered by value.Compare;
// pairs that do not compare keep their relative order.
func sortList(l value.List) value.List {
	out := append(value.List{}, l...)
	sort.SliceStable(out, func(i, j int) bool {
		ord, ok := value.Compare(out[i], out[j])
		if !ok {
			return false
		}
		return ord == value.Less
	})
	return out
}
