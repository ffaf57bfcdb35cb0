package executor

import (
	"math"
	"sort"
	"strings"

	"github.com/orneryd/graphforge/pkg/eval"
	"github.com/orneryd/graphforge/pkg/planner"
	"github.com/orneryd/graphforge/pkg/storage"
	"github.com/orneryd/graphforge/pkg/value"
)

// aggregateOp groups input rows by GroupingKeys and folds each Aggregators
// entry across the group, buffering the whole input (§4.4: aggregation is
// a blocking operator, unlike the rest of the pull-based pipeline).
type aggregateOp struct {
	plan  *planner.Aggregate
	input Operator
	b     *opBuilder
	tx    storage.Tx

	groups  []*aggGroup
	index   map[string]*aggGroup
	emitted int
	done    bool
}

type aggGroup struct {
	keyValues []value.Value
	states    []aggState
}

func (o *aggregateOp) Open(tx storage.Tx) error {
	o.tx = tx
	o.index = make(map[string]*aggGroup)
	return o.input.Open(tx)
}

func (o *aggregateOp) Next() (eval.Row, bool, error) {
	if !o.done {
		if err := o.consume(); err != nil {
			return nil, false, err
		}
		o.done = true
	}
	if o.emitted >= len(o.groups) {
		return nil, false, nil
	}
	g := o.groups[o.emitted]
	o.emitted++

	out := make(eval.Row, len(o.plan.GroupingKeys)+len(o.plan.Aggregators))
	for i, key := range o.plan.GroupingKeys {
		out[key.Alias] = g.keyValues[i]
	}
	for i, agg := range o.plan.Aggregators {
		v, err := g.states[i].result()
		if err != nil {
			return nil, false, err
		}
		out[agg.Alias] = v
	}
	return out, true, nil
}

func (o *aggregateOp) consume() error {
	for {
		row, ok, err := o.input.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		keyValues := make([]value.Value, len(o.plan.GroupingKeys))
		for i, key := range o.plan.GroupingKeys {
			v, err := eval.Eval(o.b.evalCtx(o.tx), key.Expr, row)
			if err != nil {
				return err
			}
			keyValues[i] = v
		}
		gk := groupKey(keyValues)
		g, ok := o.index[gk]
		if !ok {
			g = &aggGroup{keyValues: keyValues, states: make([]aggState, len(o.plan.Aggregators))}
			for i, agg := range o.plan.Aggregators {
				g.states[i] = newAggState(agg)
			}
			o.index[gk] = g
			o.groups = append(o.groups, g)
		}
		for i, agg := range o.plan.Aggregators {
			var arg value.Value = value.NullValue
			if agg.Arg != nil {
				arg, err = eval.Eval(o.b.evalCtx(o.tx), agg.Arg, row)
				if err != nil {
					return err
				}
			}
			var arg2 value.Value
			if agg.Arg2 != nil {
				arg2, err = eval.Eval(o.b.evalCtx(o.tx), agg.Arg2, row)
				if err != nil {
					return err
				}
			}
			if err := g.states[i].add(arg, arg2); err != nil {
				return err
			}
		}
	}
}

func (o *aggregateOp) Close() error { return o.input.Close() }

func groupKey(values []value.Value) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(value.String(v))
		b.WriteByte('\x1f')
	}
	return b.String()
}

// aggState folds one aggregator's running value across a group.
type aggState interface {
	add(arg, arg2 value.Value) error
	result() (value.Value, error)
}

func newAggState(agg planner.Aggregator) aggState {
	switch agg.Func {
	case "count":
		return &countState{star: agg.Arg == nil, distinct: agg.Distinct, seen: map[string]bool{}}
	case "sum":
		return &sumState{}
	case "avg":
		return &avgState{}
	case "min":
		return &minMaxState{wantMin: true}
	case "max":
		return &minMaxState{wantMin: false}
	case "collect":
		return &collectState{distinct: agg.Distinct, seen: map[string]bool{}}
	case "percentilecont":
		return &percentileState{continuous: true}
	case "percentiledisc":
		return &percentileState{continuous: false}
	case "stdev":
		return &stdevState{sample: true}
	case "stdevp":
		return &stdevState{sample: false}
	default:
		return &countState{}
	}
}

type countState struct {
	star     bool
	distinct bool
	seen     map[string]bool
	n        int64
}

func (s *countState) add(arg, _ value.Value) error {
	if s.star || !value.IsNull(arg) {
		if s.distinct {
			k := value.String(arg)
			if s.seen[k] {
				return nil
			}
			s.seen[k] = true
		}
		s.n++
	}
	return nil
}
func (s *countState) result() (value.Value, error) { return value.Int(s.n), nil }

type sumState struct {
	hasFloat bool
	i        int64
	f        float64
}

func (s *sumState) add(arg, _ value.Value) error {
	switch v := arg.(type) {
	case value.Null:
		return nil
	case value.Int:
		if s.hasFloat {
			s.f += float64(v)
		} else {
			s.i += int64(v)
		}
	case value.Float:
		if !s.hasFloat {
			s.f = float64(s.i)
			s.hasFloat = true
		}
		s.f += float64(v)
	default:
		return typeErrAgg("sum", arg)
	}
	return nil
}
func (s *sumState) result() (value.Value, error) {
	if s.hasFloat {
		return value.Float(s.f), nil
	}
	return value.Int(s.i), nil
}

type avgState struct {
	sum   float64
	count int64
}

func (s *avgState) add(arg, _ value.Value) error {
	if value.IsNull(arg) {
		return nil
	}
	f, ok := asFloat(arg)
	if !ok {
		return typeErrAgg("avg", arg)
	}
	s.sum += f
	s.count++
	return nil
}
func (s *avgState) result() (value.Value, error) {
	if s.count == 0 {
		return value.NullValue, nil
	}
	return value.Float(s.sum / float64(s.count)), nil
}

type minMaxState struct {
	wantMin bool
	has     bool
	cur     value.Value
}

func (s *minMaxState) add(arg, _ value.Value) error {
	if value.IsNull(arg) {
		return nil
	}
	if !s.has {
		s.cur = arg
		s.has = true
		return nil
	}
	o, ok := value.Compare(s.cur, arg)
	if !ok {
		return nil
	}
	if (s.wantMin && o == value.Greater) || (!s.wantMin && o == value.Less) {
		s.cur = arg
	}
	return nil
}
func (s *minMaxState) result() (value.Value, error) {
	if !s.has {
		return value.NullValue, nil
	}
	return s.cur, nil
}

type collectState struct {
	distinct bool
	seen     map[string]bool
	items    value.List
}

func (s *collectState) add(arg, _ value.Value) error {
	if value.IsNull(arg) {
		return nil // collect() skips Null entries (§4.4)
	}
	if s.distinct {
		k := value.String(arg)
		if s.seen[k] {
			return nil
		}
		s.seen[k] = true
	}
	s.items = append(s.items, arg)
	return nil
}
func (s *collectState) result() (value.Value, error) { return s.items, nil }

// percentileState buffers every non-Null sample; percentileCont
// interpolates linearly between ranks, percentileDisc picks the nearest
// actual sample (§9).
type percentileState struct {
	continuous bool
	pct        float64
	havePct    bool
	samples    []float64
}

func (s *percentileState) add(arg, pct value.Value) error {
	if !s.havePct && !value.IsNull(pct) {
		f, ok := asFloat(pct)
		if !ok {
			return typeErrAgg("percentile", pct)
		}
		s.pct = f
		s.havePct = true
	}
	if value.IsNull(arg) {
		return nil
	}
	f, ok := asFloat(arg)
	if !ok {
		return typeErrAgg("percentile", arg)
	}
	s.samples = append(s.samples, f)
	return nil
}

func (s *percentileState) result() (value.Value, error) {
	if len(s.samples) == 0 {
		return value.NullValue, nil
	}
	sort.Float64s(s.samples)
	if s.continuous {
		return value.Float(percentileCont(s.samples, s.pct)), nil
	}
	return value.Float(percentileDisc(s.samples, s.pct)), nil
}

func percentileCont(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := p * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func percentileDisc(sorted []float64, p float64) float64 {
	idx := int(math.Ceil(p * float64(len(sorted))))
	if idx < 1 {
		idx = 1
	}
	if idx > len(sorted) {
		idx = len(sorted)
	}
	return sorted[idx-1]
}

// stdevState is sample (N-1) or population (N) standard deviation.
type stdevState struct {
	sample  bool
	samples []float64
}

func (s *stdevState) add(arg, _ value.Value) error {
	if value.IsNull(arg) {
		return nil
	}
	f, ok := asFloat(arg)
	if !ok {
		return typeErrAgg("stDev", arg)
	}
	s.samples = append(s.samples, f)
	return nil
}

func (s *stdevState) result() (value.Value, error) {
	n := len(s.samples)
	if n == 0 {
		return value.NullValue, nil
	}
	if s.sample && n < 2 {
		return value.Float(0), nil
	}
	var mean float64
	for _, v := range s.samples {
		mean += v
	}
	mean /= float64(n)
	var sq float64
	for _, v := range s.samples {
		d := v - mean
		sq += d * d
	}
	denom := float64(n)
	if s.sample {
		denom = float64(n - 1)
	}
	return value.Float(math.Sqrt(sq / denom)), nil
}

func asFloat(v value.Value) (float64, bool) {
	switch n := v.(type) {
	case value.Int:
		return float64(n), true
	case value.Float:
		return float64(n), true
	default:
		return 0, false
	}
}

func typeErrAgg(fn string, v value.Value) error {
	return rtErr("TypeError", "%s() requires a numeric argument, got %s", fn, v.Kind())
}

func (o *aggregateOp) seed(row eval.Row) {
	if s, ok := o.input.(seedable); ok {
		s.seed(row)
	}
}
