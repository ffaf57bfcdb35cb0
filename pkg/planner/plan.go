// Package planner lowers a parsed ast.Query into a LogicalPlan (C4,
// §4.4): a tagged-sum operator tree following the teacher's "closed set
// of variants dispatched by type switch" idiom (the same shape used
// throughout pkg/storage's record types and the deleted pkg/cypher
// clause types).
package planner

import "github.com/orneryd/graphforge/pkg/ast"

// Plan is one logical operator. Every concrete operator embeds no
// common struct; the sealed Plan interface is the only shared surface,
// matching how value.Value is sealed in C1.
type Plan interface {
	planNode()
}

type ScanAllNodes struct{ Var string }
type ScanNodesByLabel struct {
	Var   string
	Label string
}
type ScanAllRels struct{ Var string }
type ScanRelsByType struct {
	Var  string
	Type string
}

// Expand extends each input row by one hop from FromVar along an
// adjacency, binding RelVar and ToVar.
type Expand struct {
	Input       Plan
	FromVar     string
	RelVar      string
	ToVar       string
	Direction   ast.RelDirection
	Types       []string
	PatternPred ast.Expression // nil if absent
}

// VarExpand is the variable-length form, min/max inclusive; Max < 0
// means unbounded (subject to the executor's safety cap).
type VarExpand struct {
	Input       Plan
	FromVar     string
	RelVar      string // bound to the list of the path's relationships
	ToVar       string
	PathVar     string
	Direction   ast.RelDirection
	Types       []string
	Min         int
	Max         int
	PatternPred ast.Expression
}

// OptionalExpand is Expand's OPTIONAL MATCH counterpart: it never drops
// an input row, filling Null bindings when no neighbour matches.
type OptionalExpand struct {
	Input       Plan
	FromVar     string
	RelVar      string
	ToVar       string
	Direction   ast.RelDirection
	Types       []string
	PatternPred ast.Expression
}

// OptionalMatch wraps an entire subplan; the planner lowers every
// OPTIONAL MATCH clause to it.
type OptionalMatch struct {
	Input   Plan
	Subplan Plan
	Vars    []string // variables the subplan would bind, for Null-fill
}

type Filter struct {
	Input     Plan
	Predicate ast.Expression
}

// ProjectItem is one evaluated, named output column.
type ProjectItem struct {
	Expr  ast.Expression
	Alias string
}

type Project struct {
	Input    Plan
	Items    []ProjectItem
	Distinct bool
}

// Aggregator is one aggregate function call within an Aggregate operator.
type Aggregator struct {
	Func     string // count, sum, avg, min, max, collect, percentilecont, percentiledisc, stdev, stdevp
	Arg      ast.Expression
	Arg2     ast.Expression // percentile argument of percentileCont/Disc; unused otherwise
	Distinct bool
	Alias    string
}

type Aggregate struct {
	Input        Plan
	GroupingKeys []ProjectItem
	Aggregators  []Aggregator
}

type SortKey struct {
	Expr       ast.Expression
	Descending bool
}

type Sort struct {
	Input Plan
	Keys  []SortKey
}

type Skip struct {
	Input Plan
	Expr  ast.Expression
}

type Limit struct {
	Input Plan
	Expr  ast.Expression
}

type Unwind struct {
	Input Plan
	Expr  ast.Expression
	Var   string
}

type Create struct {
	Input   Plan
	Pattern []ast.PathPart
}

type Merge struct {
	Input     Plan
	Pattern   ast.PathPart
	OnCreate  []ast.SetItem
	OnMatch   []ast.SetItem
}

type Set struct {
	Input Plan
	Items []ast.SetItem
}

type Remove struct {
	Input Plan
	Items []ast.RemoveItem
}

type Delete struct {
	Input  Plan
	Exprs  []ast.Expression
	Detach bool
}

type Union struct {
	Left  Plan
	Right Plan
	All   bool
}

type CallSubquery struct {
	Input     Plan
	Subplan   Plan
	Imported  []string
	Returning bool // false = "unit" subquery, preserves cardinality 1:1
}

// Eof is the final sink every plan terminates in.
type Eof struct{ Input Plan }

func (*ScanAllNodes) planNode()     {}
func (*ScanNodesByLabel) planNode() {}
func (*ScanAllRels) planNode()      {}
func (*ScanRelsByType) planNode()   {}
func (*Expand) planNode()           {}
func (*VarExpand) planNode()        {}
func (*OptionalExpand) planNode()   {}
func (*OptionalMatch) planNode()    {}
func (*Filter) planNode()           {}
func (*Project) planNode()          {}
func (*Aggregate) planNode()        {}
func (*Sort) planNode()             {}
func (*Skip) planNode()             {}
func (*Limit) planNode()            {}
func (*Unwind) planNode()           {}
func (*Create) planNode()           {}
func (*Merge) planNode()            {}
func (*Set) planNode()              {}
func (*Remove) planNode()           {}
func (*Delete) planNode()           {}
func (*Union) planNode()            {}
func (*CallSubquery) planNode()     {}
func (*Eof) planNode()              {}
