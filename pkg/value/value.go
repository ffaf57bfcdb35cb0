// Package value implements GraphForge's runtime value model: the tagged
// union of scalar, container, temporal, spatial, and graph-element values
// that flows through every stage of the query pipeline, plus openCypher's
// three-valued comparison and arithmetic semantics.
//
// Every other package (lexer, parser, planner, eval, executor, storage)
// builds on Value rather than on bare `any`, so that "what does `1 + Null`
// evaluate to" has exactly one answer in the whole codebase.
package value

import "fmt"

// Kind tags which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindList
	KindMap
	KindNode
	KindRel
	KindPath
	KindDate
	KindLocalTime
	KindZonedTime
	KindLocalDateTime
	KindZonedDateTime
	KindDuration
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Boolean"
	case KindInt:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindStr:
		return "String"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	case KindNode:
		return "Node"
	case KindRel:
		return "Relationship"
	case KindPath:
		return "Path"
	case KindDate:
		return "Date"
	case KindLocalTime:
		return "LocalTime"
	case KindZonedTime:
		return "ZonedTime"
	case KindLocalDateTime:
		return "LocalDateTime"
	case KindZonedDateTime:
		return "ZonedDateTime"
	case KindDuration:
		return "Duration"
	case KindPoint:
		return "Point"
	default:
		return "Unknown"
	}
}

// Value is the sealed sum type carried through every pipeline stage. The
// zero Value is Null, matching openCypher's "missing means Null" default.
//
// Value is intentionally an interface rather than a struct-with-tag: Go has
// no algebraic sum types, and a closed interface with an unexported marker
// method is the idiomatic substitute (the same shape used by
// ha1tch-tsqlparser's ast.Node/ast.Expression).
type Value interface {
	Kind() Kind
	valueMarker()
}

// Null is the distinguished absent value. It compares as Null (not
// true/false) against everything except IS NULL / IS NOT NULL.
type Null struct{}

func (Null) Kind() Kind   { return KindNull }
func (Null) valueMarker() {}

// NullValue is the canonical Null instance; use it instead of constructing
// Null{} to make call sites read naturally.
var NullValue = Null{}

// Bool wraps a definite boolean.
type Bool bool

func (Bool) Kind() Kind   { return KindBool }
func (Bool) valueMarker() {}

// Int wraps a 64-bit signed integer.
type Int int64

func (Int) Kind() Kind   { return KindInt }
func (Int) valueMarker() {}

// Float wraps an IEEE 754 double.
type Float float64

func (Float) Kind() Kind   { return KindFloat }
func (Float) valueMarker() {}

// Str wraps a UTF-8 string.
type Str string

func (Str) Kind() Kind   { return KindStr }
func (Str) valueMarker() {}

// List is an ordered, possibly-heterogeneous sequence of values. Only
// homogeneous scalar/temporal/spatial lists may cross the storage boundary
// as a property value (see IsPropertyValue).
type List []Value

func (List) Kind() Kind   { return KindList }
func (List) valueMarker() {}

// MapEntry is one key/value pair of a Map, preserving insertion order.
type MapEntry struct {
	Key   string
	Value Value
}

// Map is an insertion-ordered mapping from string keys to Value. Keys are
// unique; equality between two Maps is order-independent (§3.1).
type Map struct {
	entries []MapEntry
	index   map[string]int
}

func (Map) Kind() Kind   { return KindMap }
func (Map) valueMarker() {}

// NewMap builds a Map from an ordered slice of entries. Later duplicate
// keys overwrite earlier ones but keep the earlier key's position, matching
// the usual "last write wins, first position sticks" map-literal semantics.
func NewMap(entries ...MapEntry) Map {
	m := Map{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		m.Set(e.Key, e.Value)
	}
	return m
}

// Set inserts or overwrites a key, preserving first-seen order.
func (m *Map) Set(key string, v Value) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		m.entries[i].Value = v
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, MapEntry{Key: key, Value: v})
}

// Get returns the value for key and whether it was present. A missing key
// is distinct from a key explicitly set to Null.
func (m Map) Get(key string) (Value, bool) {
	i, ok := m.index[key]
	if !ok {
		return NullValue, false
	}
	return m.entries[i].Value, true
}

// GetOrNull returns the value for key, or Null if absent — the usual
// property-access semantics (§4.5: "missing keys yield Null").
func (m Map) GetOrNull(key string) Value {
	v, ok := m.Get(key)
	if !ok {
		return NullValue
	}
	return v
}

// Keys returns the map's keys in insertion order.
func (m Map) Keys() []string {
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns the map's entries in insertion order.
func (m Map) Entries() []MapEntry {
	return m.entries
}

func (m Map) Len() int { return len(m.entries) }

// NodeID identifies a node uniquely and stably for the store's lifetime.
type NodeID uint64

// RelID identifies a relationship uniquely and stably for the store's
// lifetime.
type RelID uint64

// Node is the graph-element Value produced by the store for a matched or
// created node. It is a read-only snapshot; mutation goes through the
// storage Engine, not through this value.
type Node struct {
	ID         NodeID
	Labels     []string
	Properties Map
}

func (Node) Kind() Kind   { return KindNode }
func (Node) valueMarker() {}

// HasLabel reports whether the node carries the given label.
func (n Node) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Rel is the graph-element Value for a relationship.
type Rel struct {
	ID         RelID
	Type       string
	StartID    NodeID
	EndID      NodeID
	Properties Map
}

func (Rel) Kind() Kind   { return KindRel }
func (Rel) valueMarker() {}

// OtherEnd returns the node id on the opposite side of from.
func (r Rel) OtherEnd(from NodeID) NodeID {
	if r.StartID == from {
		return r.EndID
	}
	return r.StartID
}

// PathStep is one relationship traversal within a Path, recording both the
// relationship and the direction it was traversed in (spec §3.2: "a
// relationship may be traversed in either direction").
type PathStep struct {
	Rel      Rel
	Forward  bool // true: traversed StartID -> EndID
	EndNode  Node
}

// Path is an immutable alternating node/relationship sequence, starting and
// ending with a node.
type Path struct {
	Start Node
	Steps []PathStep
}

func (Path) Kind() Kind   { return KindPath }
func (Path) valueMarker() {}

// Nodes returns every node on the path in traversal order.
func (p Path) Nodes() []Node {
	nodes := make([]Node, 0, len(p.Steps)+1)
	nodes = append(nodes, p.Start)
	for _, s := range p.Steps {
		nodes = append(nodes, s.EndNode)
	}
	return nodes
}

// Rels returns every relationship on the path in traversal order.
func (p Path) Rels() []Rel {
	rels := make([]Rel, len(p.Steps))
	for i, s := range p.Steps {
		rels[i] = s.Rel
	}
	return rels
}

// Length returns the number of relationships on the path.
func (p Path) Length() int { return len(p.Steps) }

// IsPropertyValue reports whether v may legally be stored as a node or
// relationship property: scalars, temporal, spatial values, and
// homogeneous lists of those. Heterogeneous lists, maps, and graph
// elements are rejected at the storage boundary (§3.1).
func IsPropertyValue(v Value) bool {
	switch vv := v.(type) {
	case Null, Bool, Int, Float, Str,
		Date, LocalTime, ZonedTime, LocalDateTime, ZonedDateTime, Duration,
		Point:
		return true
	case List:
		if len(vv) == 0 {
			return true
		}
		first := vv[0].Kind()
		for _, e := range vv {
			if !isScalarKind(e.Kind()) || e.Kind() != first {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isScalarKind(k Kind) bool {
	switch k {
	case KindBool, KindInt, KindFloat, KindStr,
		KindDate, KindLocalTime, KindZonedTime, KindLocalDateTime, KindZonedDateTime,
		KindDuration, KindPoint:
		return true
	default:
		return false
	}
}

// String renders v for diagnostics and RETURN-value display. It is not a
// Cypher literal encoder; callers that need that write their own.
func String(v Value) string {
	switch vv := v.(type) {
	case Null:
		return "null"
	case Bool:
		if vv {
			return "true"
		}
		return "false"
	case Int:
		return fmt.Sprintf("%d", int64(vv))
	case Float:
		return fmt.Sprintf("%g", float64(vv))
	case Str:
		return string(vv)
	case List:
		out := "["
		for i, e := range vv {
			if i > 0 {
				out += ", "
			}
			out += String(e)
		}
		return out + "]"
	case Map:
		out := "{"
		for i, e := range vv.Entries() {
			if i > 0 {
				out += ", "
			}
			out += e.Key + ": " + String(e.Value)
		}
		return out + "}"
	case Node:
		return fmt.Sprintf("(id=%d labels=%v)", vv.ID, vv.Labels)
	case Rel:
		return fmt.Sprintf("[id=%d type=%s]", vv.ID, vv.Type)
	case Path:
		return fmt.Sprintf("<path len=%d>", vv.Length())
	default:
		return fmt.Sprintf("%v", v)
	}
}

// IsNull reports whether v is the Null value.
func IsNull(v Value) bool {
	_, ok := v.(Null)
	return ok
}

// AsBool returns the underlying bool and true if v is a definite Bool.
func AsBool(v Value) (bool, bool) {
	b, ok := v.(Bool)
	return bool(b), ok
}
