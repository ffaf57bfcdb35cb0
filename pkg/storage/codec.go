package storage

import (
	"encoding/json"
	"fmt"

	"github.com/orneryd/graphforge/pkg/value"
)

// wireValue is the on-disk encoding for a single value.Value. Value is a
// closed interface (no exported fields to marshal directly), so the
// Badger backend needs an explicit discriminated-union wire format; this
// is that format's single definition, used by both node and relationship
// property encoding.
type wireValue struct {
	K string      `json:"k"`
	V interface{} `json:"v,omitempty"`
}

func encodeValue(v value.Value) wireValue {
	switch vv := v.(type) {
	case value.Null:
		return wireValue{K: "null"}
	case value.Bool:
		return wireValue{K: "bool", V: bool(vv)}
	case value.Int:
		return wireValue{K: "int", V: int64(vv)}
	case value.Float:
		return wireValue{K: "float", V: float64(vv)}
	case value.Str:
		return wireValue{K: "str", V: string(vv)}
	case value.List:
		items := make([]wireValue, len(vv))
		for i, e := range vv {
			items[i] = encodeValue(e)
		}
		return wireValue{K: "list", V: items}
	case value.Map:
		entries := make([]wireMapEntry, 0, vv.Len())
		for _, e := range vv.Entries() {
			entries = append(entries, wireMapEntry{Key: e.Key, Value: encodeValue(e.Value)})
		}
		return wireValue{K: "map", V: entries}
	case value.Date:
		return wireValue{K: "date", V: vv.EpochDay}
	case value.LocalTime:
		return wireValue{K: "localtime", V: int64(vv)}
	case value.ZonedTime:
		return wireValue{K: "zonedtime", V: vv}
	case value.LocalDateTime:
		return wireValue{K: "localdatetime", V: vv}
	case value.ZonedDateTime:
		return wireValue{K: "zoneddatetime", V: vv}
	case value.Duration:
		return wireValue{K: "duration", V: vv}
	case value.Point:
		return wireValue{K: "point", V: vv}
	default:
		return wireValue{K: "null"}
	}
}

type wireMapEntry struct {
	Key   string    `json:"key"`
	Value wireValue `json:"value"`
}

func decodeValue(w wireValue) (value.Value, error) {
	raw, err := json.Marshal(w.V)
	if err != nil {
		return nil, err
	}
	switch w.K {
	case "null", "":
		return value.NullValue, nil
	case "bool":
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return value.Bool(b), nil
	case "int":
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return value.Int(n), nil
	case "float":
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
		return value.Float(f), nil
	case "str":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return value.Str(s), nil
	case "list":
		var items []wireValue
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		out := make(value.List, len(items))
		for i, it := range items {
			dv, err := decodeValue(it)
			if err != nil {
				return nil, err
			}
			out[i] = dv
		}
		return out, nil
	case "map":
		var entries []wireMapEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, err
		}
		m := value.NewMap()
		for _, e := range entries {
			dv, err := decodeValue(e.Value)
			if err != nil {
				return nil, err
			}
			m.Set(e.Key, dv)
		}
		return m, nil
	case "date":
		var d int64
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return value.Date{EpochDay: d}, nil
	case "localtime":
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return value.LocalTime(n), nil
	case "zonedtime":
		var z value.ZonedTime
		if err := json.Unmarshal(raw, &z); err != nil {
			return nil, err
		}
		return z, nil
	case "localdatetime":
		var l value.LocalDateTime
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, err
		}
		return l, nil
	case "zoneddatetime":
		var z value.ZonedDateTime
		if err := json.Unmarshal(raw, &z); err != nil {
			return nil, err
		}
		return z, nil
	case "duration":
		var d value.Duration
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case "point":
		var p value.Point
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("storage: unknown wire kind %q", w.K)
	}
}

type wireNode struct {
	Labels   []string       `json:"labels"`
	Props    []wireMapEntry `json:"props"`
}

type wireRel struct {
	Type    string         `json:"type"`
	StartID uint64         `json:"start"`
	EndID   uint64         `json:"end"`
	Props   []wireMapEntry `json:"props"`
}

func encodeMap(m value.Map) []wireMapEntry {
	entries := make([]wireMapEntry, 0, m.Len())
	for _, e := range m.Entries() {
		entries = append(entries, wireMapEntry{Key: e.Key, Value: encodeValue(e.Value)})
	}
	return entries
}

func decodeMap(entries []wireMapEntry) (value.Map, error) {
	m := value.NewMap()
	for _, e := range entries {
		v, err := decodeValue(e.Value)
		if err != nil {
			return value.Map{}, err
		}
		m.Set(e.Key, v)
	}
	return m, nil
}

func encodeNodeRecord(r NodeRecord) ([]byte, error) {
	w := wireNode{Labels: r.Labels, Props: encodeMap(r.Properties)}
	return json.Marshal(w)
}

func decodeNodeRecord(id value.NodeID, data []byte) (NodeRecord, error) {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return NodeRecord{}, err
	}
	props, err := decodeMap(w.Props)
	if err != nil {
		return NodeRecord{}, err
	}
	return NodeRecord{ID: id, Labels: w.Labels, Properties: props}, nil
}

func encodeRelRecord(r RelRecord) ([]byte, error) {
	w := wireRel{Type: r.Type, StartID: uint64(r.StartID), EndID: uint64(r.EndID), Props: encodeMap(r.Properties)}
	return json.Marshal(w)
}

func decodeRelRecord(id value.RelID, data []byte) (RelRecord, error) {
	var w wireRel
	if err := json.Unmarshal(data, &w); err != nil {
		return RelRecord{}, err
	}
	props, err := decodeMap(w.Props)
	if err != nil {
		return RelRecord{}, err
	}
	return RelRecord{ID: id, Type: w.Type, StartID: value.NodeID(w.StartID), EndID: value.NodeID(w.EndID), Properties: props}, nil
}
