package executor

import (
	"github.com/orneryd/graphforge/pkg/ast"
	"github.com/orneryd/graphforge/pkg/eval"
	"github.com/orneryd/graphforge/pkg/planner"
	"github.com/orneryd/graphforge/pkg/storage"
	"github.com/orneryd/graphforge/pkg/value"
)

// createLabels flattens the `:A:B:C` chain grammar CREATE/MERGE patterns
// use (nested LabelAnd of LabelName); any other shape is a parser defect,
// not something this operator needs to defend against.
func createLabels(le *ast.LabelExpr) []string {
	if le == nil {
		return nil
	}
	switch le.Kind {
	case ast.LabelName:
		return []string{le.Name}
	case ast.LabelAnd:
		return append(createLabels(le.Left), createLabels(le.Right)...)
	default:
		return nil
	}
}

func nodeProps(ctx *eval.Context, np ast.NodePattern, row eval.Row) (value.Map, error) {
	if np.ParamMap != nil {
		v, err := eval.Eval(ctx, np.ParamMap, row)
		if err != nil {
			return value.Map{}, err
		}
		if m, ok := v.(value.Map); ok {
			return m, nil
		}
		return value.Map{}, nil
	}
	if np.Props == nil {
		return value.Map{}, nil
	}
	v, err := eval.Eval(ctx, np.Props, row)
	if err != nil {
		return value.Map{}, err
	}
	return v.(value.Map), nil
}

func relProps(ctx *eval.Context, rp ast.RelPattern, row eval.Row) (value.Map, error) {
	if rp.Props == nil {
		return value.Map{}, nil
	}
	v, err := eval.Eval(ctx, rp.Props, row)
	if err != nil {
		return value.Map{}, err
	}
	return v.(value.Map), nil
}

// createPathPart materializes one comma-separated pattern element of a
// CREATE clause into row, reusing an already-bound node/rel variable
// rather than creating a duplicate (§4.6: a CREATE pattern naming a
// variable bound earlier in the same clause chain extends the existing
// element instead of re-creating it).
func createPathPart(ctx *eval.Context, tx storage.Tx, part ast.PathPart, row eval.Row, stats *Stats) error {
	startID, err := ensureNode(ctx, tx, part.Start, row, stats)
	if err != nil {
		return err
	}
	from := startID
	for _, step := range part.Steps {
		toID, err := ensureNode(ctx, tx, step.Node, row, stats)
		if err != nil {
			return err
		}
		relType := ""
		if step.Rel.Types != nil {
			names := createLabels(step.Rel.Types)
			if len(names) > 0 {
				relType = names[0]
			}
		}
		props, err := relProps(ctx, step.Rel, row)
		if err != nil {
			return err
		}
		startNode, endNode := from, toID
		if step.Rel.Direction == ast.DirLeft {
			startNode, endNode = toID, from
		}
		relID, err := tx.CreateRel(relType, startNode, endNode, props)
		if err != nil {
			return err
		}
		stats.RelsCreated++
		if step.Rel.Name != "" {
			rec, err := tx.GetRel(relID)
			if err != nil {
				return err
			}
			row[step.Rel.Name] = rec.ToRelValue()
		}
		from = toID
	}
	return nil
}

// ensureNode reuses np.Name's existing binding if already present in row
// (a node carried over from an earlier MATCH/CREATE in the same clause
// chain), otherwise creates a fresh node.
func ensureNode(ctx *eval.Context, tx storage.Tx, np ast.NodePattern, row eval.Row, stats *Stats) (value.NodeID, error) {
	if np.Name != "" {
		if v, ok := row[np.Name]; ok {
			if n, ok := v.(value.Node); ok {
				return n.ID, nil
			}
		}
	}
	labels := createLabels(np.Labels)
	props, err := nodeProps(ctx, np, row)
	if err != nil {
		return 0, err
	}
	id, err := tx.CreateNode(labels, props)
	if err != nil {
		return 0, err
	}
	stats.NodesCreated++
	if np.Name != "" {
		rec, err := tx.GetNode(id)
		if err != nil {
			return 0, err
		}
		row[np.Name] = rec.ToNodeValue()
	}
	return id, nil
}

// createOp executes CREATE: every input row produces exactly one output
// row, extended with every node/relationship binding the pattern names.
type createOp struct {
	plan  *planner.Create
	input Operator
	b     *opBuilder
	tx    storage.Tx
}

func (o *createOp) Open(tx storage.Tx) error {
	o.tx = tx
	return o.input.Open(tx)
}

func (o *createOp) Next() (eval.Row, bool, error) {
	row, ok, err := o.input.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	out := cloneRow(row)
	ctx := o.b.evalCtx(o.tx)
	for _, part := range o.plan.Pattern {
		if err := createPathPart(ctx, o.tx, part, out, o.b.stats); err != nil {
			return nil, false, err
		}
	}
	return out, true, nil
}

func (o *createOp) Close() error { return o.input.Close() }

func (o *createOp) seed(row eval.Row) {
	if s, ok := o.input.(seedable); ok {
		s.seed(row)
	}
}

// mergeOp executes MERGE: match the pattern's single path part against
// the current bindings; if nothing matches, create it. ON CREATE/ON
// MATCH SET items apply accordingly (§4.6).
type mergeOp struct {
	plan  *planner.Merge
	input Operator
	b     *opBuilder
	tx    storage.Tx
}

func (o *mergeOp) Open(tx storage.Tx) error {
	o.tx = tx
	return o.input.Open(tx)
}

func (o *mergeOp) Next() (eval.Row, bool, error) {
	row, ok, err := o.input.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	out := cloneRow(row)
	ctx := o.b.evalCtx(o.tx)

	matched, err := tryMatchMergePattern(ctx, o.tx, o.plan.Pattern, out)
	if err != nil {
		return nil, false, err
	}
	if matched {
		if err := applySetItems(ctx, o.tx, o.plan.OnMatch, out, o.b.stats); err != nil {
			return nil, false, err
		}
		return out, true, nil
	}
	if err := createPathPart(ctx, o.tx, o.plan.Pattern, out, o.b.stats); err != nil {
		return nil, false, err
	}
	if err := applySetItems(ctx, o.tx, o.plan.OnCreate, out, o.b.stats); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// tryMatchMergePattern attempts a single-solution match of part against
// the graph, binding its variables into row on success. MERGE only ever
// needs existence, not the full relational fan-out a MATCH produces, so
// this walks the pattern directly against storage rather than compiling
// a Scan/Expand subplan.
func tryMatchMergePattern(ctx *eval.Context, tx storage.Tx, part ast.PathPart, row eval.Row) (bool, error) {
	startID, ok, err := matchOrFindNode(ctx, tx, part.Start, row)
	if err != nil || !ok {
		return false, err
	}
	from := startID
	for _, step := range part.Steps {
		var types []string
		if step.Rel.Types != nil {
			types = createLabels(step.Rel.Types)
		}
		it, err := fetchNeighbours(tx, from, step.Rel.Direction, types)
		if err != nil {
			return false, err
		}
		found := false
		for it.Next() {
			n := it.Neighbour()
			node, err := tx.GetNode(n.NodeID)
			if err != nil {
				it.Close()
				return false, err
			}
			ok, err := nodeMatchesPattern(ctx, node, step.Node, row)
			if err != nil {
				it.Close()
				return false, err
			}
			if !ok {
				continue
			}
			rel, err := tx.GetRel(n.RelID)
			if err != nil {
				it.Close()
				return false, err
			}
			if step.Rel.Name != "" {
				row[step.Rel.Name] = rel.ToRelValue()
			}
			if step.Node.Name != "" {
				row[step.Node.Name] = node.ToNodeValue()
			}
			from = n.NodeID
			found = true
			break
		}
		if err := it.Err(); err != nil {
			it.Close()
			return false, err
		}
		it.Close()
		if !found {
			return false, nil
		}
	}
	return true, nil
}

func matchOrFindNode(ctx *eval.Context, tx storage.Tx, np ast.NodePattern, row eval.Row) (value.NodeID, bool, error) {
	if np.Name != "" {
		if v, ok := row[np.Name]; ok {
			if n, ok := v.(value.Node); ok {
				return n.ID, true, nil
			}
		}
	}
	labels := createLabels(np.Labels)
	var it storage.NodeIterator
	var err error
	if len(labels) > 0 {
		it, err = tx.ScanNodesByLabel(labels[0])
	} else {
		it, err = tx.ScanAllNodes()
	}
	if err != nil {
		return 0, false, err
	}
	defer it.Close()
	for it.Next() {
		n := it.Node()
		nv := n.ToNodeValue()
		ok, err := nodeMatchesPattern(ctx, nv, np, row)
		if err != nil {
			return 0, false, err
		}
		if ok {
			if np.Name != "" {
				row[np.Name] = nv
			}
			return n.ID, true, nil
		}
	}
	return 0, false, it.Err()
}

// nodeMatchesPattern checks labels, inline property-map equality, and an
// inline WHERE predicate, mirroring the planner's nodePatternPredicate
// folding logic but evaluated directly against storage for MERGE's
// existence check.
func nodeMatchesPattern(ctx *eval.Context, n value.Node, np ast.NodePattern, row eval.Row) (bool, error) {
	for _, l := range createLabels(np.Labels) {
		if !n.HasLabel(l) {
			return false, nil
		}
	}
	if np.Props != nil {
		for _, e := range np.Props.Entries {
			want, err := eval.Eval(ctx, e.Value, row)
			if err != nil {
				return false, err
			}
			got := n.Properties.GetOrNull(e.Key)
			if !value.IsTruthy(value.Equal(got, want)) {
				return false, nil
			}
		}
	}
	if np.Where != nil {
		scoped := cloneRow(row)
		if np.Name != "" {
			scoped[np.Name] = n
		}
		v, err := eval.Eval(ctx, np.Where, scoped)
		if err != nil {
			return false, err
		}
		if !value.IsTruthy(v) {
			return false, nil
		}
	}
	return true, nil
}

func (o *mergeOp) Close() error { return o.input.Close() }

func (o *mergeOp) seed(row eval.Row) {
	if s, ok := o.input.(seedable); ok {
		s.seed(row)
	}
}

func applySetItems(ctx *eval.Context, tx storage.Tx, items []ast.SetItem, row eval.Row, stats *Stats) error {
	for _, item := range items {
		if err := applySetItem(ctx, tx, item, row, stats); err != nil {
			return err
		}
	}
	return nil
}

func applySetItem(ctx *eval.Context, tx storage.Tx, item ast.SetItem, row eval.Row, stats *Stats) error {
	if len(item.Labels) > 0 {
		v, ok := item.Target.(*ast.Variable)
		if !ok {
			return typeErrExec("SET expects a variable target for label assignment")
		}
		n, err := nodeFromRow(row, v.Name)
		if err != nil {
			return err
		}
		for _, l := range item.Labels {
			if err := tx.AddLabel(n.ID, l); err != nil {
				return err
			}
			stats.LabelsAdded++
		}
		return nil
	}

	val, err := eval.Eval(ctx, item.Value, row)
	if err != nil {
		return err
	}

	switch target := item.Target.(type) {
	case *ast.PropertyAccess:
		base, err := eval.Eval(ctx, target.Target, row)
		if err != nil {
			return err
		}
		return setProperty(tx, base, target.Name, val, stats)
	case *ast.Variable:
		n, ok := row[target.Name].(value.Node)
		if ok {
			return setNodeFromMap(tx, n, val, item.Additive, stats)
		}
		r, ok := row[target.Name].(value.Rel)
		if ok {
			return setRelFromMap(tx, r, val, item.Additive, stats)
		}
		return typeErrExec("SET target %q is not a graph element", target.Name)
	default:
		return typeErrExec("unsupported SET target")
	}
}

func nodeFromRow(row eval.Row, name string) (value.Node, error) {
	n, ok := row[name].(value.Node)
	if !ok {
		return value.Node{}, typeErrExec("%q is not a node", name)
	}
	return n, nil
}

func setProperty(tx storage.Tx, base value.Value, key string, val value.Value, stats *Stats) error {
	switch e := base.(type) {
	case value.Node:
		if value.IsNull(val) {
			stats.PropertiesSet++
			return tx.RemoveNodeProperty(e.ID, key)
		}
		stats.PropertiesSet++
		return tx.SetNodeProperty(e.ID, key, val)
	case value.Rel:
		if value.IsNull(val) {
			stats.PropertiesSet++
			return tx.RemoveRelProperty(e.ID, key)
		}
		stats.PropertiesSet++
		return tx.SetRelProperty(e.ID, key, val)
	default:
		return typeErrExec("SET target is not a graph element")
	}
}

func setNodeFromMap(tx storage.Tx, n value.Node, val value.Value, additive bool, stats *Stats) error {
	m, ok := val.(value.Map)
	if !ok {
		return typeErrExec("n = expr requires expr to be a map")
	}
	if !additive {
		for _, k := range n.Properties.Keys() {
			if _, stillSet := m.Get(k); !stillSet {
				if err := tx.RemoveNodeProperty(n.ID, k); err != nil {
					return err
				}
				stats.PropertiesSet++
			}
		}
	}
	for _, e := range m.Entries() {
		if err := tx.SetNodeProperty(n.ID, e.Key, e.Value); err != nil {
			return err
		}
		stats.PropertiesSet++
	}
	return nil
}

func setRelFromMap(tx storage.Tx, r value.Rel, val value.Value, additive bool, stats *Stats) error {
	m, ok := val.(value.Map)
	if !ok {
		return typeErrExec("r = expr requires expr to be a map")
	}
	if !additive {
		for _, k := range r.Properties.Keys() {
			if _, stillSet := m.Get(k); !stillSet {
				if err := tx.RemoveRelProperty(r.ID, k); err != nil {
					return err
				}
				stats.PropertiesSet++
			}
		}
	}
	for _, e := range m.Entries() {
		if err := tx.SetRelProperty(r.ID, e.Key, e.Value); err != nil {
			return err
		}
		stats.PropertiesSet++
	}
	return nil
}

func typeErrExec(format string, args ...interface{}) error {
	return rtErr("TypeError", format, args...)
}

// setOp executes SET.
type setOp struct {
	plan  *planner.Set
	input Operator
	b     *opBuilder
	tx    storage.Tx
}

func (o *setOp) Open(tx storage.Tx) error {
	o.tx = tx
	return o.input.Open(tx)
}

func (o *setOp) Next() (eval.Row, bool, error) {
	row, ok, err := o.input.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	if err := applySetItems(o.b.evalCtx(o.tx), o.tx, o.plan.Items, row, o.b.stats); err != nil {
		return nil, false, err
	}
	return row, true, nil
}

func (o *setOp) Close() error { return o.input.Close() }

func (o *setOp) seed(row eval.Row) {
	if s, ok := o.input.(seedable); ok {
		s.seed(row)
	}
}

// removeOp executes REMOVE: property removal or label removal, never an
// error on a missing property/label (§4.6).
type removeOp struct {
	plan  *planner.Remove
	input Operator
	b     *opBuilder
	tx    storage.Tx
}

func (o *removeOp) Open(tx storage.Tx) error {
	o.tx = tx
	return o.input.Open(tx)
}

func (o *removeOp) Next() (eval.Row, bool, error) {
	row, ok, err := o.input.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	ctx := o.b.evalCtx(o.tx)
	for _, item := range o.plan.Items {
		if item.Property != nil {
			base, err := eval.Eval(ctx, item.Property.Target, row)
			if err != nil {
				return nil, false, err
			}
			if err := setProperty(o.tx, base, item.Property.Name, value.NullValue, o.b.stats); err != nil {
				return nil, false, err
			}
			continue
		}
		n, err := nodeFromRow(row, item.Variable)
		if err != nil {
			return nil, false, err
		}
		for _, l := range item.Labels {
			if err := o.tx.RemoveLabel(n.ID, l); err != nil {
				return nil, false, err
			}
			o.b.stats.LabelsRemoved++
		}
	}
	return row, true, nil
}

func (o *removeOp) Close() error { return o.input.Close() }

func (o *removeOp) seed(row eval.Row) {
	if s, ok := o.input.(seedable); ok {
		s.seed(row)
	}
}

// deleteOp executes DELETE/DETACH DELETE, translating storage's
// ErrHasRelationships into a ConstraintViolation RuntimeError when a
// bare DELETE targets a node with live incident relationships (§7).
type deleteOp struct {
	plan  *planner.Delete
	input Operator
	b     *opBuilder
	tx    storage.Tx
}

func (o *deleteOp) Open(tx storage.Tx) error {
	o.tx = tx
	return o.input.Open(tx)
}

func (o *deleteOp) Next() (eval.Row, bool, error) {
	row, ok, err := o.input.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	ctx := o.b.evalCtx(o.tx)
	for _, expr := range o.plan.Exprs {
		v, err := eval.Eval(ctx, expr, row)
		if err != nil {
			return nil, false, err
		}
		switch e := v.(type) {
		case value.Node:
			if err := o.tx.DeleteNode(e.ID, o.plan.Detach); err != nil {
				if err == storage.ErrHasRelationships {
					return nil, false, rtErr("ConstraintViolation", "cannot delete node %d with incident relationships without DETACH", e.ID)
				}
				return nil, false, err
			}
			o.b.stats.NodesDeleted++
		case value.Rel:
			if err := o.tx.DeleteRel(e.ID); err != nil {
				return nil, false, err
			}
			o.b.stats.RelsDeleted++
		case value.Null:
			// deleting Null is a no-op (§4.6)
		default:
			return nil, false, typeErrExec("DELETE target is not a node or relationship")
		}
	}
	return row, true, nil
}

func (o *deleteOp) Close() error { return o.input.Close() }

func (o *deleteOp) seed(row eval.Row) {
	if s, ok := o.input.(seedable); ok {
		s.seed(row)
	}
}
