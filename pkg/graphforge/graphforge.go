// Package graphforge is the top-level embedding API: execute(query_text,
// parameters) -> Result (§6), wiring parser -> planner -> executor over a
// storage.Engine, plus the thin Builder API (§6.2) and EXPLAIN mode.
//
// This mirrors the teacher's pkg/nornicdb.DB: a small façade type that
// owns a storage.Engine and exposes query execution as its one real job,
// everything else (Bolt server, embeddings, decay) stripped away since
// this corpus's Cypher engine, not NornicDB's memory-agent features, is
// what GraphForge generalizes.
package graphforge

import (
	"fmt"
	"strings"

	"github.com/orneryd/graphforge/pkg/config"
	"github.com/orneryd/graphforge/pkg/eval"
	"github.com/orneryd/graphforge/pkg/executor"
	"github.com/orneryd/graphforge/pkg/glog"
	"github.com/orneryd/graphforge/pkg/parser"
	"github.com/orneryd/graphforge/pkg/planner"
	"github.com/orneryd/graphforge/pkg/storage"
	"github.com/orneryd/graphforge/pkg/value"
)

// DB owns a storage.Engine and is the entry point for running Cypher
// queries against it.
type DB struct {
	engine storage.Engine
	log    *glog.Logger
}

// OpenEngine opens the storage.Engine cfg.Database.Backend selects
// ("memory" or "badger"), independent of a DB/Cypher layer — for callers
// that want to drive storage.Tx directly through the Builder API.
func OpenEngine(cfg *config.Config) (storage.Engine, error) {
	switch cfg.Database.Backend {
	case "badger":
		e, err := storage.OpenBadgerEngine(cfg.Database.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening badger engine: %w", err)
		}
		return e, nil
	default:
		return storage.NewMemoryEngine(), nil
	}
}

// Open opens a DB backed by cfg.Database.Backend ("memory" or "badger").
func Open(cfg *config.Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	eng, err := OpenEngine(cfg)
	if err != nil {
		return nil, err
	}
	w, err := glog.OpenOutput(cfg.Logging.Output)
	if err != nil {
		return nil, fmt.Errorf("opening log output: %w", err)
	}
	return &DB{engine: eng, log: glog.New(w, glog.ParseLevel(cfg.Logging.Level))}, nil
}

// Close releases the underlying storage engine.
func (db *DB) Close() error { return db.engine.Close() }

// Result is what a single query execution produces: the column names
// (the keys of the first row, in no defined order; nil when there are no
// rows), the row values, and write-clause stats.
type Result struct {
	Columns []string
	Rows    []map[string]value.Value
	Stats   executor.Stats
}

// Execute parses, plans, and runs query against a fresh writable
// transaction, opened for every query whether or not it writes; the
// transaction commits when the run succeeds and rolls back when it fails.
func (db *DB) Execute(queryText string, params executor.Params) (*Result, error) {
	db.log.Debugf("executing query: %s", queryText)
	q, err := parser.Parse(queryText)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	plan, err := planner.Build(q)
	if err != nil {
		return nil, fmt.Errorf("plan error: %w", err)
	}
	op, stats, err := executor.BuildWithStats(plan, params)
	if err != nil {
		return nil, fmt.Errorf("build error: %w", err)
	}

	tx, err := db.engine.Begin(true)
	if err != nil {
		return nil, err
	}
	rows, err := executor.Run(op, tx)
	if err != nil {
		tx.Rollback()
		db.log.Errorf("query failed: %v", err)
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &Result{Columns: columnsOf(rows), Rows: toMaps(rows), Stats: *stats}, nil
}

// ExecuteReadOnly is Execute over a read-only transaction, for callers
// that want the engine to reject any write clause outright rather than
// silently committing an empty set of mutations.
func (db *DB) ExecuteReadOnly(queryText string, params executor.Params) (*Result, error) {
	q, err := parser.Parse(queryText)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	plan, err := planner.Build(q)
	if err != nil {
		return nil, fmt.Errorf("plan error: %w", err)
	}
	op, stats, err := executor.BuildWithStats(plan, params)
	if err != nil {
		return nil, fmt.Errorf("build error: %w", err)
	}

	tx, err := db.engine.Begin(false)
	if err != nil {
		return nil, err
	}
	rows, err := executor.Run(op, tx)
	tx.Rollback()
	if err != nil {
		return nil, err
	}
	return &Result{Columns: columnsOf(rows), Rows: toMaps(rows), Stats: *stats}, nil
}

// isInternalRowKey reports whether k is bookkeeping an operator threads
// through eval.Row internally (e.g. the executor's used-relationship-id
// tracking for pattern uniqueness) rather than a bound Cypher identifier;
// such keys are NUL-prefixed, which no Cypher identifier can start with,
// and must never surface in a query's result set.
func isInternalRowKey(k string) bool {
	return strings.HasPrefix(k, "\x00")
}

func columnsOf(rows []eval.Row) []string {
	if len(rows) == 0 {
		return nil
	}
	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		if isInternalRowKey(k) {
			continue
		}
		cols = append(cols, k)
	}
	return cols
}

func toMaps(rows []eval.Row) []map[string]value.Value {
	out := make([]map[string]value.Value, len(rows))
	for i, r := range rows {
		m := make(map[string]value.Value, len(r))
		for k, v := range r {
			if isInternalRowKey(k) {
				continue
			}
			m[k] = v
		}
		out[i] = m
	}
	return out
}
