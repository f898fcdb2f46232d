// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package runindex keeps an SQLite index of simulation runs and their reports.
package runindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/db47h/redsim"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // database/sql driver
)

// Index is a run index backed by an SQLite database.
//
type Index struct {
	db *sql.DB
}

// Run is an indexed run.
//
type Run struct {
	ID          int64
	Circuit     string // circuit name
	Components  int
	Outcome     redsim.Status
	Tick        uint64
	Period      uint64
	Diagnostics []redsim.Diagnostic
	Trace       string // trace file, if any
	RecordedAt  time.Time
}

// Open opens or creates the index at path. The special path ":memory:" opens a
// private in-memory index.
//
func Open(path string) (*Index, error) {
	if path == "" {
		return nil, errors.New("empty index path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open index")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			circuit TEXT NOT NULL,
			components INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			tick INTEGER NOT NULL,
			period INTEGER NOT NULL,
			diagnostics TEXT NOT NULL,
			trace TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS runs_circuit ON runs(circuit);`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "init index schema")
		}
	}
	return &Index{db: db}, nil
}

// Close closes the index.
//
func (x *Index) Close() error {
	return errors.WithStack(x.db.Close())
}

// Record adds a run to the index and returns its ID. If r.RecordedAt is zero,
// the current time is used.
//
func (x *Index) Record(ctx context.Context, r *Run) (int64, error) {
	diags, err := json.Marshal(r.Diagnostics)
	if err != nil {
		return 0, errors.Wrap(err, "encode diagnostics")
	}
	at := r.RecordedAt
	if at.IsZero() {
		at = time.Now()
	}
	res, err := x.db.ExecContext(ctx,
		`INSERT INTO runs(circuit, components, outcome, tick, period, diagnostics, trace, recorded_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Circuit, r.Components, r.Outcome.String(), int64(r.Tick), int64(r.Period),
		string(diags), r.Trace, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, errors.Wrap(err, "insert run")
	}
	id, err := res.LastInsertId()
	return id, errors.WithStack(err)
}

// List returns the runs of the named circuit, most recent first. An empty
// name lists every run.
//
func (x *Index) List(ctx context.Context, circuit string) ([]Run, error) {
	q := `SELECT id, circuit, components, outcome, tick, period, diagnostics, trace, recorded_at FROM runs`
	var args []interface{}
	if circuit != "" {
		q += ` WHERE circuit = ?`
		args = append(args, circuit)
	}
	q += ` ORDER BY id DESC`
	rows, err := x.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r              Run
			outcome, diags string
			at             string
			tick, period   int64
		)
		if err := rows.Scan(&r.ID, &r.Circuit, &r.Components, &outcome, &tick, &period, &diags, &r.Trace, &at); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		if err := r.Outcome.UnmarshalText([]byte(outcome)); err != nil {
			return nil, errors.Wrapf(err, "run %d", r.ID)
		}
		if err := json.Unmarshal([]byte(diags), &r.Diagnostics); err != nil {
			return nil, errors.Wrapf(err, "run %d: diagnostics", r.ID)
		}
		if r.RecordedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, errors.Wrapf(err, "run %d: recorded_at", r.ID)
		}
		r.Tick, r.Period = uint64(tick), uint64(period)
		runs = append(runs, r)
	}
	return runs, errors.WithStack(rows.Err())
}
