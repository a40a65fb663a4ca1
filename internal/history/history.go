// Package history records window summaries and worker stops in SQLite so
// they can be reviewed after the monitor exits.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doridoridoriand/fastping/internal/event"
	"github.com/doridoridoriand/fastping/internal/log"
)

// Record is one stored summary row.
type Record struct {
	At     time.Time
	Target string
	RunID  string
	Kind   event.Kind
	// Value is the loss percent or the average latency, depending on Kind.
	Value  float64
	Reason event.StopReason
}

// Display renders the record the same way the live event is shown.
func (r Record) Display() string {
	switch r.Kind {
	case event.KindPacketLoss:
		return event.PacketLoss(r.Target, int(r.Value)).Display()
	case event.KindAverageLatency:
		return event.AverageLatency(r.Target, r.Value).Display()
	case event.KindWorkerStopped:
		return event.WorkerStopped(r.Target, r.Reason).Display()
	default:
		return ""
	}
}

// DB wraps sql.DB with the summaries schema.
type DB struct {
	*sql.DB
	logger *log.Logger
}

// Open opens (creating if needed) the history database at path.
func Open(path string, logger *log.Logger) (*DB, error) {
	if logger == nil {
		logger = log.Nop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history open %s: %w", path, err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY under the recorder.
	db.SetMaxOpenConns(1)
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA synchronous=NORMAL")

	h := &DB{DB: db, logger: logger}
	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

func (db *DB) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS summaries (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        timestamp INTEGER NOT NULL,
        target TEXT NOT NULL,
        run_id TEXT NOT NULL,
        kind TEXT NOT NULL,
        value REAL,
        reason TEXT
    );

    CREATE INDEX IF NOT EXISTS idx_summaries_target_timestamp ON summaries(target, timestamp);
    CREATE INDEX IF NOT EXISTS idx_summaries_timestamp ON summaries(timestamp);
    `
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("history schema: %w", err)
	}
	return nil
}

// Save stores e if it is a summary or a stop. Per-reading latency events are
// not kept. It reports whether a row was written.
func (db *DB) Save(e event.Event) (bool, error) {
	var (
		value  sql.NullFloat64
		reason sql.NullString
	)
	switch e.Kind {
	case event.KindPacketLoss:
		value = sql.NullFloat64{Float64: float64(e.LossPercent), Valid: true}
	case event.KindAverageLatency:
		value = sql.NullFloat64{Float64: e.AverageLatency, Valid: true}
	case event.KindWorkerStopped:
		reason = sql.NullString{String: string(e.Reason), Valid: true}
	default:
		return false, nil
	}

	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	query := `
        INSERT INTO summaries (timestamp, target, run_id, kind, value, reason)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	_, err := db.Exec(query, at.UnixNano(), e.Target, e.RunID.String(), e.Kind.String(), value, reason)
	if err != nil {
		return false, fmt.Errorf("history save %s: %w", e.Target, err)
	}
	return true, nil
}

// Query returns records newer than since, oldest first. An empty target
// selects every target.
func (db *DB) Query(target string, since time.Time) ([]Record, error) {
	query := `
        SELECT timestamp, target, run_id, kind, value, reason
        FROM summaries
        WHERE timestamp >= ? AND (? = '' OR target = ?)
        ORDER BY timestamp ASC, id ASC
    `
	var from int64
	if !since.IsZero() {
		from = since.UnixNano()
	}
	rows, err := db.DB.Query(query, from, target, target)
	if err != nil {
		return nil, fmt.Errorf("history query: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r      Record
			nanos  int64
			kind   string
			value  sql.NullFloat64
			reason sql.NullString
		)
		if err := rows.Scan(&nanos, &r.Target, &r.RunID, &kind, &value, &reason); err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		r.At = time.Unix(0, nanos)
		r.Kind = parseKind(kind)
		if value.Valid {
			r.Value = value.Float64
		}
		if reason.Valid {
			r.Reason = event.StopReason(reason.String)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Prune deletes records older than before and returns how many were removed.
func (db *DB) Prune(before time.Time) (int64, error) {
	res, err := db.Exec(`DELETE FROM summaries WHERE timestamp < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("history prune: %w", err)
	}
	return res.RowsAffected()
}

// Run stores events from sub until it closes or ctx ends. Save failures are
// logged and do not stop the recorder.
func (db *DB) Run(ctx context.Context, sub *event.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.Events():
			if !ok {
				return
			}
			if _, err := db.Save(e); err != nil {
				db.logger.LogError("history", err, map[string]interface{}{"target": e.Target})
			}
		}
	}
}

func parseKind(s string) event.Kind {
	for _, k := range []event.Kind{event.KindLatency, event.KindPacketLoss, event.KindAverageLatency, event.KindWorkerStopped} {
		if k.String() == s {
			return k
		}
	}
	return event.Kind(-1)
}
