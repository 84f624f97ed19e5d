// Package history persists window records and session summaries in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"firestige.xyz/ifmon/internal/sink"
)

// Name is the sink name.
const Name = "history"

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    interface   TEXT NOT NULL,
    bpf_filter  TEXT,
    engine      TEXT,
    started_at  INTEGER NOT NULL,
    ended_at    INTEGER,
    elapsed_ms  INTEGER,
    packets     INTEGER,
    bytes       INTEGER,
    avg_pps     REAL,
    avg_bps     REAL,
    error       TEXT
);
CREATE TABLE IF NOT EXISTS windows (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  INTEGER NOT NULL REFERENCES sessions(id),
    at          INTEGER NOT NULL,
    elapsed_ms  INTEGER NOT NULL,
    packets     INTEGER NOT NULL,
    bytes       INTEGER NOT NULL,
    pps         REAL NOT NULL,
    bps         REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_windows_session ON windows(session_id);
`

// SessionRow is one stored session.
type SessionRow struct {
	ID        int64
	Interface string
	Filter    string
	Engine    string
	StartedAt time.Time
	EndedAt   *time.Time
	Elapsed   time.Duration
	Packets   uint64
	Bytes     uint64
	AvgPPS    sql.NullFloat64
	AvgBPS    sql.NullFloat64
	Error     string
	Windows   int
}

// Sink writes to a SQLite database.
type Sink struct {
	path      string
	db        *sql.DB
	sessionID int64
}

// NewSink creates a sink for the database at path. The file is created on
// Open.
func NewSink(path string) *Sink {
	return &Sink{path: path}
}

func openDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// sqlite3 serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return db, nil
}

// Name implements sink.Sink.
func (s *Sink) Name() string {
	return Name
}

// Open implements sink.Sink by inserting the session row.
func (s *Sink) Open(ctx context.Context, sess sink.Session) error {
	db, err := openDB(s.path)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO sessions (interface, bpf_filter, engine, started_at) VALUES (?, ?, ?, ?)`,
		sess.Interface, sess.Filter, sess.Engine, sess.Started.UnixMilli())
	if err != nil {
		db.Close()
		return fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		db.Close()
		return fmt.Errorf("session id: %w", err)
	}
	s.db = db
	s.sessionID = id
	return nil
}

// Emit implements sink.Sink.
func (s *Sink) Emit(ctx context.Context, rec sink.Record) error {
	w := rec.Window
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO windows (session_id, at, elapsed_ms, packets, bytes, pps, bps) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.sessionID, w.At.UnixMilli(), w.Elapsed.Milliseconds(), int64(w.Packets), int64(w.Bytes),
		w.PacketsPerSecond, w.BytesPerSecond)
	if err != nil {
		return fmt.Errorf("insert window: %w", err)
	}
	return nil
}

// Close implements sink.Sink by completing the session row.
func (s *Sink) Close(ctx context.Context, fin sink.Final) error {
	if s.db == nil {
		return nil
	}
	defer func() {
		s.db.Close()
		s.db = nil
	}()

	sum := fin.Summary
	var errText sql.NullString
	if fin.Err != nil {
		errText = sql.NullString{String: fin.Err.Error(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?, elapsed_ms = ?, packets = ?, bytes = ?, avg_pps = ?, avg_bps = ?, error = ? WHERE id = ?`,
		time.Now().UnixMilli(), sum.Elapsed.Milliseconds(), int64(sum.Packets), int64(sum.Bytes),
		nullable(sum.AvgPackets), nullable(sum.AvgBytes), errText, s.sessionID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// SessionID returns the row id of the current session.
func (s *Sink) SessionID() int64 {
	return s.sessionID
}

// ListSessions returns the most recent sessions first.
func ListSessions(ctx context.Context, path string, limit int) ([]SessionRow, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("history database %s: %w", path, err)
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
        SELECT s.id, s.interface, COALESCE(s.bpf_filter, ''), COALESCE(s.engine, ''), s.started_at, s.ended_at,
               COALESCE(s.elapsed_ms, 0), COALESCE(s.packets, 0), COALESCE(s.bytes, 0),
               s.avg_pps, s.avg_bps, COALESCE(s.error, ''),
               (SELECT COUNT(*) FROM windows w WHERE w.session_id = s.id)
        FROM sessions s
        ORDER BY s.id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var (
			r         SessionRow
			started   int64
			ended     sql.NullInt64
			elapsedMs int64
			packets   int64
			bytes     int64
		)
		if err := rows.Scan(&r.ID, &r.Interface, &r.Filter, &r.Engine, &started, &ended,
			&elapsedMs, &packets, &bytes, &r.AvgPPS, &r.AvgBPS, &r.Error, &r.Windows); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		if ended.Valid {
			t := time.UnixMilli(ended.Int64)
			r.EndedAt = &t
		}
		r.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		r.Packets = uint64(packets)
		r.Bytes = uint64(bytes)
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
