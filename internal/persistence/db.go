// Package persistence saves and restores simulations: a lenient snapshot
// codec, zstd snapshot files and a SQLite store for snapshots and stats history.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/tribe-world/internal/engine"
)

// ErrNoSnapshot is returned when the store holds no snapshot.
var ErrNoSnapshot = errors.New("no snapshot stored")

// DB wraps a SQLite connection for simulation persistence.
type DB struct {
	conn *sqlx.DB
}

// SnapshotInfo describes a stored snapshot without its payload.
type SnapshotInfo struct {
	ID      string    `db:"id" json:"id"`
	Tick    uint64    `db:"tick" json:"tick"`
	Seed    string    `db:"seed" json:"seed"`
	SavedAt time.Time `db:"-" json:"savedAt"`
	Size    int       `db:"size" json:"size"`

	SavedAtUnix int64 `db:"saved_at" json:"-"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		tick INTEGER NOT NULL,
		seed TEXT NOT NULL,
		saved_at INTEGER NOT NULL,
		size INTEGER NOT NULL,
		payload BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stats_history (
		tick INTEGER PRIMARY KEY,
		population INTEGER NOT NULL,
		tribes INTEGER NOT NULL,
		stats_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_saved ON snapshots(saved_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveSnapshot stores a compressed snapshot and returns its id.
func (db *DB) SaveSnapshot(s Snapshot) (string, error) {
	data, err := Marshal(s)
	if err != nil {
		return "", err
	}
	payload, err := compress(data)
	if err != nil {
		return "", fmt.Errorf("compress snapshot: %w", err)
	}
	if s.SavedAt.IsZero() {
		s.SavedAt = time.Now().UTC()
	}
	id := uuid.NewString()

	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO snapshots (id, tick, seed, saved_at, size, payload) VALUES (?, ?, ?, ?, ?, ?)",
		id, int64(s.Tick), s.Seed, s.SavedAt.UnixNano(), len(data), payload,
	); err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES ('last_tick', ?)",
		strconv.FormatUint(s.Tick, 10),
	); err != nil {
		return "", fmt.Errorf("save meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}

	slog.Info("snapshot saved",
		"id", id,
		"tick", s.Tick,
		"size", humanize.Bytes(uint64(len(data))),
		"stored", humanize.Bytes(uint64(len(payload))),
	)
	return id, nil
}

// LatestSnapshot loads the most recently saved snapshot.
func (db *DB) LatestSnapshot() (Snapshot, error) {
	var payload []byte
	err := db.conn.Get(&payload, "SELECT payload FROM snapshots ORDER BY saved_at DESC, tick DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return decodePayload(payload)
}

// LoadSnapshot loads a snapshot by id.
func (db *DB) LoadSnapshot(id string) (Snapshot, error) {
	var payload []byte
	err := db.conn.Get(&payload, "SELECT payload FROM snapshots WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	return decodePayload(payload)
}

func decodePayload(payload []byte) (Snapshot, error) {
	data, err := decompress(payload)
	if err != nil {
		return Snapshot{}, err
	}
	return Unmarshal(data)
}

// Snapshots lists stored snapshots, newest first.
func (db *DB) Snapshots(limit int) ([]SnapshotInfo, error) {
	var out []SnapshotInfo
	err := db.conn.Select(&out,
		"SELECT id, tick, seed, saved_at, size FROM snapshots ORDER BY saved_at DESC LIMIT ?",
		limit,
	)
	for i := range out {
		out[i].SavedAt = time.Unix(0, out[i].SavedAtUnix).UTC()
	}
	return out, err
}

// PruneSnapshots deletes all but the newest keep snapshots.
func (db *DB) PruneSnapshots(keep int) (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM snapshots WHERE id NOT IN
		(SELECT id FROM snapshots ORDER BY saved_at DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SaveStats appends per-tick statistics. A tick already stored is replaced.
func (db *DB) SaveStats(list []engine.Stats) error {
	if len(list) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO stats_history
		(tick, population, tribes, stats_json) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range list {
		js, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal stats %d: %w", s.Tick, err)
		}
		if _, err := stmt.Exec(int64(s.Tick), s.Population, s.Tribes, string(js)); err != nil {
			return fmt.Errorf("insert stats %d: %w", s.Tick, err)
		}
	}

	return tx.Commit()
}

// StatsHistory returns up to limit stored statistics, oldest first.
func (db *DB) StatsHistory(limit int) ([]engine.Stats, error) {
	var rows []string
	err := db.conn.Select(&rows,
		"SELECT stats_json FROM (SELECT tick, stats_json FROM stats_history ORDER BY tick DESC LIMIT ?) ORDER BY tick ASC",
		limit,
	)
	if err != nil {
		return nil, err
	}
	out := make([]engine.Stats, 0, len(rows))
	for _, js := range rows {
		var s engine.Stats
		if err := json.Unmarshal([]byte(js), &s); err != nil {
			return nil, fmt.Errorf("decode stats: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// LastSavedTick returns the tick of the newest stored snapshot, or 0.
func (db *DB) LastSavedTick() uint64 {
	v, err := db.GetMeta("last_tick")
	if err != nil {
		return 0
	}
	tick, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0
	}
	return tick
}

// SaveSimulation stores a snapshot of sim and the statistics recorded since
// the previous save.
func (db *DB) SaveSimulation(sim *engine.Simulation) (string, error) {
	view := sim.Snapshot()
	since := db.LastSavedTick()
	slog.Info("saving simulation", "tick", view.Tick, "agents", len(view.Agents), "tribes", len(view.State.Tribes))

	var fresh []engine.Stats
	for _, s := range sim.History() {
		if s.Tick > since {
			fresh = append(fresh, s)
		}
	}
	if err := db.SaveStats(fresh); err != nil {
		return "", fmt.Errorf("save stats: %w", err)
	}
	id, err := db.SaveSnapshot(FromView(view, time.Now()))
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	return id, nil
}
