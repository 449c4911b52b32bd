package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Yashasrn33/RPGAI/internal/model"
	"github.com/Yashasrn33/RPGAI/internal/store"
)

// Open opens (or creates) a SQLite database at the given path and enables
// WAL journal mode. The busy timeout keeps concurrent session writers from
// failing fast on SQLITE_BUSY.
func Open(path string) (*sql.DB, error) {
	// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Simple ping to verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ensureSchema creates the memory table and its indexes if they do not
// exist. Opening an existing database is a no-op.
func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS npc_memory (
            id           INTEGER PRIMARY KEY AUTOINCREMENT,
            character_id TEXT    NOT NULL,
            player_id    TEXT    NOT NULL,
            text         TEXT    NOT NULL,
            salience     INTEGER NOT NULL CHECK (salience BETWEEN 0 AND 3),
            private      INTEGER NOT NULL DEFAULT 1,
            keys         TEXT,
            created_at   INTEGER NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_mem_query
            ON npc_memory (character_id, player_id, salience DESC, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_mem_created
            ON npc_memory (created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlite schema: %w", err)
		}
	}
	return nil
}

// New opens the database at path and returns a ready MemoryStore.
func New(path string) (store.MemoryStore, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

// NewWithDB wraps an existing connection; the caller owns schema setup.
func NewWithDB(db *sql.DB) store.MemoryStore { return &sqliteStore{db: db} }

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Write(ctx context.Context, rec *model.MemoryRecord) (int64, error) {
	if !model.ValidSalience(rec.Salience) {
		return 0, model.ErrInvalidSalience
	}
	text := model.TruncateMemoryText(rec.Text)
	createdAt := rec.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().Unix()
	}
	keys, err := marshalKeys(rec.Keys)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
        INSERT INTO npc_memory (character_id, player_id, text, salience, private, keys, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `, rec.CharacterID, rec.PlayerID, text, rec.Salience, rec.Private, keys, createdAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	rec.ID = id
	rec.Text = text
	rec.CreatedAt = createdAt
	return id, nil
}

func (s *sqliteStore) TopK(ctx context.Context, characterID, playerID string, k, minSalience int) ([]*model.MemoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, character_id, player_id, text, salience, private, keys, created_at
        FROM npc_memory
        WHERE character_id = ? AND player_id = ? AND salience >= ?
        ORDER BY salience DESC, created_at DESC
        LIMIT ?
    `, characterID, playerID, minSalience, k)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

func (s *sqliteStore) AllFor(ctx context.Context, characterID string, playerID *string, limit int) ([]*model.MemoryRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if playerID != nil {
		rows, err = s.db.QueryContext(ctx, `
            SELECT id, character_id, player_id, text, salience, private, keys, created_at
            FROM npc_memory
            WHERE character_id = ? AND player_id = ?
            ORDER BY created_at DESC
            LIMIT ?
        `, characterID, *playerID, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
            SELECT id, character_id, player_id, text, salience, private, keys, created_at
            FROM npc_memory
            WHERE character_id = ?
            ORDER BY created_at DESC
            LIMIT ?
        `, characterID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

func (s *sqliteStore) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM npc_memory WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sqliteStore) Count(ctx context.Context, characterID *string) (int64, error) {
	var (
		n   int64
		err error
	)
	if characterID != nil {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM npc_memory WHERE character_id = ?`, *characterID).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM npc_memory`).Scan(&n)
	}
	return n, err
}

func (s *sqliteStore) Close() error { return s.db.Close() }

// HealthPing implements health.HealthPinger.
func (s *sqliteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func marshalKeys(keys []string) (sql.NullString, error) {
	if len(keys) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(keys)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func scanRecords(rows *sql.Rows) ([]*model.MemoryRecord, error) {
	out := []*model.MemoryRecord{}
	for rows.Next() {
		var (
			rec  model.MemoryRecord
			keys sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.CharacterID, &rec.PlayerID, &rec.Text, &rec.Salience, &rec.Private, &keys, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if keys.Valid {
			if err := json.Unmarshal([]byte(keys.String), &rec.Keys); err != nil {
				return nil, fmt.Errorf("decode keys for record %d: %w", rec.ID, err)
			}
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
