package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Yashasrn33/RPGAI/internal/model"
	"github.com/Yashasrn33/RPGAI/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS npc_memory (
            id           BIGSERIAL PRIMARY KEY,
            character_id TEXT    NOT NULL,
            player_id    TEXT    NOT NULL,
            text         TEXT    NOT NULL,
            salience     INTEGER NOT NULL CHECK (salience BETWEEN 0 AND 3),
            private      BOOLEAN NOT NULL DEFAULT TRUE,
            keys         TEXT,
            created_at   BIGINT  NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_mem_query
            ON npc_memory (character_id, player_id, salience DESC, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_mem_created
            ON npc_memory (created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("postgres schema: %w", err)
		}
	}
	return nil
}

// New opens a connection for dsn and returns a ready MemoryStore.
func New(dsn string) (store.MemoryStore, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &pgStore{db: db}, nil
}

// NewWithDB wraps an existing connection; the caller owns schema setup.
func NewWithDB(db *sql.DB) store.MemoryStore { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Write(ctx context.Context, rec *model.MemoryRecord) (int64, error) {
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

	var id int64
	row := s.db.QueryRowContext(ctx, `
        INSERT INTO npc_memory (character_id, player_id, text, salience, private, keys, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `, rec.CharacterID, rec.PlayerID, text, rec.Salience, rec.Private, keys, createdAt)
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	rec.ID = id
	rec.Text = text
	rec.CreatedAt = createdAt
	return id, nil
}

func (s *pgStore) TopK(ctx context.Context, characterID, playerID string, k, minSalience int) ([]*model.MemoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, character_id, player_id, text, salience, private, keys, created_at
        FROM npc_memory
        WHERE character_id = $1 AND player_id = $2 AND salience >= $3
        ORDER BY salience DESC, created_at DESC
        LIMIT $4
    `, characterID, playerID, minSalience, k)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

func (s *pgStore) AllFor(ctx context.Context, characterID string, playerID *string, limit int) ([]*model.MemoryRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if playerID != nil {
		rows, err = s.db.QueryContext(ctx, `
            SELECT id, character_id, player_id, text, salience, private, keys, created_at
            FROM npc_memory
            WHERE character_id = $1 AND player_id = $2
            ORDER BY created_at DESC
            LIMIT $3
        `, characterID, *playerID, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
            SELECT id, character_id, player_id, text, salience, private, keys, created_at
            FROM npc_memory
            WHERE character_id = $1
            ORDER BY created_at DESC
            LIMIT $2
        `, characterID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

func (s *pgStore) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM npc_memory WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *pgStore) Count(ctx context.Context, characterID *string) (int64, error) {
	var (
		n   int64
		err error
	)
	if characterID != nil {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM npc_memory WHERE character_id = $1`, *characterID).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM npc_memory`).Scan(&n)
	}
	return n, err
}

func (s *pgStore) Close() error { return s.db.Close() }

// HealthPing implements health.HealthPinger.
func (s *pgStore) HealthPing(ctx context.Context) error {
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
