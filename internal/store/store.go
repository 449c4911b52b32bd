package store

import (
	"context"
	"time"

	"github.com/Yashasrn33/RPGAI/internal/model"
)

// MemoryStore exposes the persistence operations the dialogue pipeline and
// the memory endpoints require. Implementations live under
// internal/store/<driver>/ (sqlite, postgres).
//
// Writes are atomic per record: a concurrent reader never observes a
// partially written row, and the ranking order (salience, recency) is
// consistent as soon as Write returns.
type MemoryStore interface {
	// Write persists one immutable record and returns the assigned id.
	// Salience outside [0,3] fails with model.ErrInvalidSalience. Text
	// longer than model.MaxMemoryTextLen is truncated, never rejected.
	// A zero CreatedAt defaults to the current time.
	Write(ctx context.Context, rec *model.MemoryRecord) (int64, error)

	// TopK returns up to k records for the (character, player) pair with
	// salience >= minSalience, ordered by salience descending, then
	// createdAt descending. No matches yields an empty slice, not an error.
	TopK(ctx context.Context, characterID, playerID string, k, minSalience int) ([]*model.MemoryRecord, error)

	// AllFor returns up to limit records for the character ordered by
	// createdAt descending, optionally filtered to one player.
	AllFor(ctx context.Context, characterID string, playerID *string, limit int) ([]*model.MemoryRecord, error)

	// PurgeOlderThan bulk-deletes records strictly older than now-age and
	// returns the number removed. Records at the boundary timestamp stay.
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)

	// Count returns the number of stored records, optionally scoped to one
	// character.
	Count(ctx context.Context, characterID *string) (int64, error)

	Close() error
}
