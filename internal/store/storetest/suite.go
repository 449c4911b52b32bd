package storetest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Yashasrn33/RPGAI/internal/model"
	"github.com/Yashasrn33/RPGAI/internal/store"
)

// Run exercises a compliance suite against a store.MemoryStore
// implementation. makeStore should return a ready store; shared backends
// (a developer Postgres) are tolerated via unique IDs and delta counting.
func Run(t *testing.T, makeStore func(t *testing.T) store.MemoryStore) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	// Shared backends may carry backdated rows from an aborted run.
	if _, err := s.PurgeOlderThan(ctx, 24*time.Hour); err != nil {
		t.Fatalf("pre-clean purge: %v", err)
	}

	characterID := "npc-" + uuid.New().String()
	playerID := "player-" + uuid.New().String()
	now := time.Now().Unix()

	baseCount, err := s.Count(ctx, nil)
	if err != nil {
		t.Fatalf("Count baseline: %v", err)
	}

	// Write assigns id and createdAt.
	first := &model.MemoryRecord{
		CharacterID: characterID,
		PlayerID:    playerID,
		Text:        "sold the player a steel sword",
		Salience:    2,
		Private:     true,
	}
	firstID, err := s.Write(ctx, first)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if firstID < 1 || first.ID != firstID {
		t.Fatalf("Write id: got %d, record holds %d", firstID, first.ID)
	}
	if first.CreatedAt == 0 {
		t.Fatalf("Write did not assign createdAt")
	}

	// Salience outside [0,3] is rejected, never clamped.
	for _, bad := range []int{-1, 4} {
		_, err := s.Write(ctx, &model.MemoryRecord{
			CharacterID: characterID, PlayerID: playerID, Text: "x", Salience: bad,
		})
		if !errors.Is(err, model.ErrInvalidSalience) {
			t.Fatalf("Write salience=%d: want ErrInvalidSalience, got %v", bad, err)
		}
	}

	// Long text is truncated to the cap, never rejected.
	long := &model.MemoryRecord{
		CharacterID: characterID,
		PlayerID:    playerID,
		Text:        strings.Repeat("é", model.MaxMemoryTextLen+40),
		Salience:    0,
		CreatedAt:   now - 600,
	}
	if _, err := s.Write(ctx, long); err != nil {
		t.Fatalf("Write long text: %v", err)
	}
	if got := len([]rune(long.Text)); got != model.MaxMemoryTextLen {
		t.Fatalf("Write long text: %d runes after write, want %d", got, model.MaxMemoryTextLen)
	}

	// Ranking fixtures with controlled timestamps.
	oldHigh := &model.MemoryRecord{CharacterID: characterID, PlayerID: playerID,
		Text: "saved the shop from a fire", Salience: 3, Private: true, CreatedAt: now - 300}
	newHigh := &model.MemoryRecord{CharacterID: characterID, PlayerID: playerID,
		Text: "threatened the guard captain", Salience: 3, Private: true, CreatedAt: now - 100,
		Keys: []string{"guard", "threat"}}
	low := &model.MemoryRecord{CharacterID: characterID, PlayerID: playerID,
		Text: "asked about the weather", Salience: 1, Private: false, CreatedAt: now - 50}
	for _, rec := range []*model.MemoryRecord{oldHigh, newHigh, low} {
		if _, err := s.Write(ctx, rec); err != nil {
			t.Fatalf("Write fixture %q: %v", rec.Text, err)
		}
	}

	// TopK orders by salience desc, then createdAt desc.
	got, err := s.TopK(ctx, characterID, playerID, 10, 0)
	if err != nil {
		t.Fatalf("TopK: %v", err)
	}
	wantOrder := []int64{newHigh.ID, oldHigh.ID, first.ID, low.ID, long.ID}
	if len(got) != len(wantOrder) {
		t.Fatalf("TopK: got %d records, want %d", len(got), len(wantOrder))
	}
	for i, rec := range got {
		if rec.ID != wantOrder[i] {
			t.Fatalf("TopK order[%d]: got id %d, want %d", i, rec.ID, wantOrder[i])
		}
	}

	// k caps the result set.
	got, err = s.TopK(ctx, characterID, playerID, 2, 0)
	if err != nil || len(got) != 2 {
		t.Fatalf("TopK k=2: n=%d err=%v", len(got), err)
	}
	if got[0].ID != newHigh.ID || got[1].ID != oldHigh.ID {
		t.Fatalf("TopK k=2 order: got [%d %d]", got[0].ID, got[1].ID)
	}

	// minSalience filters out trivia.
	got, err = s.TopK(ctx, characterID, playerID, 10, 2)
	if err != nil {
		t.Fatalf("TopK minSalience=2: %v", err)
	}
	for _, rec := range got {
		if rec.Salience < 2 {
			t.Fatalf("TopK minSalience=2 returned salience %d", rec.Salience)
		}
	}
	if len(got) != 3 {
		t.Fatalf("TopK minSalience=2: n=%d, want 3", len(got))
	}

	// Keys and private flags survive the round trip.
	var found *model.MemoryRecord
	for _, rec := range got {
		if rec.ID == newHigh.ID {
			found = rec
		}
	}
	if found == nil {
		t.Fatalf("TopK lost record %d", newHigh.ID)
	}
	if len(found.Keys) != 2 || found.Keys[0] != "guard" || found.Keys[1] != "threat" {
		t.Fatalf("keys round trip: %v", found.Keys)
	}
	if !found.Private {
		t.Fatalf("private flag lost on %d", found.ID)
	}

	// Unknown pair yields empty, not error.
	got, err = s.TopK(ctx, characterID, "player-"+uuid.New().String(), 5, 0)
	if err != nil || len(got) != 0 {
		t.Fatalf("TopK unknown player: n=%d err=%v", len(got), err)
	}

	// AllFor without player filter sees every player; recency order.
	otherPlayer := "player-" + uuid.New().String()
	other := &model.MemoryRecord{CharacterID: characterID, PlayerID: otherPlayer,
		Text: "tried to pickpocket the stall", Salience: 2, Private: true, CreatedAt: now - 10}
	if _, err := s.Write(ctx, other); err != nil {
		t.Fatalf("Write other player: %v", err)
	}
	all, err := s.AllFor(ctx, characterID, nil, 100)
	if err != nil {
		t.Fatalf("AllFor: %v", err)
	}
	if len(all) != 6 {
		t.Fatalf("AllFor: n=%d, want 6", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].CreatedAt < all[i].CreatedAt {
			t.Fatalf("AllFor not ordered by createdAt desc at %d", i)
		}
	}

	// Player filter narrows the dump.
	scoped, err := s.AllFor(ctx, characterID, &otherPlayer, 100)
	if err != nil || len(scoped) != 1 || scoped[0].ID != other.ID {
		t.Fatalf("AllFor player filter: n=%d err=%v", len(scoped), err)
	}

	// Limit caps the dump.
	capped, err := s.AllFor(ctx, characterID, nil, 2)
	if err != nil || len(capped) != 2 {
		t.Fatalf("AllFor limit: n=%d err=%v", len(capped), err)
	}

	// Count per character is exact; global count moved by our writes.
	n, err := s.Count(ctx, &characterID)
	if err != nil || n != 6 {
		t.Fatalf("Count character: n=%d err=%v", n, err)
	}
	total, err := s.Count(ctx, nil)
	if err != nil || total < baseCount+6 {
		t.Fatalf("Count global: total=%d base=%d err=%v", total, baseCount, err)
	}

	// Purge deletes strictly older than the cutoff.
	purgeChar := "npc-" + uuid.New().String()
	cutoffAge := 30 * 24 * time.Hour
	expired := &model.MemoryRecord{CharacterID: purgeChar, PlayerID: playerID,
		Text: "forgotten grudge", Salience: 1, CreatedAt: now - int64(cutoffAge.Seconds()) - 60}
	kept := &model.MemoryRecord{CharacterID: purgeChar, PlayerID: playerID,
		Text: "recent favor", Salience: 1, CreatedAt: now - int64(cutoffAge.Seconds()) + 60}
	if _, err := s.Write(ctx, expired); err != nil {
		t.Fatalf("Write expired: %v", err)
	}
	if _, err := s.Write(ctx, kept); err != nil {
		t.Fatalf("Write kept: %v", err)
	}
	purged, err := s.PurgeOlderThan(ctx, cutoffAge)
	if err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	if purged != 1 {
		t.Fatalf("PurgeOlderThan: purged=%d, want 1", purged)
	}
	remaining, err := s.AllFor(ctx, purgeChar, nil, 10)
	if err != nil || len(remaining) != 1 || remaining[0].ID != kept.ID {
		t.Fatalf("post-purge dump: n=%d err=%v", len(remaining), err)
	}

	// Concurrent writers and readers neither error nor lose writes.
	concChar := "npc-" + uuid.New().String()
	const writers, perWriter = 4, 5
	var wg sync.WaitGroup
	concErrs := make(chan error, writers+2)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				rec := &model.MemoryRecord{
					CharacterID: concChar,
					PlayerID:    playerID,
					Text:        fmt.Sprintf("writer %d note %d", w, i),
					Salience:    i % 4,
				}
				if _, err := s.Write(ctx, rec); err != nil {
					concErrs <- fmt.Errorf("concurrent write: %w", err)
					return
				}
			}
		}(w)
	}
	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				if _, err := s.TopK(ctx, concChar, playerID, 5, 0); err != nil {
					concErrs <- fmt.Errorf("concurrent read: %w", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(concErrs)
	for err := range concErrs {
		t.Error(err)
	}
	n, err = s.Count(ctx, &concChar)
	if err != nil || n != writers*perWriter {
		t.Fatalf("Count after concurrent writes: n=%d err=%v", n, err)
	}
}
