package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Yashasrn33/RPGAI/internal/model"
	"github.com/Yashasrn33/RPGAI/internal/worldevents"
)

// --- fakes ---

type fakeStore struct {
	memories []*model.MemoryRecord
	topKErr  error
	writeErr error
	writes   []*model.MemoryRecord
	lastK    int
}

func (f *fakeStore) Write(_ context.Context, rec *model.MemoryRecord) (int64, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	rec.ID = int64(len(f.writes) + 1)
	f.writes = append(f.writes, rec)
	return rec.ID, nil
}

func (f *fakeStore) TopK(_ context.Context, _, _ string, k, _ int) ([]*model.MemoryRecord, error) {
	f.lastK = k
	if f.topKErr != nil {
		return nil, f.topKErr
	}
	return f.memories, nil
}

func (f *fakeStore) AllFor(context.Context, string, *string, int) ([]*model.MemoryRecord, error) {
	return nil, nil
}

func (f *fakeStore) PurgeOlderThan(context.Context, time.Duration) (int64, error) { return 0, nil }

func (f *fakeStore) Count(context.Context, *string) (int64, error) {
	return int64(len(f.writes)), nil
}

func (f *fakeStore) Close() error { return nil }

type fakeProvider struct {
	raw    string
	err    error
	prompt string
}

func (f *fakeProvider) GenerateTurn(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.raw, nil
}

func (f *fakeProvider) HealthPing(context.Context) error { return nil }

type frame struct {
	kind string
	text string
}

type captureEmitter struct {
	frames   []frame
	tokenErr error
	finalErr error
}

func (c *captureEmitter) EmitToken(_ context.Context, text string) error {
	if c.tokenErr != nil {
		return c.tokenErr
	}
	c.frames = append(c.frames, frame{kind: "token", text: text})
	return nil
}

func (c *captureEmitter) EmitFinal(_ context.Context, payload string) error {
	if c.finalErr != nil {
		return c.finalErr
	}
	c.frames = append(c.frames, frame{kind: "final", text: payload})
	return nil
}

func (c *captureEmitter) finals() []string {
	var out []string
	for _, f := range c.frames {
		if f.kind == "final" {
			out = append(out, f.text)
		}
	}
	return out
}

func (c *captureEmitter) joinedTokens() string {
	var sb strings.Builder
	for _, f := range c.frames {
		if f.kind == "token" {
			sb.WriteString(f.text)
		}
	}
	return sb.String()
}

type capturePublisher struct {
	events []worldevents.Event
}

func (c *capturePublisher) Publish(_ context.Context, ev worldevents.Event) {
	c.events = append(c.events, ev)
}

// --- helpers ---

func turnRequest() *model.DialogueTurnRequest {
	text := "I brought back your lost ring."
	return &model.DialogueTurnRequest{
		CharacterID: "npc_elenor",
		PlayerID:    "p1",
		PlayerText:  &text,
		Persona:     model.Persona{Name: "Elenor", Role: "herbalist"},
		Context:     model.GameContext{Scene: "apothecary", TimeOfDay: "dusk", Weather: "clear"},
	}
}

func newTestOrchestrator(st *fakeStore, p *fakeProvider, pub worldevents.Publisher, pol Policy) *Orchestrator {
	return NewOrchestrator(st, p, pub, zerolog.Nop(), pol)
}

func decodeFinal(t *testing.T, payload string) *model.DialogueTurnResponse {
	t.Helper()
	var resp model.DialogueTurnResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		t.Fatalf("final payload is not valid JSON: %v\n%s", err, payload)
	}
	return &resp
}

// --- tests ---

func TestRunTurn_HappyPath(t *testing.T) {
	st := &fakeStore{memories: []*model.MemoryRecord{
		{Salience: 2, Text: "Player returned a lost ring"},
	}}
	p := &fakeProvider{raw: validResponse}
	pub := &capturePublisher{}
	emit := &captureEmitter{}
	o := newTestOrchestrator(st, p, pub, Policy{RetrievalTopK: 3, MaxMemoryWrites: 2, StreamChunkSize: 20})

	if err := o.RunTurn(context.Background(), turnRequest(), emit); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	// Tokens reassemble the raw backend text.
	if got := emit.joinedTokens(); got != validResponse {
		t.Fatalf("token concat mismatch:\n%s", got)
	}

	// Exactly one final, and it is the canonical validated payload.
	finals := emit.finals()
	if len(finals) != 1 {
		t.Fatalf("finals = %d, want 1", len(finals))
	}
	resp := decodeFinal(t, finals[0])
	if resp.Utterance != "Well met, traveler. The forge is hot today." {
		t.Fatalf("utterance = %q", resp.Utterance)
	}
	if emit.frames[len(emit.frames)-1].kind != "final" {
		t.Fatal("final frame must come last")
	}

	// Memory write side effect.
	if len(st.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(st.writes))
	}
	w := st.writes[0]
	if w.CharacterID != "npc_elenor" || w.PlayerID != "p1" || w.Salience != 1 || !w.Private {
		t.Fatalf("persisted write = %+v", w)
	}

	// Public event side effect.
	if len(pub.events) != 1 || pub.events[0].EventType != "shop_opened" {
		t.Fatalf("events = %+v", pub.events)
	}
	if pub.events[0].TurnID == "" {
		t.Fatal("event must carry the turn id")
	}

	// Retrieval used the configured k.
	if st.lastK != 3 {
		t.Fatalf("retrieval k = %d", st.lastK)
	}

	// Prompt carried the retrieved memory.
	if !strings.Contains(p.prompt, "- (salience 2) Player returned a lost ring") {
		t.Fatalf("prompt missing memory section:\n%s", p.prompt)
	}
}

func TestRunTurn_StoreFailure(t *testing.T) {
	st := &fakeStore{topKErr: errors.New("disk gone")}
	emit := &captureEmitter{}
	o := newTestOrchestrator(st, &fakeProvider{raw: validResponse}, nil, Policy{})

	err := o.RunTurn(context.Background(), turnRequest(), emit)
	if !errors.Is(err, model.ErrStoreUnavailable) {
		t.Fatalf("want ErrStoreUnavailable, got %v", err)
	}
	if len(emit.frames) != 0 {
		t.Fatalf("no frames may be emitted on retrieval failure, got %d", len(emit.frames))
	}
}

func TestRunTurn_BackendFailure(t *testing.T) {
	st := &fakeStore{}
	p := &fakeProvider{err: model.ErrBackendUnavailable}
	pub := &capturePublisher{}
	emit := &captureEmitter{}
	o := newTestOrchestrator(st, p, pub, Policy{})

	if err := o.RunTurn(context.Background(), turnRequest(), emit); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	if got := emit.joinedTokens(); got != "" {
		t.Fatalf("no tokens expected, got %q", got)
	}
	finals := emit.finals()
	if len(finals) != 1 {
		t.Fatalf("finals = %d, want 1", len(finals))
	}
	resp := decodeFinal(t, finals[0])
	if resp.Utterance != "I... I cannot speak right now." {
		t.Fatalf("utterance = %q", resp.Utterance)
	}
	if resp.Emotion != model.EmotionNeutral || resp.BehaviorDirective != model.BehaviorNone {
		t.Fatalf("fallback must be neutral/none: %+v", resp)
	}
	if len(st.writes) != 0 || len(pub.events) != 0 {
		t.Fatal("fallback must not trigger side effects")
	}

	// Fallback payload carries only the three required fields.
	var keys map[string]any
	_ = json.Unmarshal([]byte(finals[0]), &keys)
	if len(keys) != 3 {
		t.Fatalf("fallback keys = %v", keys)
	}
}

func TestRunTurn_MalformedBackendOutput(t *testing.T) {
	st := &fakeStore{}
	raw := "this is not json"
	emit := &captureEmitter{}
	o := newTestOrchestrator(st, &fakeProvider{raw: raw}, nil, Policy{StreamChunkSize: 4})

	if err := o.RunTurn(context.Background(), turnRequest(), emit); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	// Raw text still streams before validation rejects it.
	if got := emit.joinedTokens(); got != raw {
		t.Fatalf("token concat = %q", got)
	}
	finals := emit.finals()
	if len(finals) != 1 {
		t.Fatalf("finals = %d, want 1", len(finals))
	}
	if resp := decodeFinal(t, finals[0]); resp.Utterance != "I... seem to have lost my words." {
		t.Fatalf("utterance = %q", resp.Utterance)
	}
	if len(st.writes) != 0 {
		t.Fatal("malformed output must not write memories")
	}
}

func TestRunTurn_ContractViolation(t *testing.T) {
	st := &fakeStore{}
	pub := &capturePublisher{}
	// Valid JSON, but the emotion is outside the closed set.
	raw := `{"utterance":"x","emotion":"gleeful","behavior_directive":"none","memory_writes":[{"salience":1,"text":"y"}]}`
	emit := &captureEmitter{}
	o := newTestOrchestrator(st, &fakeProvider{raw: raw}, pub, Policy{MaxMemoryWrites: 2})

	if err := o.RunTurn(context.Background(), turnRequest(), emit); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	finals := emit.finals()
	if len(finals) != 1 {
		t.Fatalf("finals = %d, want 1", len(finals))
	}
	if resp := decodeFinal(t, finals[0]); resp.Utterance != "Forgive me, I'm not feeling quite myself." {
		t.Fatalf("utterance = %q", resp.Utterance)
	}
	if len(st.writes) != 0 || len(pub.events) != 0 {
		t.Fatal("rejected payload must not trigger side effects")
	}
}

func TestRunTurn_MemoryWriteCap(t *testing.T) {
	st := &fakeStore{}
	raw := `{"utterance":"x","emotion":"neutral","behavior_directive":"none","memory_writes":[` +
		`{"salience":2,"text":"first"},{"salience":1,"text":"second"}]}`
	emit := &captureEmitter{}
	o := newTestOrchestrator(st, &fakeProvider{raw: raw}, nil, Policy{MaxMemoryWrites: 1})

	if err := o.RunTurn(context.Background(), turnRequest(), emit); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if len(st.writes) != 1 || st.writes[0].Text != "first" {
		t.Fatalf("writes = %+v", st.writes)
	}
}

func TestRunTurn_WriteFailureDoesNotFailTurn(t *testing.T) {
	st := &fakeStore{writeErr: errors.New("disk full")}
	pub := &capturePublisher{}
	raw := `{"utterance":"x","emotion":"neutral","behavior_directive":"none",` +
		`"memory_writes":[{"salience":1,"text":"y"}],"public_events":[{"event_type":"e"}]}`
	emit := &captureEmitter{}
	o := newTestOrchestrator(st, &fakeProvider{raw: raw}, pub, Policy{MaxMemoryWrites: 2})

	if err := o.RunTurn(context.Background(), turnRequest(), emit); err != nil {
		t.Fatalf("write failure must not fail the turn: %v", err)
	}
	if len(emit.finals()) != 1 {
		t.Fatal("final must still be emitted")
	}
	if len(pub.events) != 1 {
		t.Fatal("events must still publish after a write failure")
	}
}

func TestRunTurn_EmitTokenFailureAborts(t *testing.T) {
	st := &fakeStore{}
	emit := &captureEmitter{tokenErr: errors.New("peer gone")}
	o := newTestOrchestrator(st, &fakeProvider{raw: validResponse}, nil, Policy{})

	if err := o.RunTurn(context.Background(), turnRequest(), emit); err == nil {
		t.Fatal("expected error when the peer is gone")
	}
	if len(emit.finals()) != 0 {
		t.Fatal("no final after an emit failure")
	}
	if len(st.writes) != 0 {
		t.Fatal("no side effects after an emit failure")
	}
}

func TestRunTurn_EmitFinalFailureSkipsSideEffects(t *testing.T) {
	st := &fakeStore{}
	pub := &capturePublisher{}
	emit := &captureEmitter{finalErr: errors.New("peer gone")}
	o := newTestOrchestrator(st, &fakeProvider{raw: validResponse}, pub, Policy{})

	if err := o.RunTurn(context.Background(), turnRequest(), emit); err == nil {
		t.Fatal("expected error when final emit fails")
	}
	if len(st.writes) != 0 || len(pub.events) != 0 {
		t.Fatal("side effects must not run when the final never reached the client")
	}
}

func TestRunTurn_ChunksRespectRunes(t *testing.T) {
	st := &fakeStore{}
	raw := `{"utterance":"Über die Brücke, schnell!","emotion":"fear","behavior_directive":"flee"}`
	emit := &captureEmitter{}
	o := newTestOrchestrator(st, &fakeProvider{raw: raw}, nil, Policy{StreamChunkSize: 5})

	if err := o.RunTurn(context.Background(), turnRequest(), emit); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	for _, f := range emit.frames {
		if f.kind == "token" && len([]rune(f.text)) > 5 {
			t.Fatalf("token %q exceeds 5 runes", f.text)
		}
	}
	if emit.joinedTokens() != raw {
		t.Fatal("token concat mismatch")
	}
}

func TestChunkRunes(t *testing.T) {
	got := chunkRunes("abcdef", 4)
	if len(got) != 2 || got[0] != "abcd" || got[1] != "ef" {
		t.Fatalf("chunks = %v", got)
	}
	if out := chunkRunes("", 4); len(out) != 0 {
		t.Fatalf("empty input should yield no chunks, got %v", out)
	}
}
