package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"

	"github.com/Yashasrn33/RPGAI/internal/dialogue"
	"github.com/Yashasrn33/RPGAI/internal/model"
)

const validBackendJSON = `{
  "utterance": "Ah, my ring! I thought it lost to the river.",
  "emotion": "happy",
  "style_tags": ["casual"],
  "behavior_directive": "give_item",
  "memory_writes": [
    {"salience": 3, "text": "Player returned my lost ring", "keys": ["ring", "kindness"]}
  ],
  "public_events": [
    {"event_type": "quest_completed", "payload": {"quest": "lost_ring"}}
  ]
}`

// memStore is an in-memory MemoryStore for session tests.
type memStore struct {
	mu      sync.Mutex
	records []*model.MemoryRecord
	nextID  int64
	topKErr error
}

func (s *memStore) Write(_ context.Context, rec *model.MemoryRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !model.ValidSalience(rec.Salience) {
		return 0, model.ErrInvalidSalience
	}
	s.nextID++
	rec.ID = s.nextID
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}
	cp := *rec
	s.records = append(s.records, &cp)
	return rec.ID, nil
}

func (s *memStore) TopK(_ context.Context, characterID, playerID string, k, minSalience int) ([]*model.MemoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.topKErr != nil {
		return nil, s.topKErr
	}
	out := []*model.MemoryRecord{}
	for _, r := range s.records {
		if r.CharacterID == characterID && r.PlayerID == playerID && r.Salience >= minSalience {
			out = append(out, r)
		}
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func (s *memStore) AllFor(_ context.Context, characterID string, playerID *string, limit int) ([]*model.MemoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.MemoryRecord{}
	for _, r := range s.records {
		if r.CharacterID != characterID {
			continue
		}
		if playerID != nil && r.PlayerID != *playerID {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) PurgeOlderThan(context.Context, time.Duration) (int64, error) { return 0, nil }

func (s *memStore) Count(context.Context, *string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.records)), nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) all() []*model.MemoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.MemoryRecord{}, s.records...)
}

type stubProvider struct {
	raw string
	err error
}

func (p *stubProvider) GenerateTurn(context.Context, string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.raw, nil
}

func (p *stubProvider) HealthPing(context.Context) error { return nil }

func newTestServer(t *testing.T, st *memStore, provider *stubProvider) *httptest.Server {
	t.Helper()
	orch := dialogue.NewOrchestrator(st, provider, nil, zerolog.Nop(), dialogue.Policy{MaxMemoryWrites: 2})
	srv := httptest.NewServer(NewRouter(Deps{
		Store: st,
		Orch:  orch,
		Model: "gemini-test",
		Log:   zerolog.Nop(),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialSession(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/chat.stream"
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func turnRequestJSON() *model.DialogueTurnRequest {
	text := "I brought back your lost ring."
	return &model.DialogueTurnRequest{
		CharacterID: "npc_elenor",
		PlayerID:    "player_7",
		PlayerText:  &text,
		Persona: model.Persona{
			Name:   "Elenor",
			Role:   "village healer",
			Values: []string{"kindness"},
		},
		Context: model.GameContext{
			Scene:     "herb garden",
			TimeOfDay: "dawn",
			Weather:   "clear",
		},
	}
}

// readFrames collects frames until a terminal frame (final or error) or EOF.
func readFrames(t *testing.T, conn *websocket.Conn) []frame {
	t.Helper()
	dec := json.NewDecoder(conn)
	var frames []frame
	for {
		var f frame
		if err := dec.Decode(&f); err != nil {
			if errors.Is(err, io.EOF) {
				return frames
			}
			t.Fatalf("decode frame: %v", err)
		}
		frames = append(frames, f)
		if f.Type == frameFinal || f.Type == frameError {
			return frames
		}
	}
}

func TestChatStream_HappyPath(t *testing.T) {
	st := &memStore{}
	if _, err := st.Write(context.Background(), &model.MemoryRecord{
		CharacterID: "npc_elenor", PlayerID: "player_7",
		Text: "Player helped gather herbs", Salience: 2, Private: true,
	}); err != nil {
		t.Fatalf("seed memory: %v", err)
	}

	srv := newTestServer(t, st, &stubProvider{raw: validBackendJSON})
	conn := dialSession(t, srv)

	if err := json.NewEncoder(conn).Encode(turnRequestJSON()); err != nil {
		t.Fatalf("send request: %v", err)
	}

	frames := readFrames(t, conn)
	if len(frames) == 0 {
		t.Fatal("no frames received")
	}

	last := frames[len(frames)-1]
	if last.Type != frameFinal {
		t.Fatalf("last frame type = %q, want final", last.Type)
	}

	var streamed strings.Builder
	for _, f := range frames[:len(frames)-1] {
		if f.Type != frameToken {
			t.Fatalf("unexpected frame type %q before final", f.Type)
		}
		streamed.WriteString(f.Text)
	}
	if streamed.String() != validBackendJSON {
		t.Fatalf("streamed tokens do not reassemble the backend output:\n%s", streamed.String())
	}

	var resp model.DialogueTurnResponse
	if err := json.Unmarshal([]byte(last.JSON), &resp); err != nil {
		t.Fatalf("final payload not valid JSON: %v", err)
	}
	if resp.Utterance != "Ah, my ring! I thought it lost to the river." {
		t.Fatalf("utterance = %q", resp.Utterance)
	}
	if resp.Emotion != model.EmotionHappy {
		t.Fatalf("emotion = %q", resp.Emotion)
	}

	// The connection closes after the final frame.
	var extra frame
	if err := json.NewDecoder(conn).Decode(&extra); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after final, got frame %+v err %v", extra, err)
	}

	// The proposed memory write landed in the store.
	deadline := time.Now().Add(2 * time.Second)
	for {
		recs := st.all()
		if len(recs) == 2 {
			if recs[1].Text != "Player returned my lost ring" {
				t.Fatalf("persisted text = %q", recs[1].Text)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("memory write not persisted, have %d records", len(recs))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestChatStream_MalformedFirstMessage(t *testing.T) {
	srv := newTestServer(t, &memStore{}, &stubProvider{raw: validBackendJSON})
	conn := dialSession(t, srv)

	if _, err := conn.Write([]byte("{not json")); err != nil {
		t.Fatalf("send garbage: %v", err)
	}

	frames := readFrames(t, conn)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0].Type != frameError {
		t.Fatalf("frame type = %q, want error", frames[0].Type)
	}
	if !strings.HasPrefix(frames[0].Message, "Invalid payload: ") {
		t.Fatalf("message = %q", frames[0].Message)
	}
}

func TestChatStream_ValidationFailure(t *testing.T) {
	srv := newTestServer(t, &memStore{}, &stubProvider{raw: validBackendJSON})
	conn := dialSession(t, srv)

	req := turnRequestJSON()
	req.CharacterID = ""
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		t.Fatalf("send request: %v", err)
	}

	frames := readFrames(t, conn)
	if len(frames) != 1 || frames[0].Type != frameError {
		t.Fatalf("frames = %+v, want single error frame", frames)
	}
	if frames[0].Message != "Invalid payload: characterId is required" {
		t.Fatalf("message = %q", frames[0].Message)
	}
}

func TestChatStream_StoreFailure(t *testing.T) {
	st := &memStore{topKErr: errors.New("disk detached")}
	srv := newTestServer(t, st, &stubProvider{raw: validBackendJSON})
	conn := dialSession(t, srv)

	if err := json.NewEncoder(conn).Encode(turnRequestJSON()); err != nil {
		t.Fatalf("send request: %v", err)
	}

	frames := readFrames(t, conn)
	if len(frames) != 1 || frames[0].Type != frameError {
		t.Fatalf("frames = %+v, want single error frame", frames)
	}
	if !strings.Contains(frames[0].Message, "memory store unavailable") {
		t.Fatalf("message = %q", frames[0].Message)
	}
}

func TestChatStream_BackendFailure(t *testing.T) {
	srv := newTestServer(t, &memStore{}, &stubProvider{err: errors.New("upstream 503")})
	conn := dialSession(t, srv)

	if err := json.NewEncoder(conn).Encode(turnRequestJSON()); err != nil {
		t.Fatalf("send request: %v", err)
	}

	frames := readFrames(t, conn)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want only the fallback final", len(frames))
	}
	if frames[0].Type != frameFinal {
		t.Fatalf("frame type = %q, want final", frames[0].Type)
	}
	var resp model.DialogueTurnResponse
	if err := json.Unmarshal([]byte(frames[0].JSON), &resp); err != nil {
		t.Fatalf("final payload: %v", err)
	}
	if resp.Utterance != "I... I cannot speak right now." {
		t.Fatalf("fallback utterance = %q", resp.Utterance)
	}
	if resp.Emotion != model.EmotionNeutral || resp.BehaviorDirective != model.BehaviorNone {
		t.Fatalf("fallback not neutral: %+v", resp)
	}
}

func TestChatStream_MalformedBackendOutput(t *testing.T) {
	srv := newTestServer(t, &memStore{}, &stubProvider{raw: `{"utterance": "Hmm`})
	conn := dialSession(t, srv)

	if err := json.NewEncoder(conn).Encode(turnRequestJSON()); err != nil {
		t.Fatalf("send request: %v", err)
	}

	frames := readFrames(t, conn)
	last := frames[len(frames)-1]
	if last.Type != frameFinal {
		t.Fatalf("last frame type = %q, want final", last.Type)
	}
	var resp model.DialogueTurnResponse
	if err := json.Unmarshal([]byte(last.JSON), &resp); err != nil {
		t.Fatalf("final payload: %v", err)
	}
	if resp.Utterance != "I... seem to have lost my words." {
		t.Fatalf("fallback utterance = %q", resp.Utterance)
	}
}
