package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/Yashasrn33/RPGAI/internal/llm"
	"github.com/Yashasrn33/RPGAI/internal/model"
	"github.com/Yashasrn33/RPGAI/internal/store"
	"github.com/Yashasrn33/RPGAI/internal/worldevents"
)

// Emitter receives the outbound frames of one dialogue turn. An error from
// either method aborts the turn; side effects only run after EmitFinal
// returned nil for a validated response.
type Emitter interface {
	EmitToken(ctx context.Context, text string) error
	EmitFinal(ctx context.Context, payload string) error
}

// Policy bundles the per-turn tunables. Zero RetrievalTopK,
// StreamChunkSize and GenerateTimeout fall back to service defaults;
// MaxMemoryWrites zero disables automatic writes.
type Policy struct {
	RetrievalTopK   int
	MaxMemoryWrites int
	StreamChunkSize int
	GenerateTimeout time.Duration
}

// Memories below this salience stay out of prompts entirely.
const retrievalMinSalience = 0

func (p Policy) withDefaults() Policy {
	if p.RetrievalTopK < 1 {
		p.RetrievalTopK = 3
	}
	if p.StreamChunkSize < 1 {
		p.StreamChunkSize = 20
	}
	if p.MaxMemoryWrites < 0 {
		p.MaxMemoryWrites = 0
	}
	if p.GenerateTimeout <= 0 {
		p.GenerateTimeout = 30 * time.Second
	}
	return p
}

// Orchestrator drives one dialogue turn end to end: memory retrieval,
// prompt composition, generation, token streaming, validation, and the
// post-final side effects.
type Orchestrator struct {
	store  store.MemoryStore
	llm    llm.Provider
	events worldevents.Publisher
	log    zerolog.Logger
	pol    Policy
}

// NewOrchestrator wires the turn pipeline.
func NewOrchestrator(st store.MemoryStore, provider llm.Provider, events worldevents.Publisher, log zerolog.Logger, pol Policy) *Orchestrator {
	if events == nil {
		events = worldevents.Nop{}
	}
	return &Orchestrator{
		store:  st,
		llm:    provider,
		events: events,
		log:    log,
		pol:    pol.withDefaults(),
	}
}

type turnPhase string

const (
	phaseRetrieving turnPhase = "retrieving"
	phaseGenerating turnPhase = "generating"
	phaseStreaming  turnPhase = "streaming"
	phaseFinalizing turnPhase = "finalizing"
	phaseClosed     turnPhase = "closed"
)

type turnRun struct {
	log   zerolog.Logger
	phase turnPhase
}

func (r *turnRun) advance(p turnPhase) {
	r.phase = p
	r.log.Debug().Str("phase", string(p)).Msg("turn phase")
}

func (r *turnRun) fail(err error) {
	r.log.Error().Err(err).Str("phase", string(r.phase)).Msg("turn aborted")
}

// RunTurn executes one turn against the emitter. The request must already
// be validated.
//
// Failure handling is tiered. A store retrieval failure returns an error
// wrapping model.ErrStoreUnavailable and emits nothing; the session layer
// turns it into an error frame. Backend and contract failures degrade to a
// fallback final so every turn that reaches generation ends with exactly
// one final frame. Fallback finals skip memory writes and public events.
func (o *Orchestrator) RunTurn(ctx context.Context, req *model.DialogueTurnRequest, emit Emitter) error {
	turnID := ulid.Make().String()
	log := o.log.With().
		Str("turn_id", turnID).
		Str("character_id", req.CharacterID).
		Str("player_id", req.PlayerID).
		Logger()
	run := &turnRun{log: log}
	started := time.Now()

	run.advance(phaseRetrieving)
	memories, err := o.store.TopK(ctx, req.CharacterID, req.PlayerID, o.pol.RetrievalTopK, retrievalMinSalience)
	if err != nil {
		run.fail(err)
		return fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	log.Debug().Int("memories", len(memories)).Msg("memories retrieved")

	run.advance(phaseGenerating)
	prompt := BuildPrompt(req, memories)

	genCtx, cancel := context.WithTimeout(ctx, o.pol.GenerateTimeout)
	raw, genErr := o.llm.GenerateTurn(genCtx, prompt)
	cancel()
	if genErr != nil {
		log.Error().Err(genErr).Msg("generation backend failed")
		run.advance(phaseFinalizing)
		if err := o.emitFinal(ctx, emit, BackendFallback()); err != nil {
			run.fail(err)
			return err
		}
		run.advance(phaseClosed)
		return nil
	}

	run.advance(phaseStreaming)
	tokens := 0
	for _, chunk := range chunkRunes(raw, o.pol.StreamChunkSize) {
		if err := emit.EmitToken(ctx, chunk); err != nil {
			run.fail(err)
			return fmt.Errorf("emit token: %w", err)
		}
		tokens++
	}

	run.advance(phaseFinalizing)
	resp, cerr := ValidateResponse(raw)
	if cerr != nil {
		log.Warn().
			Str("failure_kind", string(cerr.Kind)).
			Str("field", cerr.Field).
			Str("reason", cerr.Reason).
			Msg("backend payload rejected")
		fb := ContractFallback()
		if cerr.Kind == MalformedEncoding {
			fb = MalformedFallback()
		}
		if err := o.emitFinal(ctx, emit, fb); err != nil {
			run.fail(err)
			return err
		}
		run.advance(phaseClosed)
		return nil
	}

	if err := o.emitFinal(ctx, emit, resp); err != nil {
		run.fail(err)
		return err
	}

	// Side effects run only after the validated final reached the client.
	o.persistMemoryWrites(ctx, log, req, resp.MemoryWrites)
	o.publishEvents(ctx, turnID, req, resp.PublicEvents)

	log.Info().
		Str("emotion", string(resp.Emotion)).
		Str("behavior", string(resp.BehaviorDirective)).
		Int("utterance_len", len([]rune(resp.Utterance))).
		Int("tokens_streamed", tokens).
		Dur("elapsed", time.Since(started)).
		Msg("turn completed")
	run.advance(phaseClosed)
	return nil
}

func (o *Orchestrator) emitFinal(ctx context.Context, emit Emitter, resp *model.DialogueTurnResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode final response: %w", err)
	}
	if err := emit.EmitFinal(ctx, string(payload)); err != nil {
		return fmt.Errorf("emit final: %w", err)
	}
	return nil
}

// persistMemoryWrites stores up to MaxMemoryWrites proposals. Failures are
// logged and skipped; the reply already reached the client, so a write
// error must not fail the turn.
func (o *Orchestrator) persistMemoryWrites(ctx context.Context, log zerolog.Logger, req *model.DialogueTurnRequest, writes []model.MemoryWrite) {
	if len(writes) == 0 || o.pol.MaxMemoryWrites == 0 {
		return
	}
	if len(writes) > o.pol.MaxMemoryWrites {
		writes = writes[:o.pol.MaxMemoryWrites]
	}
	for _, w := range writes {
		rec := &model.MemoryRecord{
			CharacterID: req.CharacterID,
			PlayerID:    req.PlayerID,
			Text:        w.Text,
			Salience:    w.Salience,
			Private:     w.IsPrivate(),
			Keys:        w.Keys,
		}
		if _, err := o.store.Write(ctx, rec); err != nil {
			log.Error().Err(err).Msg("memory write failed")
			continue
		}
		log.Debug().
			Int64("memory_id", rec.ID).
			Int("salience", rec.Salience).
			Msg("memory written")
	}
}

func (o *Orchestrator) publishEvents(ctx context.Context, turnID string, req *model.DialogueTurnRequest, events []model.PublicEvent) {
	for _, ev := range events {
		o.events.Publish(ctx, worldevents.Event{
			TurnID:      turnID,
			CharacterID: req.CharacterID,
			PlayerID:    req.PlayerID,
			EventType:   ev.EventType,
			Payload:     ev.Payload,
			OccurredAt:  time.Now().UTC(),
		})
	}
}

// chunkRunes splits s into size-rune chunks, preserving multi-byte
// characters across chunk boundaries.
func chunkRunes(s string, size int) []string {
	runes := []rune(s)
	var out []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}
