package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Yashasrn33/RPGAI/internal/api/respond"
	"github.com/Yashasrn33/RPGAI/internal/api/validate"
	"github.com/Yashasrn33/RPGAI/internal/model"
	"github.com/Yashasrn33/RPGAI/internal/store"
)

// Query parameter defaults for the memory read endpoints.
const (
	defaultTopK      = 3
	defaultDumpLimit = 100
)

// MemoryHandler serves the memory inspection and write endpoints. Game
// servers use these to seed memories and debug what an NPC knows.
type MemoryHandler struct {
	store store.MemoryStore
	log   zerolog.Logger
}

func NewMemoryHandler(st store.MemoryStore, log zerolog.Logger) *MemoryHandler {
	return &MemoryHandler{store: st, log: log.With().Str("component", "memory_api").Logger()}
}

// WriteMemory POST /v1/memory/write
func (h *MemoryHandler) WriteMemory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CharacterID string   `json:"characterId"`
		PlayerID    string   `json:"playerId"`
		Text        string   `json:"text"`
		Salience    int      `json:"salience"`
		Keys        []string `json:"keys,omitempty"`
		Private     *bool    `json:"private,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.MemoryWrite(req.CharacterID, req.PlayerID, req.Text, req.Salience, req.Keys); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	private := true
	if req.Private != nil {
		private = *req.Private
	}
	rec := &model.MemoryRecord{
		CharacterID: req.CharacterID,
		PlayerID:    req.PlayerID,
		Text:        req.Text,
		Salience:    req.Salience,
		Keys:        req.Keys,
		Private:     private,
	}
	id, err := h.store.Write(r.Context(), rec)
	if err != nil {
		if errors.Is(err, model.ErrInvalidSalience) {
			respond.WriteBadRequest(w, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("memory write failed")
		respond.WriteInternalError(w, "memory write failed")
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{"ok": true, "id": id})
}

// TopMemories GET /v1/memory/top?characterId=...&playerId=...&k=3
func (h *MemoryHandler) TopMemories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	characterID := q.Get("characterId")
	playerID := q.Get("playerId")

	k := defaultTopK
	if s := q.Get("k"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			respond.WriteBadRequest(w, "k must be an integer")
			return
		}
		k = n
	}
	if err := validate.TopKQuery(characterID, playerID, k); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	memories, err := h.store.TopK(r.Context(), characterID, playerID, k, model.MinSalience)
	if err != nil {
		h.log.Error().Err(err).Msg("memory retrieval failed")
		respond.WriteInternalError(w, "memory retrieval failed")
		return
	}
	if memories == nil {
		memories = []*model.MemoryRecord{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"memories": memories})
}

// DumpMemories GET /v1/memory/all/{characterId}?playerId=...&limit=100
func (h *MemoryHandler) DumpMemories(w http.ResponseWriter, r *http.Request) {
	characterID := mux.Vars(r)["characterId"]
	q := r.URL.Query()

	limit := defaultDumpLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			respond.WriteBadRequest(w, "limit must be an integer")
			return
		}
		limit = n
	}
	if err := validate.DumpQuery(characterID, limit); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	var playerID *string
	if s := q.Get("playerId"); s != "" {
		playerID = &s
	}

	memories, err := h.store.AllFor(r.Context(), characterID, playerID, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("memory dump failed")
		respond.WriteInternalError(w, "memory dump failed")
		return
	}
	if memories == nil {
		memories = []*model.MemoryRecord{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"characterId": characterID,
		"count":       len(memories),
		"memories":    memories,
	})
}
