package validate

import (
	"fmt"

	"github.com/Yashasrn33/RPGAI/internal/model"
)

// NonEmpty reports an error when a required string field is blank.
func NonEmpty(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

// MaxRunes rejects strings longer than limit runes. Rune counting keeps
// multi-byte player text from being over-penalized.
func MaxRunes(field, v string, limit int) error {
	if n := len([]rune(v)); n > limit {
		return fmt.Errorf("%s exceeds %d characters", field, limit)
	}
	return nil
}

// -------- Request specific helpers ----------

// TurnRequest validates the single inbound frame of a dialogue session.
// Violations surface to the client as "Invalid payload: <reason>".
func TurnRequest(req *model.DialogueTurnRequest) error {
	if req == nil {
		return fmt.Errorf("request body is required")
	}
	if err := NonEmpty("characterId", req.CharacterID); err != nil {
		return err
	}
	if err := NonEmpty("playerId", req.PlayerID); err != nil {
		return err
	}
	if req.PlayerText == nil {
		return fmt.Errorf("playerText is required")
	}
	if err := NonEmpty("persona.name", req.Persona.Name); err != nil {
		return err
	}
	if err := NonEmpty("persona.role", req.Persona.Role); err != nil {
		return err
	}
	if rep := req.Context.Reputation(); rep < model.MinReputation || rep > model.MaxReputation {
		return fmt.Errorf("context.playerReputation must be between %d and %d", model.MinReputation, model.MaxReputation)
	}
	if h := req.Context.Health(); h < 0 || h > 100 {
		return fmt.Errorf("context.characterHealth must be between 0 and 100")
	}
	if a := req.Context.Alertness(); a < 0 || a > 1 {
		return fmt.Errorf("context.characterAlertness must be between 0 and 1")
	}
	return nil
}

// MemoryWrite validates the POST /v1/memory/write request body.
func MemoryWrite(characterID, playerID, text string, salience int, keys []string) error {
	if err := NonEmpty("characterId", characterID); err != nil {
		return err
	}
	if err := NonEmpty("playerId", playerID); err != nil {
		return err
	}
	if err := NonEmpty("text", text); err != nil {
		return err
	}
	if !model.ValidSalience(salience) {
		return fmt.Errorf("salience must be between %d and %d", model.MinSalience, model.MaxSalience)
	}
	if len(keys) > model.MaxMemoryKeys {
		return fmt.Errorf("keys exceeds %d entries", model.MaxMemoryKeys)
	}
	return nil
}

// TopKQuery validates the GET /v1/memory/top query parameters.
func TopKQuery(characterID, playerID string, k int) error {
	if err := NonEmpty("characterId", characterID); err != nil {
		return err
	}
	if err := NonEmpty("playerId", playerID); err != nil {
		return err
	}
	if k < 1 || k > 100 {
		return fmt.Errorf("k must be between 1 and 100")
	}
	return nil
}

// DumpQuery validates the GET /v1/memory/all/{characterId} parameters.
func DumpQuery(characterID string, limit int) error {
	if err := NonEmpty("characterId", characterID); err != nil {
		return err
	}
	if limit < 1 || limit > 1000 {
		return fmt.Errorf("limit must be between 1 and 1000")
	}
	return nil
}
