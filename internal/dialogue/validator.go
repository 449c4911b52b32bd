package dialogue

import (
	"encoding/json"
	"fmt"

	"github.com/Yashasrn33/RPGAI/internal/model"
)

// FailureKind classifies why a backend payload was rejected.
type FailureKind string

const (
	// MalformedEncoding: the payload is not parseable JSON at all.
	MalformedEncoding FailureKind = "malformed_encoding"
	// ContractViolation: parseable JSON that breaks the response contract.
	ContractViolation FailureKind = "contract_violation"
)

// ContractError reports one rejected backend payload. Field is empty when
// the violation is not attributable to a single field.
type ContractError struct {
	Kind   FailureKind
	Field  string
	Reason string
}

func (e *ContractError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func malformed(reason string) *ContractError {
	return &ContractError{Kind: MalformedEncoding, Reason: reason}
}

func violation(field, reason string) *ContractError {
	return &ContractError{Kind: ContractViolation, Field: field, Reason: reason}
}

// responseFields is the closed set of top-level response keys.
var responseFields = map[string]struct{}{
	"utterance":          {},
	"emotion":            {},
	"style_tags":         {},
	"behavior_directive": {},
	"memory_writes":      {},
	"public_events":      {},
	"voice_hint":         {},
}

// ValidateResponse checks one raw backend payload against the response
// contract and returns the typed response on success. The validator never
// repairs a payload: anything out of contract is rejected so the caller
// can substitute a fallback reply.
//
// The two failure kinds drive different fallbacks upstream, so the
// classification is deliberate: encoding problems (not JSON at all) are
// MalformedEncoding; everything else, including wrong JSON types, unknown
// top-level fields, and constraint breaches, is ContractViolation.
func ValidateResponse(raw string) (*model.DialogueTurnResponse, *ContractError) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &top); err != nil {
		if _, ok := err.(*json.SyntaxError); ok {
			return nil, malformed(err.Error())
		}
		return nil, violation("", "response must be a JSON object")
	}
	if top == nil {
		return nil, violation("", "response must be a JSON object")
	}

	for key := range top {
		if _, ok := responseFields[key]; !ok {
			return nil, violation(key, "unknown field")
		}
	}

	var resp model.DialogueTurnResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		if typeErr, ok := err.(*json.UnmarshalTypeError); ok {
			return nil, violation(typeErr.Field, fmt.Sprintf("cannot be %s", typeErr.Value))
		}
		return nil, violation("", err.Error())
	}

	if _, ok := top["utterance"]; !ok {
		return nil, violation("utterance", "is required")
	}
	if resp.Utterance == "" {
		return nil, violation("utterance", "is required")
	}
	if n := len([]rune(resp.Utterance)); n > model.MaxUtteranceLen {
		return nil, violation("utterance", fmt.Sprintf("exceeds %d characters", model.MaxUtteranceLen))
	}

	if _, ok := top["emotion"]; !ok {
		return nil, violation("emotion", "is required")
	}
	if _, err := model.ParseEmotion(string(resp.Emotion)); err != nil {
		return nil, violation("emotion", err.Error())
	}

	if _, ok := top["behavior_directive"]; !ok {
		return nil, violation("behavior_directive", "is required")
	}
	if _, err := model.ParseBehaviorDirective(string(resp.BehaviorDirective)); err != nil {
		return nil, violation("behavior_directive", err.Error())
	}

	if len(resp.StyleTags) > model.MaxStyleTags {
		return nil, violation("style_tags", fmt.Sprintf("exceeds %d entries", model.MaxStyleTags))
	}
	for _, tag := range resp.StyleTags {
		if _, err := model.ParseStyleTag(string(tag)); err != nil {
			return nil, violation("style_tags", err.Error())
		}
	}

	if len(resp.MemoryWrites) > model.MaxMemoryWriteList {
		return nil, violation("memory_writes", fmt.Sprintf("exceeds %d entries", model.MaxMemoryWriteList))
	}
	for i, w := range resp.MemoryWrites {
		field := fmt.Sprintf("memory_writes[%d]", i)
		if !model.ValidSalience(w.Salience) {
			return nil, violation(field+".salience", fmt.Sprintf("must be between %d and %d", model.MinSalience, model.MaxSalience))
		}
		if w.Text == "" {
			return nil, violation(field+".text", "is required")
		}
		if n := len([]rune(w.Text)); n > model.MaxMemoryTextLen {
			return nil, violation(field+".text", fmt.Sprintf("exceeds %d characters", model.MaxMemoryTextLen))
		}
		if len(w.Keys) > model.MaxMemoryKeys {
			return nil, violation(field+".keys", fmt.Sprintf("exceeds %d entries", model.MaxMemoryKeys))
		}
	}

	if len(resp.PublicEvents) > model.MaxPublicEvents {
		return nil, violation("public_events", fmt.Sprintf("exceeds %d entries", model.MaxPublicEvents))
	}
	for i, ev := range resp.PublicEvents {
		if ev.EventType == "" {
			return nil, violation(fmt.Sprintf("public_events[%d].event_type", i), "is required")
		}
	}

	if resp.VoiceHint != nil && resp.VoiceHint.SSMLStyle != "" {
		if _, err := model.ParseSSMLStyle(string(resp.VoiceHint.SSMLStyle)); err != nil {
			return nil, violation("voice_hint.ssml_style", err.Error())
		}
	}

	return &resp, nil
}
