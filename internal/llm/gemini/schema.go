package gemini

import "github.com/Yashasrn33/RPGAI/internal/model"

// schema mirrors the generativelanguage Schema message, an OpenAPI 3.0
// subset. Proto int64 fields marshal as JSON strings.
type schema struct {
	Type             string             `json:"type,omitempty"`
	Description      string             `json:"description,omitempty"`
	Enum             []string           `json:"enum,omitempty"`
	MaxLength        int64              `json:"maxLength,omitempty,string"`
	Minimum          *float64           `json:"minimum,omitempty"`
	Maximum          *float64           `json:"maximum,omitempty"`
	MaxItems         int64              `json:"maxItems,omitempty,string"`
	Items            *schema            `json:"items,omitempty"`
	Properties       map[string]*schema `json:"properties,omitempty"`
	Required         []string           `json:"required,omitempty"`
	PropertyOrdering []string           `json:"propertyOrdering,omitempty"`
}

// dialogueSchema is the structured-output contract sent with every
// generateContent call. Enum lists derive from the model package so the
// upstream schema can never drift from the local validator.
func dialogueSchema() *schema {
	return &schema{
		Type:     "OBJECT",
		Required: []string{"utterance", "emotion", "behavior_directive"},
		PropertyOrdering: []string{
			"utterance", "emotion", "style_tags", "behavior_directive",
			"memory_writes", "public_events", "voice_hint",
		},
		Properties: map[string]*schema{
			"utterance": {
				Type:        "STRING",
				MaxLength:   model.MaxUtteranceLen,
				Description: "The NPC's spoken response (1-3 sentences)",
			},
			"emotion": {
				Type:        "STRING",
				Enum:        names(model.Emotions()),
				Description: "Current emotional state",
			},
			"style_tags": {
				Type:        "ARRAY",
				MaxItems:    model.MaxStyleTags,
				Items:       &schema{Type: "STRING", Enum: names(model.StyleTags())},
				Description: "Speech style modifiers",
			},
			"behavior_directive": {
				Type:        "STRING",
				Enum:        names(model.BehaviorDirectives()),
				Description: "Action the NPC should perform",
			},
			"memory_writes": {
				Type:     "ARRAY",
				MaxItems: model.MaxMemoryWriteList,
				Items: &schema{
					Type:     "OBJECT",
					Required: []string{"salience", "text"},
					Properties: map[string]*schema{
						"salience": {
							Type:        "INTEGER",
							Minimum:     f64(model.MinSalience),
							Maximum:     f64(model.MaxSalience),
							Description: "Memory importance (0=trivial, 3=critical)",
						},
						"text": {
							Type:        "STRING",
							MaxLength:   model.MaxMemoryTextLen,
							Description: "What to remember",
						},
						"keys": {
							Type:        "ARRAY",
							MaxItems:    model.MaxMemoryKeys,
							Items:       &schema{Type: "STRING"},
							Description: "Search keywords",
						},
						"private": {
							Type:        "BOOLEAN",
							Description: "Whether only this NPC knows this",
						},
					},
				},
				Description: "Notable events to store in memory",
			},
			"public_events": {
				Type:     "ARRAY",
				MaxItems: model.MaxPublicEvents,
				Items: &schema{
					Type:     "OBJECT",
					Required: []string{"event_type"},
					Properties: map[string]*schema{
						"event_type": {
							Type:        "STRING",
							Description: "Type of world event (e.g., 'crime_witnessed')",
						},
						"payload": {
							Type:        "OBJECT",
							Description: "Event-specific data",
						},
					},
				},
				Description: "Events visible to other NPCs",
			},
			"voice_hint": {
				Type: "OBJECT",
				Properties: map[string]*schema{
					"voice_preset": {
						Type:        "STRING",
						Description: "Voice character name",
					},
					"ssml_style": {
						Type:        "STRING",
						Enum:        names(model.SSMLStyles()),
						Description: "SSML rendering style",
					},
				},
				Description: "TTS voice configuration hints",
			},
		},
	}
}

func names[T ~string](vals []T) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}

func f64(v float64) *float64 { return &v }
