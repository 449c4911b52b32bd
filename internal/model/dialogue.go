package model

import "fmt"

// Emotion is the closed set of emotional states a character reply may carry.
type Emotion string

const (
	EmotionNeutral   Emotion = "neutral"
	EmotionHappy     Emotion = "happy"
	EmotionAngry     Emotion = "angry"
	EmotionFear      Emotion = "fear"
	EmotionSad       Emotion = "sad"
	EmotionSurprised Emotion = "surprised"
	EmotionDisgust   Emotion = "disgust"
)

var emotions = []Emotion{
	EmotionNeutral, EmotionHappy, EmotionAngry, EmotionFear,
	EmotionSad, EmotionSurprised, EmotionDisgust,
}

// Emotions returns the allowed emotion values in a stable order.
func Emotions() []Emotion { return emotions }

// ParseEmotion maps s onto the closed emotion set.
func ParseEmotion(s string) (Emotion, error) {
	for _, e := range emotions {
		if s == string(e) {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown emotion %q", s)
}

// StyleTag is the closed set of speech style modifiers.
type StyleTag string

const (
	StyleFormal   StyleTag = "formal"
	StyleCasual   StyleTag = "casual"
	StyleWhisper  StyleTag = "whisper"
	StyleShout    StyleTag = "shout"
	StyleMystical StyleTag = "mystical"
	StyleGuarded  StyleTag = "guarded"
	StyleTeasing  StyleTag = "teasing"
	StyleUrgent   StyleTag = "urgent"
)

var styleTags = []StyleTag{
	StyleFormal, StyleCasual, StyleWhisper, StyleShout,
	StyleMystical, StyleGuarded, StyleTeasing, StyleUrgent,
}

// StyleTags returns the allowed style tag values in a stable order.
func StyleTags() []StyleTag { return styleTags }

// ParseStyleTag maps s onto the closed style tag set.
func ParseStyleTag(s string) (StyleTag, error) {
	for _, st := range styleTags {
		if s == string(st) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown style tag %q", s)
}

// BehaviorDirective is the closed set of actions a character may take.
type BehaviorDirective string

const (
	BehaviorNone       BehaviorDirective = "none"
	BehaviorApproach   BehaviorDirective = "approach"
	BehaviorStepBack   BehaviorDirective = "step_back"
	BehaviorFlee       BehaviorDirective = "flee"
	BehaviorAttack     BehaviorDirective = "attack"
	BehaviorCallGuard  BehaviorDirective = "call_guard"
	BehaviorGiveItem   BehaviorDirective = "give_item"
	BehaviorStartQuest BehaviorDirective = "start_quest"
	BehaviorOpenShop   BehaviorDirective = "open_shop"
	BehaviorHealPlayer BehaviorDirective = "heal_player"
)

var behaviorDirectives = []BehaviorDirective{
	BehaviorNone, BehaviorApproach, BehaviorStepBack, BehaviorFlee,
	BehaviorAttack, BehaviorCallGuard, BehaviorGiveItem,
	BehaviorStartQuest, BehaviorOpenShop, BehaviorHealPlayer,
}

// BehaviorDirectives returns the allowed directive values in a stable order.
func BehaviorDirectives() []BehaviorDirective { return behaviorDirectives }

// ParseBehaviorDirective maps s onto the closed directive set.
func ParseBehaviorDirective(s string) (BehaviorDirective, error) {
	for _, b := range behaviorDirectives {
		if s == string(b) {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown behavior directive %q", s)
}

// SSMLStyle is the closed set of speech rendering styles.
type SSMLStyle string

const (
	SSMLDefault   SSMLStyle = "default"
	SSMLNarration SSMLStyle = "narration"
	SSMLWhispered SSMLStyle = "whispered"
	SSMLShouted   SSMLStyle = "shouted"
	SSMLUrgent    SSMLStyle = "urgent"
	SSMLCalm      SSMLStyle = "calm"
)

var ssmlStyles = []SSMLStyle{
	SSMLDefault, SSMLNarration, SSMLWhispered,
	SSMLShouted, SSMLUrgent, SSMLCalm,
}

// SSMLStyles returns the allowed SSML style values in a stable order.
func SSMLStyles() []SSMLStyle { return ssmlStyles }

// ParseSSMLStyle maps s onto the closed SSML style set.
func ParseSSMLStyle(s string) (SSMLStyle, error) {
	for _, st := range ssmlStyles {
		if s == string(st) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown ssml style %q", s)
}

// Persona describes the character the dialogue backend must embody.
type Persona struct {
	Name      string   `json:"name"`
	Role      string   `json:"role"`
	Values    []string `json:"values"`
	Quirks    []string `json:"quirks"`
	Backstory []string `json:"backstory"`
}

// GameContext carries situational state for one turn. Numeric fields are
// pointers so that absent values take the documented defaults instead of
// the zero value.
type GameContext struct {
	Scene              string   `json:"scene"`
	TimeOfDay          string   `json:"timeOfDay"`
	Weather            string   `json:"weather"`
	LastPlayerAction   string   `json:"lastPlayerAction,omitempty"`
	PlayerReputation   *int     `json:"playerReputation,omitempty"`
	CharacterHealth    *int     `json:"characterHealth,omitempty"`
	CharacterAlertness *float64 `json:"characterAlertness,omitempty"`
}

// Reputation bounds for GameContext.
const (
	MinReputation = -10
	MaxReputation = 20
)

// Reputation returns the player reputation, defaulting to 0.
func (c *GameContext) Reputation() int {
	if c.PlayerReputation == nil {
		return 0
	}
	return *c.PlayerReputation
}

// Health returns the character health, defaulting to 100.
func (c *GameContext) Health() int {
	if c.CharacterHealth == nil {
		return 100
	}
	return *c.CharacterHealth
}

// Alertness returns the character alertness, defaulting to 0.
func (c *GameContext) Alertness() float64 {
	if c.CharacterAlertness == nil {
		return 0
	}
	return *c.CharacterAlertness
}

// DialogueTurnRequest is the single client message opening a turn.
// PlayerText is a pointer so a missing key can be told apart from an
// intentionally empty utterance.
type DialogueTurnRequest struct {
	CharacterID string      `json:"characterId"`
	PlayerID    string      `json:"playerId"`
	PlayerText  *string     `json:"playerText"`
	Persona     Persona     `json:"persona"`
	Context     GameContext `json:"context"`
}

// Text returns the player utterance, empty when absent.
func (r *DialogueTurnRequest) Text() string {
	if r.PlayerText == nil {
		return ""
	}
	return *r.PlayerText
}

// MemoryWrite is one memory the backend asks to persist. Private defaults
// to true when omitted.
type MemoryWrite struct {
	Salience int      `json:"salience"`
	Text     string   `json:"text"`
	Keys     []string `json:"keys,omitempty"`
	Private  *bool    `json:"private,omitempty"`
}

// IsPrivate reports the effective privacy flag.
func (w MemoryWrite) IsPrivate() bool {
	return w.Private == nil || *w.Private
}

// PublicEvent is a world event other characters may observe.
type PublicEvent struct {
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// VoiceHint carries speech synthesis hints for the reply.
type VoiceHint struct {
	VoicePreset string    `json:"voice_preset,omitempty"`
	SSMLStyle   SSMLStyle `json:"ssml_style,omitempty"`
}

// Response limits enforced by the output contract.
const (
	MaxUtteranceLen    = 320
	MaxStyleTags       = 3
	MaxMemoryWriteList = 2
	MaxPublicEvents    = 1
)

// DialogueTurnResponse is a validated structured reply. Field names follow
// the generation contract exactly; optional fields are omitted when empty.
type DialogueTurnResponse struct {
	Utterance         string            `json:"utterance"`
	Emotion           Emotion           `json:"emotion"`
	StyleTags         []StyleTag        `json:"style_tags,omitempty"`
	BehaviorDirective BehaviorDirective `json:"behavior_directive"`
	MemoryWrites      []MemoryWrite     `json:"memory_writes,omitempty"`
	PublicEvents      []PublicEvent     `json:"public_events,omitempty"`
	VoiceHint         *VoiceHint        `json:"voice_hint,omitempty"`
}
