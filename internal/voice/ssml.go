package voice

import (
	"fmt"

	"github.com/Yashasrn33/RPGAI/internal/model"
)

// DefaultVoice is used when no preset or explicit voice name is given.
const DefaultVoice = "en-US-Neural2-C"

// voicePresets maps character archetype presets onto Cloud TTS voices.
var voicePresets = map[string]string{
	"feminine_calm":    "en-US-Neural2-C",
	"feminine_young":   "en-US-Neural2-F",
	"masculine_deep":   "en-US-Neural2-D",
	"masculine_casual": "en-US-Neural2-A",
	"elderly_wise":     "en-GB-Neural2-B",
	"mysterious":       "en-GB-Neural2-D",
}

// VoiceForPreset resolves a preset name to a Cloud voice, falling back to
// DefaultVoice for unknown or empty presets.
func VoiceForPreset(preset string) string {
	if v, ok := voicePresets[preset]; ok {
		return v
	}
	return DefaultVoice
}

// BuildSSML wraps text in a prosody envelope tuned first by emotion, then
// by style. Style wins over emotion wherever both set the same attribute.
func BuildSSML(text string, emotion model.Emotion, style model.SSMLStyle) string {
	rate, pitch, volume := "100%", "+0st", "medium"

	switch emotion {
	case model.EmotionAngry:
		rate, pitch, volume = "105%", "+2st", "loud"
	case model.EmotionHappy:
		rate, pitch = "105%", "+1st"
	case model.EmotionSad:
		rate, pitch, volume = "92%", "-1st", "soft"
	case model.EmotionFear:
		rate, pitch, volume = "110%", "+3st", "soft"
	case model.EmotionSurprised:
		rate, pitch = "108%", "+2st"
	case model.EmotionDisgust:
		rate, pitch = "95%", "-2st"
	}

	switch style {
	case model.SSMLWhispered:
		rate, volume = "95%", "x-soft"
	case model.SSMLShouted:
		rate, pitch, volume = "110%", "+3st", "x-loud"
	case model.SSMLUrgent:
		rate = "115%"
	case model.SSMLCalm:
		rate, pitch = "92%", "-1st"
	case model.SSMLNarration:
		rate = "98%"
	}

	return fmt.Sprintf("<speak>\n  <prosody rate=\"%s\" pitch=\"%s\" volume=\"%s\">\n    %s\n  </prosody>\n</speak>",
		rate, pitch, volume, text)
}
