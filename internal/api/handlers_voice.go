package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Yashasrn33/RPGAI/internal/api/respond"
	"github.com/Yashasrn33/RPGAI/internal/api/validate"
	"github.com/Yashasrn33/RPGAI/internal/model"
	"github.com/Yashasrn33/RPGAI/internal/voice"
)

// VoiceHandler serves the optional speech endpoints. Both dependencies may
// be nil when no Google API key is configured; the endpoints then answer
// 503 instead of being unrouted, so game clients get a stable error shape.
type VoiceHandler struct {
	synth voice.Synthesizer
	stt   voice.Transcriber
	media *voice.MediaStore
	log   zerolog.Logger
}

func NewVoiceHandler(synth voice.Synthesizer, stt voice.Transcriber, media *voice.MediaStore, log zerolog.Logger) *VoiceHandler {
	return &VoiceHandler{synth: synth, stt: stt, media: media, log: log.With().Str("component", "voice_api").Logger()}
}

// Synthesize POST /v1/voice/tts
func (h *VoiceHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	if h.synth == nil {
		respond.WriteServiceUnavailable(w, "voice synthesis is not configured")
		return
	}
	var req struct {
		SSML      string `json:"ssml"`
		VoiceName string `json:"voiceName,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.NonEmpty("ssml", req.SSML); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	url, err := h.renderToURL(r, req.SSML, req.VoiceName)
	if err != nil {
		h.log.Error().Err(err).Msg("tts failed")
		respond.WriteBadGateway(w, "speech synthesis failed")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"audioUrl": url})
}

// Speak POST /v1/voice/speak
//
// Convenience endpoint: builds prosody-wrapped SSML from plain text plus an
// emotion and style, picks the preset voice, and synthesizes in one call.
func (h *VoiceHandler) Speak(w http.ResponseWriter, r *http.Request) {
	if h.synth == nil {
		respond.WriteServiceUnavailable(w, "voice synthesis is not configured")
		return
	}
	var req struct {
		Text        string `json:"text"`
		Emotion     string `json:"emotion,omitempty"`
		SSMLStyle   string `json:"ssmlStyle,omitempty"`
		VoicePreset string `json:"voicePreset,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.NonEmpty("text", req.Text); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	emotion := model.EmotionNeutral
	if req.Emotion != "" {
		var err error
		if emotion, err = model.ParseEmotion(req.Emotion); err != nil {
			respond.WriteBadRequest(w, err.Error())
			return
		}
	}
	style := model.SSMLDefault
	if req.SSMLStyle != "" {
		var err error
		if style, err = model.ParseSSMLStyle(req.SSMLStyle); err != nil {
			respond.WriteBadRequest(w, err.Error())
			return
		}
	}

	ssml := voice.BuildSSML(req.Text, emotion, style)
	url, err := h.renderToURL(r, ssml, voice.VoiceForPreset(req.VoicePreset))
	if err != nil {
		h.log.Error().Err(err).Msg("speak failed")
		respond.WriteBadGateway(w, "speech synthesis failed")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"audioUrl": url, "ssml": ssml})
}

// Transcribe POST /v1/voice/stt
func (h *VoiceHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	if h.stt == nil {
		respond.WriteServiceUnavailable(w, "voice transcription is not configured")
		return
	}
	var req struct {
		AudioContent string `json:"audioContent"`
		Format       string `json:"format,omitempty"`
		LanguageCode string `json:"languageCode,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.NonEmpty("audioContent", req.AudioContent); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	audio, err := base64.StdEncoding.DecodeString(req.AudioContent)
	if err != nil {
		respond.WriteBadRequest(w, "audioContent must be base64 encoded")
		return
	}
	if req.Format == "" {
		req.Format = "wav"
	}
	if !voice.SupportedFormat(req.Format) {
		respond.WriteBadRequest(w, "unsupported audio format: "+req.Format)
		return
	}

	tr, err := h.stt.Transcribe(r.Context(), audio, req.Format, req.LanguageCode)
	if err != nil {
		h.log.Error().Err(err).Str("format", req.Format).Msg("stt failed")
		respond.WriteBadGateway(w, "speech recognition failed")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"text":       tr.Text,
		"confidence": tr.Confidence,
	})
}

// renderToURL synthesizes ssml and stores the MP3 under the media dir.
func (h *VoiceHandler) renderToURL(r *http.Request, ssml, voiceName string) (string, error) {
	audio, err := h.synth.Synthesize(r.Context(), ssml, voiceName)
	if err != nil {
		return "", err
	}
	return h.media.SaveMP3(audio)
}
