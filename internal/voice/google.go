package voice

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	speech "google.golang.org/api/speech/v1"
	texttospeech "google.golang.org/api/texttospeech/v1"
)

// Synthesizer renders an SSML document into MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, ssml, voiceName string) ([]byte, error)
}

// Transcript is one recognized utterance.
type Transcript struct {
	Text       string
	Confidence float64
}

// Transcriber converts recorded player speech to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format, languageCode string) (Transcript, error)
}

// encodings maps audio container formats onto Cloud Speech encodings.
var encodings = map[string]string{
	"wav":  "LINEAR16",
	"mp3":  "MP3",
	"flac": "FLAC",
	"ogg":  "OGG_OPUS",
	"webm": "WEBM_OPUS",
}

// SupportedFormat reports whether the audio container format is accepted
// for transcription.
func SupportedFormat(format string) bool {
	_, ok := encodings[strings.ToLower(format)]
	return ok
}

// GoogleSynthesizer calls the Cloud Text-to-Speech REST API.
type GoogleSynthesizer struct {
	svc *texttospeech.Service
	log zerolog.Logger
}

// NewGoogleSynthesizer builds a synthesizer authenticated with an API key.
func NewGoogleSynthesizer(ctx context.Context, apiKey string, log zerolog.Logger) (*GoogleSynthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	svc, err := texttospeech.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create texttospeech service: %w", err)
	}
	return &GoogleSynthesizer{svc: svc, log: log.With().Str("component", "tts").Logger()}, nil
}

// Synthesize renders ssml with the given voice and returns MP3 bytes.
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, ssml, voiceName string) ([]byte, error) {
	if voiceName == "" {
		voiceName = DefaultVoice
	}
	resp, err := g.svc.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Ssml: ssml},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: languageFromVoice(voiceName),
			Name:         voiceName,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: "MP3",
			SpeakingRate:  1.0,
		},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio content: %w", err)
	}
	g.log.Debug().Str("voice", voiceName).Int("bytes", len(audio)).Msg("synthesized speech")
	return audio, nil
}

// GoogleTranscriber calls the Cloud Speech-to-Text REST API.
type GoogleTranscriber struct {
	svc *speech.Service
	log zerolog.Logger
}

// NewGoogleTranscriber builds a transcriber authenticated with an API key.
func NewGoogleTranscriber(ctx context.Context, apiKey string, log zerolog.Logger) (*GoogleTranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	svc, err := speech.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create speech service: %w", err)
	}
	return &GoogleTranscriber{svc: svc, log: log.With().Str("component", "stt").Logger()}, nil
}

// Transcribe recognizes speech in the given audio clip. format names the
// container ("wav", "mp3", "flac", "ogg", "webm"); the sample rate is read
// from the audio headers.
func (g *GoogleTranscriber) Transcribe(ctx context.Context, audio []byte, format, languageCode string) (Transcript, error) {
	encoding, ok := encodings[strings.ToLower(format)]
	if !ok {
		return Transcript{}, fmt.Errorf("unsupported audio format %q", format)
	}
	if languageCode == "" {
		languageCode = "en-US"
	}
	resp, err := g.svc.Speech.Recognize(&speech.RecognizeRequest{
		Config: &speech.RecognitionConfig{
			Encoding:                   encoding,
			LanguageCode:               languageCode,
			EnableAutomaticPunctuation: true,
			Model:                      "default",
		},
		Audio: &speech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(audio),
		},
	}).Context(ctx).Do()
	if err != nil {
		return Transcript{}, fmt.Errorf("recognize speech: %w", err)
	}
	if len(resp.Results) == 0 || len(resp.Results[0].Alternatives) == 0 {
		return Transcript{}, fmt.Errorf("no speech recognized")
	}
	alt := resp.Results[0].Alternatives[0]
	g.log.Debug().Str("format", format).Float64("confidence", alt.Confidence).Msg("transcribed speech")
	return Transcript{Text: alt.Transcript, Confidence: alt.Confidence}, nil
}

// languageFromVoice derives the language code from a voice name such as
// "en-GB-Neural2-B".
func languageFromVoice(voiceName string) string {
	parts := strings.SplitN(voiceName, "-", 3)
	if len(parts) >= 2 {
		return parts[0] + "-" + parts[1]
	}
	return "en-US"
}
