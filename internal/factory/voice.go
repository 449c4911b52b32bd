package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Yashasrn33/RPGAI/internal/config"
	"github.com/Yashasrn33/RPGAI/internal/voice"
)

// NewVoice builds the optional speech components. Without a Google API key
// the synthesizer and transcriber are nil and the voice endpoints answer
// 503; the media store is always created so /media keeps serving old files.
func NewVoice(ctx context.Context, cfg *config.Config, log zerolog.Logger) (voice.Synthesizer, voice.Transcriber, *voice.MediaStore, error) {
	media, err := voice.NewMediaStore(cfg.MediaDir, cfg.MediaBaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create media store: %w", err)
	}

	if cfg.GoogleAPIKey == "" {
		log.Info().Msg("no Google API key; voice endpoints disabled")
		return nil, nil, media, nil
	}

	synth, err := voice.NewGoogleSynthesizer(ctx, cfg.GoogleAPIKey, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create synthesizer: %w", err)
	}
	stt, err := voice.NewGoogleTranscriber(ctx, cfg.GoogleAPIKey, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create transcriber: %w", err)
	}
	log.Info().Str("media_dir", cfg.MediaDir).Msg("voice synthesis ready")
	return synth, stt, media, nil
}
