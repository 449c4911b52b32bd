package factory

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Yashasrn33/RPGAI/internal/config"
	"github.com/Yashasrn33/RPGAI/internal/dialogue"
	"github.com/Yashasrn33/RPGAI/internal/llm"
	"github.com/Yashasrn33/RPGAI/internal/llm/gemini"
)

// NewProvider builds the Gemini generation backend with the dialogue
// system instruction and the configured sampling parameters.
func NewProvider(cfg *config.Config, log zerolog.Logger) (llm.Provider, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("RPGAI_GEMINI_API_KEY is required")
	}
	client, err := gemini.New(gemini.Settings{
		BaseURL:           cfg.GeminiBaseURL,
		APIKey:            cfg.GeminiAPIKey,
		Model:             cfg.GeminiModel,
		SystemInstruction: dialogue.SystemInstruction,
		Temperature:       cfg.Temperature,
		TopP:              cfg.TopP,
		MaxOutputTokens:   cfg.MaxOutputTokens,
		Timeout:           cfg.GenerateTimeout(),
	}, log)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	log.Info().Str("model", cfg.GeminiModel).Msg("generation backend ready")
	return client, nil
}
