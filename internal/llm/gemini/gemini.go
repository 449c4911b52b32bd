package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/Yashasrn33/RPGAI/internal/llm"
	"github.com/Yashasrn33/RPGAI/internal/model"
)

// Settings configures the Gemini REST client.
type Settings struct {
	BaseURL           string
	APIKey            string
	Model             string
	SystemInstruction string
	Temperature       float64
	TopP              float64
	MaxOutputTokens   int
	Timeout           time.Duration
}

// Client calls the generativelanguage REST API. Structured output is
// requested through responseMimeType + responseSchema; the dialogue
// validator downstream remains the authority on the response contract.
type Client struct {
	http   *resty.Client
	model  string
	system string
	gen    generationConfig
	log    zerolog.Logger
}

var _ llm.Provider = (*Client)(nil)

// New builds a client for the configured model.
func New(s Settings, log zerolog.Logger) (*Client, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if s.Model == "" {
		return nil, fmt.Errorf("gemini model is required")
	}
	base := s.BaseURL
	if base == "" {
		base = "https://generativelanguage.googleapis.com"
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := resty.New().
		SetBaseURL(base).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", s.APIKey).
		SetTimeout(timeout)

	return &Client{
		http:   c,
		model:  s.Model,
		system: s.SystemInstruction,
		gen: generationConfig{
			Temperature:      s.Temperature,
			TopP:             s.TopP,
			MaxOutputTokens:  s.MaxOutputTokens,
			ResponseMIMEType: "application/json",
			ResponseSchema:   dialogueSchema(),
		},
		log: log.With().Str("component", "gemini").Logger(),
	}, nil
}

// --- wire types (generativelanguage v1beta) ---

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMIMEType string  `json:"responseMimeType"`
	ResponseSchema   *schema `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason,omitempty"`
	} `json:"candidates"`
}

func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// GenerateTurn implements llm.Provider. Transport failures, non-200
// statuses and empty completions all wrap model.ErrBackendUnavailable so
// the orchestrator can degrade to a fallback reply.
func (c *Client) GenerateTurn(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: c.gen,
	}
	if c.system != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: c.system}}}
	}

	var out generateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&req).
		SetResult(&out).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", c.model))
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrBackendUnavailable, err)
	}

	c.log.Debug().
		Int("status", resp.StatusCode()).
		Dur("latency", resp.Time()).
		Msg("generateContent call")

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", model.ErrBackendUnavailable, resp.StatusCode(), resp.String())
	}
	text := out.text()
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", model.ErrBackendUnavailable)
	}
	return text, nil
}

// HealthPing verifies the configured model is visible with this key.
func (c *Client) HealthPing(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/v1beta/models/%s", c.model))
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("gemini model probe: status %d", resp.StatusCode())
	}
	return nil
}
