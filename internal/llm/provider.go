package llm

import "context"

// Provider is a structured dialogue generation backend.
//
// GenerateTurn submits one composed prompt and returns the raw model text,
// which should be a JSON document matching the dialogue response contract.
// Providers never validate that contract; the dialogue validator is the
// sole authority on it. Unreachable or misbehaving backends are reported
// as errors wrapping model.ErrBackendUnavailable.
type Provider interface {
	GenerateTurn(ctx context.Context, prompt string) (string, error)

	// HealthPing returns nil when the backend is reachable.
	HealthPing(ctx context.Context) error
}
