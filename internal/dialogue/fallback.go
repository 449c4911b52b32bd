package dialogue

import "github.com/Yashasrn33/RPGAI/internal/model"

// Fallback replies keep a session conversational when the backend cannot
// be trusted for this turn. They are always neutral, carry no directive
// beyond "none", and never request memory writes or public events, so a
// degraded turn cannot mutate world state.

// MalformedFallback answers for backend output that was not JSON.
func MalformedFallback() *model.DialogueTurnResponse {
	return fallback("I... seem to have lost my words.")
}

// ContractFallback answers for JSON output that broke the response contract.
func ContractFallback() *model.DialogueTurnResponse {
	return fallback("Forgive me, I'm not feeling quite myself.")
}

// BackendFallback answers when the backend could not be reached at all.
func BackendFallback() *model.DialogueTurnResponse {
	return fallback("I... I cannot speak right now.")
}

func fallback(utterance string) *model.DialogueTurnResponse {
	return &model.DialogueTurnResponse{
		Utterance:         utterance,
		Emotion:           model.EmotionNeutral,
		BehaviorDirective: model.BehaviorNone,
	}
}
