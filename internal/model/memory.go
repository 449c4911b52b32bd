package model

// Memory record limits. Text over MaxMemoryTextLen is truncated at write
// time, never rejected; salience outside [MinSalience, MaxSalience] is
// rejected, never clamped.
const (
	MaxMemoryTextLen = 160
	MinSalience      = 0
	MaxSalience      = 3
	MaxMemoryKeys    = 4
)

// MemoryRecord is one durable fact about a (character, player) relationship.
// Records are immutable once written; the store assigns ID and, when
// CreatedAt is zero, the write timestamp.
type MemoryRecord struct {
	ID          int64    `json:"id"`
	CharacterID string   `json:"characterId"`
	PlayerID    string   `json:"playerId"`
	Text        string   `json:"text"`
	Salience    int      `json:"salience"`
	Private     bool     `json:"private"`
	Keys        []string `json:"keys,omitempty"`
	CreatedAt   int64    `json:"createdAt"`
}

// ValidSalience reports whether n is inside the allowed salience range.
func ValidSalience(n int) bool {
	return n >= MinSalience && n <= MaxSalience
}

// TruncateMemoryText caps s at MaxMemoryTextLen characters.
func TruncateMemoryText(s string) string {
	r := []rune(s)
	if len(r) <= MaxMemoryTextLen {
		return s
	}
	return string(r[:MaxMemoryTextLen])
}
