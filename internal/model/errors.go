package model

import "errors"

var (
	// ErrInvalidSalience rejects memory writes with salience outside [0,3].
	ErrInvalidSalience = errors.New("salience must be between 0 and 3")

	// ErrInvalidRequest marks a client turn request that failed to decode
	// or validate. Surfaced to the client; the session closes without a turn.
	ErrInvalidRequest = errors.New("invalid dialogue turn request")

	// ErrBackendUnavailable marks a generation backend transport failure,
	// timeout, or empty reply. The turn degrades to a fallback final.
	ErrBackendUnavailable = errors.New("dialogue backend unavailable")

	// ErrStoreUnavailable marks a memory store failure during retrieval.
	// Fatal for the turn before generation begins.
	ErrStoreUnavailable = errors.New("memory store unavailable")
)
