package model

import "github.com/rotisserie/eris"

// Sentinel errors surfaced across the store and pricing boundaries.
// Callers check them with eris.Is.
var (
	// ErrValidation marks out-of-domain input. Inputs are rejected, never
	// silently clamped.
	ErrValidation = eris.New("validation failed")

	// ErrNotFound marks a store operation referencing an absent lead id.
	ErrNotFound = eris.New("lead not found")
)
