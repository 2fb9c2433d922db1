package weather

import "errors"

var (
	// ErrUnknownResort is returned when a resort identifier is not in the registry.
	ErrUnknownResort = errors.New("unknown resort")

	// ErrUpstream covers network failures, timeouts and malformed payloads from the weather source.
	ErrUpstream = errors.New("weather source unavailable")

	// ErrValidation is returned when required scoring inputs are missing or malformed.
	ErrValidation = errors.New("invalid input")

	// ErrNoResults is returned when a ranking pass produced no resort at all.
	ErrNoResults = errors.New("no resort could be scored")
)
