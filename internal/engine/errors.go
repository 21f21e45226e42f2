package engine

import "errors"

// Errors returned by engine operations.
var (
	// ErrInvalidLimit indicates a non-positive version or checkpoint limit.
	ErrInvalidLimit = errors.New("invalid limit")

	// ErrInvalidInterval indicates a negative auto-save interval.
	ErrInvalidInterval = errors.New("invalid auto-save interval")

	// ErrUnitNotFound indicates no history exists for a slide.
	ErrUnitNotFound = errors.New("unit not found")

	// ErrVersionNotFound indicates a version index is outside a slide's history.
	ErrVersionNotFound = errors.New("version not found")

	// ErrSaveFailed indicates the persistence adapter rejected a save.
	ErrSaveFailed = errors.New("save failed")
)
