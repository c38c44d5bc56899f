package services

import "errors"

var (
	// ErrNotFound indicates a referenced customer, RM, email or task does not exist
	ErrNotFound = errors.New("not found")

	// ErrContentGeneration indicates the language model returned an empty,
	// unparseable or otherwise unusable completion
	ErrContentGeneration = errors.New("content generation failed")

	// ErrRunInProgress indicates another generation run currently holds the lock
	ErrRunInProgress = errors.New("generation run already in progress")
)
