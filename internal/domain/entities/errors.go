package entities

import "errors"

// Domain errors
var (
	// Meeting errors
	ErrMeetingNotFound   = errors.New("meeting not found")
	ErrInvalidTransition = errors.New("invalid meeting transition")

	// Agent errors
	ErrAgentNotFound = errors.New("agent not found")

	// Job errors
	ErrJobNotFound = errors.New("job not found")

	// Webhook payload errors
	ErrMissingMeetingID = errors.New("missing meeting id")

	// Chat errors
	ErrEmptyCompletion = errors.New("empty completion from model")
)
