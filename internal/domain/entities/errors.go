package entities

import "errors"

// Domain errors
var (
	// Action item errors
	ErrActionNotFound  = errors.New("action item not found")
	ErrActionFinalized = errors.New("action item already finalized")
	ErrInvalidStatus   = errors.New("invalid action status")

	// Destination resolution errors. These are lookup misses, never
	// transient failures; callers treat them as "skip this recipient".
	ErrChannelNotFound = errors.New("channel not found")
	ErrUserNotFound    = errors.New("no user for email")

	// Summary errors
	ErrSummaryNotFound = errors.New("meeting summary not found")

	// Generic errors
	ErrInvalidRequest = errors.New("invalid request")
)
