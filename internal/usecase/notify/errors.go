package notify

import "errors"

// Sentinel errors for notify use case operations.
var (
	// ErrChannelDisabled indicates that Send() was called on a disabled channel.
	ErrChannelDisabled = errors.New("channel is disabled")

	// ErrInvalidUpdate indicates that the link update is nil or incomplete.
	ErrInvalidUpdate = errors.New("invalid link update")
)
