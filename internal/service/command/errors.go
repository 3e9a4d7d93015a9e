package command

import (
	"fmt"

	"podcast-voice-service/internal/models"
)

// CapabilityError reports a Playback Control or Application State failure.
// The failure has already been recorded in history when it is returned.
type CapabilityError struct {
	Intent models.IntentType
	Err    error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s: %v", e.Intent, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }
