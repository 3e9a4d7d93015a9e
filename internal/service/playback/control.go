// Package playback defines the Playback Control capability consumed by the
// command executor.
package playback

import "context"

// Control drives the underlying audio engine. Positions and deltas are in
// milliseconds. Every call may fail with a transport error; callers do not
// retry.
type Control interface {
	// Play starts or resumes playback.
	Play(ctx context.Context) error

	// Pause pauses playback. Pausing while paused is not an error.
	Pause(ctx context.Context) error

	// SeekTo moves the playhead to an absolute position.
	SeekTo(ctx context.Context, positionMs int64) error

	// SeekBy moves the playhead relative to its current position.
	SeekBy(ctx context.Context, deltaMs int64) error

	// SetRate changes the playback speed multiplier.
	SetRate(ctx context.Context, rate float64) error

	// JumpForward skips ahead by the engine's configured interval.
	JumpForward(ctx context.Context) error

	// JumpBackward skips back by the engine's configured interval.
	JumpBackward(ctx context.Context) error

	// Position returns the current playhead.
	Position(ctx context.Context) (int64, error)
}

// Progress is reported by engines that can push playhead changes.
type Progress struct {
	PositionMs int64
	DurationMs int64
	IsPlaying  bool
	Rate       float64
}
