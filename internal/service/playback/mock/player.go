// Package mock provides a simulated audio engine for running the voice
// pipeline without a real player.
// Position is clamped to [0, duration] and advances in real time while
// playing when Run is active.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"podcast-voice-service/internal/service/playback"
)

// DefaultJumpInterval matches the seek interval of common podcast players.
const DefaultJumpInterval int64 = 15000

// Call is one recorded capability invocation.
type Call struct {
	Method string
	Arg    any
}

// Player implements playback.Control in memory.
type Player struct {
	mu           sync.Mutex
	position     int64
	duration     int64
	rate         float64
	playing      bool
	jumpInterval int64
	err          error // Returned by every call while set
	calls        []Call
	onProgress   func(playback.Progress)
}

var _ playback.Control = (*Player)(nil)

// New creates a paused player at position 0 for an episode of durationMs.
func New(durationMs int64) *Player {
	return &Player{
		duration:     durationMs,
		rate:         1.0,
		jumpInterval: DefaultJumpInterval,
	}
}

// SetJumpInterval changes the JumpForward/JumpBackward distance.
func (p *Player) SetJumpInterval(ms int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jumpInterval = ms
}

// SetDuration changes the episode length, clamping the playhead.
func (p *Player) SetDuration(ms int64) {
	p.mu.Lock()
	p.duration = ms
	p.position = p.clamp(p.position)
	progress := p.progressLocked()
	cb := p.onProgress
	p.mu.Unlock()

	if cb != nil {
		cb(progress)
	}
}

// FailWith makes every subsequent call return err. nil restores normal behaviour.
func (p *Player) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// OnProgress registers a hook invoked after every state change.
func (p *Player) OnProgress(fn func(playback.Progress)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onProgress = fn
}

// Play starts playback.
func (p *Player) Play(ctx context.Context) error {
	return p.do("Play", nil, func() { p.playing = true })
}

// Pause pauses playback.
func (p *Player) Pause(ctx context.Context) error {
	return p.do("Pause", nil, func() { p.playing = false })
}

// SeekTo moves the playhead to positionMs.
func (p *Player) SeekTo(ctx context.Context, positionMs int64) error {
	return p.do("SeekTo", positionMs, func() { p.position = p.clamp(positionMs) })
}

// SeekBy moves the playhead by deltaMs.
func (p *Player) SeekBy(ctx context.Context, deltaMs int64) error {
	return p.do("SeekBy", deltaMs, func() { p.position = p.clamp(p.position + deltaMs) })
}

// SetRate changes the playback speed.
func (p *Player) SetRate(ctx context.Context, rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("invalid playback rate %v", rate)
	}
	return p.do("SetRate", rate, func() { p.rate = rate })
}

// JumpForward skips ahead by the jump interval.
func (p *Player) JumpForward(ctx context.Context) error {
	return p.do("JumpForward", nil, func() { p.position = p.clamp(p.position + p.jumpInterval) })
}

// JumpBackward skips back by the jump interval.
func (p *Player) JumpBackward(ctx context.Context) error {
	return p.do("JumpBackward", nil, func() { p.position = p.clamp(p.position - p.jumpInterval) })
}

// Position returns the current playhead.
func (p *Player) Position(ctx context.Context) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, Call{Method: "Position"})
	if p.err != nil {
		return 0, p.err
	}
	return p.position, nil
}

// Snapshot returns the current simulated state.
func (p *Player) Snapshot() playback.Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progressLocked()
}

// Calls returns a copy of the call log.
func (p *Player) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// Run advances the playhead every tick while playing, scaled by rate,
// until ctx is cancelled. Playback pauses when the end is reached.
func (p *Player) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.advance(tick)
		}
	}
}

func (p *Player) advance(elapsed time.Duration) {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.position = p.clamp(p.position + int64(float64(elapsed.Milliseconds())*p.rate))
	if p.duration > 0 && p.position >= p.duration {
		p.playing = false
	}
	progress := p.progressLocked()
	cb := p.onProgress
	p.mu.Unlock()

	if cb != nil {
		cb(progress)
	}
}

func (p *Player) do(method string, arg any, apply func()) error {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Method: method, Arg: arg})
	if p.err != nil {
		err := p.err
		p.mu.Unlock()
		return fmt.Errorf("%s: %w", method, err)
	}
	apply()
	progress := p.progressLocked()
	cb := p.onProgress
	p.mu.Unlock()

	if cb != nil {
		cb(progress)
	}
	return nil
}

func (p *Player) clamp(pos int64) int64 {
	if pos < 0 {
		return 0
	}
	if p.duration > 0 && pos > p.duration {
		return p.duration
	}
	return pos
}

func (p *Player) progressLocked() playback.Progress {
	return playback.Progress{
		PositionMs: p.position,
		DurationMs: p.duration,
		IsPlaying:  p.playing,
		Rate:       p.rate,
	}
}
