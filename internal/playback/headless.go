package playback

import (
	"sync"
	"time"

	"github.com/stemsi/lesson-orchestrator/internal/model"
)

// HeadlessPlayer is a wall-clock driven Player with no rendering.
// It is used by the command line runner and in tests.
type HeadlessPlayer struct {
	mu        sync.Mutex
	duration  time.Duration
	position  time.Duration
	playing   bool
	started   bool
	resumedAt time.Time
	now       func() time.Time
}

// NewHeadlessPlayer creates a player for a video of the given length.
func NewHeadlessPlayer(duration time.Duration) *HeadlessPlayer {
	return &HeadlessPlayer{duration: duration, now: time.Now}
}

func (p *HeadlessPlayer) positionLocked() time.Duration {
	pos := p.position
	if p.playing {
		pos += p.now().Sub(p.resumedAt)
	}
	if pos > p.duration {
		pos = p.duration
	}
	return pos
}

func (p *HeadlessPlayer) CurrentTime() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked().Seconds(), nil
}

func (p *HeadlessPlayer) Status() (model.PlayerStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case !p.started:
		return model.PlayerUnstarted, nil
	case p.positionLocked() >= p.duration:
		return model.PlayerEnded, nil
	case p.playing:
		return model.PlayerPlaying, nil
	default:
		return model.PlayerPaused, nil
	}
}

func (p *HeadlessPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return nil
	}
	p.started = true
	p.playing = true
	p.resumedAt = p.now()
	return nil
}

func (p *HeadlessPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return nil
	}
	p.position = p.positionLocked()
	p.playing = false
	return nil
}

// Playing reports whether the player is currently advancing.
func (p *HeadlessPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing && p.positionLocked() < p.duration
}
