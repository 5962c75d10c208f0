package narration

import (
	"sync"

	"github.com/rs/zerolog"
)

// Speaker is the narration capability consumed by the gate.
type Speaker interface {
	Speak(text string) error
	OnStarted(cb func())
	OnEnded(cb func())
}

// Playback is the part of the video player the gate controls.
type Playback interface {
	Play() error
	Pause() error
}

// Transition is a change in narration state.
type Transition string

const (
	Started Transition = "started"
	Ended   Transition = "ended"
)

// Gate tracks whether narration is speaking and keeps the video paused while it does.
// The gate never resumes playback on its own; resumption is the controller's call.
type Gate struct {
	mu        sync.Mutex
	speaker   Speaker
	playback  Playback
	speaking  bool
	listeners []func(Transition)
	log       zerolog.Logger
}

// NewGate wraps speaker and subscribes to its transitions.
func NewGate(speaker Speaker, log zerolog.Logger) *Gate {
	g := &Gate{
		speaker: speaker,
		log:     log.With().Str("component", "narration_gate").Logger(),
	}
	speaker.OnStarted(g.handleStarted)
	speaker.OnEnded(g.handleEnded)
	return g
}

// Attach sets the playback the gate pauses on every start.
func (g *Gate) Attach(p Playback) {
	g.mu.Lock()
	g.playback = p
	g.mu.Unlock()
}

// Subscribe registers fn for every transition. fn runs on the speaker's goroutine.
func (g *Gate) Subscribe(fn func(Transition)) {
	g.mu.Lock()
	g.listeners = append(g.listeners, fn)
	g.mu.Unlock()
}

// IsSpeaking reports whether narration audio is playing.
func (g *Gate) IsSpeaking() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.speaking
}

// Speak asks the speaker to narrate text.
func (g *Gate) Speak(text string) error {
	return g.speaker.Speak(text)
}

// ResumeUnlessSpeaking plays the attached video only when no narration is speaking.
// It holds the gate lock so it cannot interleave with a start transition.
func (g *Gate) ResumeUnlessSpeaking() (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.speaking || g.playback == nil {
		return false, nil
	}
	if err := g.playback.Play(); err != nil {
		return false, err
	}
	return true, nil
}

func (g *Gate) handleStarted() {
	g.mu.Lock()
	g.speaking = true
	if g.playback != nil {
		// Last writer wins toward paused, even if something just resumed it.
		if err := g.playback.Pause(); err != nil {
			g.log.Warn().Err(err).Msg("Pause on narration start failed")
		}
	}
	listeners := append([]func(Transition){}, g.listeners...)
	g.mu.Unlock()

	g.log.Debug().Msg("Narration started")
	for _, fn := range listeners {
		fn(Started)
	}
}

func (g *Gate) handleEnded() {
	g.mu.Lock()
	g.speaking = false
	listeners := append([]func(Transition){}, g.listeners...)
	g.mu.Unlock()

	g.log.Debug().Msg("Narration ended")
	for _, fn := range listeners {
		fn(Ended)
	}
}
