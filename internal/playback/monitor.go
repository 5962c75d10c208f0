package playback

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/lesson-orchestrator/internal/ledger"
	"github.com/stemsi/lesson-orchestrator/internal/model"
)

const (
	DefaultInterval  = 200 * time.Millisecond
	DefaultTolerance = 1.5
)

// Player is the video playback capability consumed by the monitor.
// Any error means the player is not ready yet.
type Player interface {
	CurrentTime() (float64, error)
	Status() (model.PlayerStatus, error)
	Play() error
	Pause() error
}

// Reason explains why a trigger fired.
type Reason string

const (
	ReasonMarkReached Reason = "mark_reached"
	ReasonVideoEnded  Reason = "video_ended"
)

// Trigger reports that the step's pause mark was reached.
type Trigger struct {
	StepID string
	Reason Reason
	At     float64
}

// Options configures a Monitor.
type Options struct {
	Interval time.Duration
	// Tolerance is the width in seconds of the window after the mark that still counts as arrival.
	Tolerance float64
}

// Monitor detects arrival at a step's pause mark. It fires at most once per step id.
type Monitor struct {
	player    Player
	crossed   *ledger.Set
	interval  time.Duration
	tolerance float64
	log       zerolog.Logger
}

// NewMonitor creates a Monitor recording crossings into crossed.
func NewMonitor(player Player, crossed *ledger.Set, opts Options, log zerolog.Logger) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	return &Monitor{
		player:    player,
		crossed:   crossed,
		interval:  opts.Interval,
		tolerance: opts.Tolerance,
		log:       log.With().Str("component", "playback_monitor").Logger(),
	}
}

// Interval is the poll period.
func (m *Monitor) Interval() time.Duration { return m.interval }

// Check polls the player once for the given step and pause mark.
// On arrival it records the crossing, pauses the player and returns the trigger.
// A player that reports ended before the mark fires immediately.
func (m *Monitor) Check(stepID string, pauseAt float64) (Trigger, bool) {
	if m.player == nil || stepID == "" || m.crossed.Has(stepID) {
		return Trigger{}, false
	}

	status, err := m.player.Status()
	if err != nil {
		m.log.Debug().Err(err).Msg("Player not ready")
		return Trigger{}, false
	}

	if status == model.PlayerEnded {
		return m.Ended(stepID)
	}
	if status != model.PlayerPlaying {
		return Trigger{}, false
	}

	now, err := m.player.CurrentTime()
	if err != nil {
		m.log.Debug().Err(err).Msg("Player time unavailable")
		return Trigger{}, false
	}
	if now < pauseAt || now >= pauseAt+m.tolerance {
		return Trigger{}, false
	}

	if !m.crossed.Add(stepID) {
		return Trigger{}, false
	}
	if err := m.player.Pause(); err != nil {
		m.log.Warn().Err(err).Str("step_id", stepID).Msg("Pause at mark failed")
	}

	m.log.Debug().
		Str("step_id", stepID).
		Float64("pause_at", pauseAt).
		Float64("position", now).
		Msg("Pause mark reached")

	return Trigger{StepID: stepID, Reason: ReasonMarkReached, At: now}, true
}

// Ended handles the video finishing before the mark. It shares the crossed
// ledger with Check, so a poll match and the ended event in the same tick
// produce a single trigger.
func (m *Monitor) Ended(stepID string) (Trigger, bool) {
	if !m.crossed.Add(stepID) {
		return Trigger{}, false
	}
	m.log.Info().Str("step_id", stepID).Msg("Video ended before pause mark")
	return Trigger{StepID: stepID, Reason: ReasonVideoEnded}, true
}
