package session

import (
	"time"

	"github.com/stemsi/lesson-orchestrator/internal/model"
)

// Snapshot is a read-only copy of the session state, published after every event.
type Snapshot struct {
	Phase                model.SessionPhase
	Status               model.ConnStatus
	Step                 *model.Step
	Clarification        *model.Step
	ClarificationPending bool
	Quiz                 model.QuizState
	ManualChat           bool
	IntroDone            bool
	ViewerPaused         bool
	Message              string
	StepsSeen            int
	Err                  error
}

// Transition describes one phase change.
type Transition struct {
	SessionID string             `json:"session_id"`
	From      model.SessionPhase `json:"from"`
	To        model.SessionPhase `json:"to"`
	StepID    string             `json:"step_id,omitempty"`
	At        time.Time          `json:"at"`
}

// Observer is notified of every phase change, on the controller goroutine.
type Observer interface {
	OnTransition(Transition)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Transition)

func (f ObserverFunc) OnTransition(t Transition) { f(t) }
