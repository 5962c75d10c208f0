package session

import "github.com/stemsi/lesson-orchestrator/internal/narration"

// Internal events. Each carries identity keys only (step id, question
// index); handlers read everything else from the live state.

type startRequested struct{}

type connectFailed struct{ err error }

type pollTick struct{}

type playerEnded struct{}

type narrationTransition struct{ tr narration.Transition }

type feedbackElapsed struct {
	stepID   string
	question int
}

type optionSelected struct{ index int }

type continueRequested struct{}

type askRequested struct{}

type messageSent struct{ text string }

type videoPauseToggled struct{ paused bool }

type closeRequested struct{}

// speechKind says who owns an in-flight narration.
type speechKind int

const (
	speechIntro speechKind = iota
	speechStep
	speechClarification
)

type speech struct {
	kind   speechKind
	stepID string
}
