package stream

import "github.com/stemsi/lesson-orchestrator/internal/model"

// Event is a typed inbound event produced by the client.
type Event interface {
	eventName() string
}

// SessionInitializing reports server-side setup progress.
type SessionInitializing struct{ Message string }

// StepArrived carries the next normal or conclusion step.
type StepArrived struct{ Step *model.Step }

// ClarificationArrived carries the answer to a viewer question.
type ClarificationArrived struct{ Step *model.Step }

// ClarificationPending means the server is computing a clarification.
type ClarificationPending struct{}

// NarrationChunk is one piece of synthesized narration audio.
type NarrationChunk struct{ Data []byte }

// NarrationEnded marks the end of the audio for the last narration request.
type NarrationEnded struct{}

// StepAcknowledged confirms a STEP_COMPLETED was received.
type StepAcknowledged struct{}

// StatusChanged reports a connection status transition.
type StatusChanged struct{ Status model.ConnStatus }

func (SessionInitializing) eventName() string  { return "session_initializing" }
func (StepArrived) eventName() string          { return "step_arrived" }
func (ClarificationArrived) eventName() string { return "clarification_arrived" }
func (ClarificationPending) eventName() string { return "clarification_pending" }
func (NarrationChunk) eventName() string       { return "narration_chunk" }
func (NarrationEnded) eventName() string       { return "narration_ended" }
func (StepAcknowledged) eventName() string     { return "step_acknowledged" }
func (StatusChanged) eventName() string        { return "status_changed" }

// Name returns a short identifier for logging.
func Name(ev Event) string {
	return ev.eventName()
}
