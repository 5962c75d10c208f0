package websocket

import "encoding/json"

// MessageType is the `type` discriminator carried by every JSON frame.
type MessageType string

// ─── Events (Server → Client) ───────────────────────────────────────

const (
	TypeInitializing          MessageType = "INITIALIZING"
	TypeNextStep              MessageType = "NEXT_STEP"
	TypeClarificationResponse MessageType = "CLARIFICATION_RESPONSE"
	TypeLoadInstruction       MessageType = "LOAD_INSTRUCTION"
	TypeAudioChunk            MessageType = "AUDIO_CHUNK"
	TypeAudioEnd              MessageType = "AUDIO_END"
	TypeStepAcknowledged      MessageType = "StepCompleted"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

const (
	TypeStepCompleted MessageType = "STEP_COMPLETED"
	TypeUserQuestion  MessageType = "USER_QUESTION"
	TypeCloseSession  MessageType = "CLOSE_SESSION"

	// TypeNarrationRequest marks a raw text frame. It never appears on the wire.
	TypeNarrationRequest MessageType = "NARRATION_REQUEST"
)

// Envelope is used to peek at the type before full parsing.
type Envelope struct {
	Type MessageType `json:"type"`
}

type InitializingMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// StepMessage carries NEXT_STEP and CLARIFICATION_RESPONSE payloads.
// Step is kept raw so a missing id can be derived from the exact content.
type StepMessage struct {
	Type MessageType     `json:"type"`
	Step json.RawMessage `json:"step"`
}

// AudioChunkMessage carries base64 encoded narration audio.
type AudioChunkMessage struct {
	Type MessageType `json:"type"`
	Data []byte      `json:"data"`
}

// SignalMessage is a payload-less frame (LOAD_INSTRUCTION, AUDIO_END, StepCompleted, STEP_COMPLETED).
type SignalMessage struct {
	Type MessageType `json:"type"`
}

type UserQuestionRequest struct {
	Type         MessageType `json:"type"`
	QuestionText string      `json:"questionText"`
	AudioData    []byte      `json:"audioData,omitempty"`
}

type CloseSessionRequest struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"sessionId"`
}
