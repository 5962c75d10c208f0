package websocket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/lesson-orchestrator/internal/model"
	"github.com/stemsi/lesson-orchestrator/internal/validator"
)

var (
	ErrMalformed   = errors.New("malformed frame")
	ErrUnknownType = errors.New("unknown message type")
)

// Inbound is a decoded server frame. Only the fields relevant to Type are set.
type Inbound struct {
	Type    MessageType
	Message string
	Step    *model.Step
	Audio   []byte
}

// Decode parses one server frame.
func Decode(frame []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeInitializing:
		var msg InitializingMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			return Inbound{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return Inbound{Type: env.Type, Message: msg.Message}, nil

	case TypeNextStep, TypeClarificationResponse:
		var msg StepMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			return Inbound{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		step, err := decodeStep(msg.Step, env.Type == TypeClarificationResponse)
		if err != nil {
			return Inbound{}, err
		}
		return Inbound{Type: env.Type, Step: step}, nil

	case TypeAudioChunk:
		var msg AudioChunkMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			return Inbound{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return Inbound{Type: env.Type, Audio: msg.Data}, nil

	case TypeLoadInstruction, TypeAudioEnd, TypeStepAcknowledged:
		return Inbound{Type: env.Type}, nil

	case "":
		return Inbound{}, fmt.Errorf("%w: missing type", ErrMalformed)

	default:
		return Inbound{Type: env.Type}, fmt.Errorf("%w: %s", ErrUnknownType, env.Type)
	}
}

func decodeStep(raw json.RawMessage, clarification bool) (*model.Step, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: missing step", ErrMalformed)
	}

	var step model.Step
	if err := json.Unmarshal(raw, &step); err != nil {
		return nil, fmt.Errorf("%w: step: %v", ErrMalformed, err)
	}

	if clarification {
		step.Kind = model.StepKindClarification
	} else if step.Kind == "" {
		step.Kind = model.StepKindNormal
	}

	// Every id-less frame is a new step, even when its content repeats.
	if step.ID == "" {
		step.ID = uuid.New().String()
	}

	if err := validator.Struct(step); err != nil {
		return nil, fmt.Errorf("%w: step %s: %v", ErrMalformed, step.ID, err)
	}
	return &step, nil
}

// ClientFrame is a decoded client frame as seen by the server.
type ClientFrame struct {
	Type          MessageType
	NarrationText string
	QuestionText  string
	AudioData     []byte
	SessionID     string
}

// ParseClientFrame parses one client frame. Frames that are not a typed
// JSON object are narration requests carrying raw text.
func ParseClientFrame(frame []byte) (ClientFrame, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil || env.Type == "" {
		text := string(bytes.TrimSpace(frame))
		if text == "" {
			return ClientFrame{}, fmt.Errorf("%w: empty frame", ErrMalformed)
		}
		return ClientFrame{Type: TypeNarrationRequest, NarrationText: text}, nil
	}

	switch env.Type {
	case TypeStepCompleted:
		return ClientFrame{Type: env.Type}, nil

	case TypeUserQuestion:
		var req UserQuestionRequest
		if err := json.Unmarshal(frame, &req); err != nil {
			return ClientFrame{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return ClientFrame{Type: env.Type, QuestionText: req.QuestionText, AudioData: req.AudioData}, nil

	case TypeCloseSession:
		var req CloseSessionRequest
		if err := json.Unmarshal(frame, &req); err != nil {
			return ClientFrame{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return ClientFrame{Type: env.Type, SessionID: req.SessionID}, nil

	default:
		return ClientFrame{Type: env.Type}, fmt.Errorf("%w: %s", ErrUnknownType, env.Type)
	}
}
