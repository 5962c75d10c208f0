package websocket

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stemsi/lesson-orchestrator/internal/model"
)

func TestDecodeNextStep(t *testing.T) {
	frame := []byte(`{"type":"NEXT_STEP","step":{"id":"s1","narrationText":"hi","pauseAtSeconds":10}}`)

	in, err := Decode(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.Type != TypeNextStep || in.Step == nil {
		t.Fatalf("unexpected inbound: %+v", in)
	}
	if in.Step.ID != "s1" || in.Step.Kind != model.StepKindNormal {
		t.Fatalf("unexpected step: %+v", in.Step)
	}
	if !in.Step.HasPauseMark() || *in.Step.PauseAtSeconds != 10 {
		t.Fatalf("expected pause mark at 10, got %v", in.Step.PauseAtSeconds)
	}
}

func TestDecodeClarificationForcesKind(t *testing.T) {
	in, err := Decode([]byte(`{"type":"CLARIFICATION_RESPONSE","step":{"id":"c1","kind":"normal","narrationText":"because"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.Step.Kind != model.StepKindClarification {
		t.Fatalf("expected clarification kind, got %s", in.Step.Kind)
	}
}

func TestDecodeGivesEachIDlessStepItsOwnID(t *testing.T) {
	frame := []byte(`{"type":"NEXT_STEP","step":{"narrationText":"Take a breath."}}`)

	a, err := Decode(frame)
	if err != nil {
		t.Fatalf("decode a: %v", err)
	}
	b, err := Decode(frame)
	if err != nil {
		t.Fatalf("decode b: %v", err)
	}

	if a.Step.ID == "" || b.Step.ID == "" {
		t.Fatal("expected an id for each step")
	}
	if a.Step.ID == b.Step.ID {
		t.Fatalf("two arriving steps share id %s", a.Step.ID)
	}
	if a.Step.NarrationText != b.Step.NarrationText {
		t.Fatal("content changed while assigning ids")
	}
}

func TestDecodeAudioChunk(t *testing.T) {
	frame, _ := json.Marshal(AudioChunkMessage{Type: TypeAudioChunk, Data: []byte{1, 2, 3}})

	in, err := Decode(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(in.Audio) != 3 || in.Audio[2] != 3 {
		t.Fatalf("unexpected audio: %v", in.Audio)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name  string
		frame string
		want  error
	}{
		{"not json", `hello`, ErrMalformed},
		{"missing type", `{"message":"x"}`, ErrMalformed},
		{"missing step", `{"type":"NEXT_STEP"}`, ErrMalformed},
		{"bad quiz", `{"type":"NEXT_STEP","step":{"id":"s","quiz":[{"question":"q","options":["a","b"],"correctOptionIndex":5}]}}`, ErrMalformed},
		{"unknown", `{"type":"SURPRISE"}`, ErrUnknownType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.frame))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParseClientFrame(t *testing.T) {
	f, err := ParseClientFrame([]byte("Explain photosynthesis."))
	if err != nil || f.Type != TypeNarrationRequest || f.NarrationText != "Explain photosynthesis." {
		t.Fatalf("expected narration request, got %+v (%v)", f, err)
	}

	f, err = ParseClientFrame([]byte(`{"type":"USER_QUESTION","questionText":"why?"}`))
	if err != nil || f.Type != TypeUserQuestion || f.QuestionText != "why?" {
		t.Fatalf("expected user question, got %+v (%v)", f, err)
	}

	f, err = ParseClientFrame([]byte(`{"type":"CLOSE_SESSION","sessionId":"abc"}`))
	if err != nil || f.SessionID != "abc" {
		t.Fatalf("expected close session, got %+v (%v)", f, err)
	}

	if _, err := ParseClientFrame([]byte("   ")); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected malformed for empty frame, got %v", err)
	}
}
