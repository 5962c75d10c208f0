package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stemsi/lesson-orchestrator/internal/model"
)

func TestStructAcceptsWellFormedStep(t *testing.T) {
	step := model.Step{
		ID:             "s1",
		Kind:           model.StepKindNormal,
		PauseAtSeconds: model.Seconds(10),
		Quiz: []model.QuizQuestion{
			{Question: "2+2?", Options: []string{"3", "4"}, CorrectOptionIndex: 1},
		},
	}
	if err := Struct(step); err != nil {
		t.Fatalf("expected valid step, got %v", err)
	}
}

func TestStructRejectsOutOfRangeAnswer(t *testing.T) {
	step := model.Step{
		ID: "s1",
		Quiz: []model.QuizQuestion{
			{Question: "2+2?", Options: []string{"3", "4"}, CorrectOptionIndex: 2},
		},
	}
	err := Struct(step)
	if err == nil {
		t.Fatal("expected validation error")
	}

	fields := TranslateErrors(err)
	var found bool
	for field, msg := range fields {
		if strings.HasSuffix(field, "correctOptionIndex") && strings.Contains(msg, "one of the options") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected correctOptionIndex message, got %v", fields)
	}
}

func TestStructRejectsUnknownKindAndNegativeMark(t *testing.T) {
	step := model.Step{ID: "s1", Kind: "epilogue", PauseAtSeconds: model.Seconds(-1)}
	fields := TranslateErrors(Struct(step))
	if len(fields) != 2 {
		t.Fatalf("expected 2 field errors, got %v", fields)
	}
}

func TestTranslateErrorsPlainError(t *testing.T) {
	fields := TranslateErrors(errors.New("unexpected EOF"))
	if fields["detail"] != "unexpected EOF" {
		t.Fatalf("expected detail, got %v", fields)
	}
}
