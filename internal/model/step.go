package model

// StepKind enumerates the kinds of lesson steps pushed by the server.
type StepKind string

const (
	StepKindNormal        StepKind = "normal"
	StepKindClarification StepKind = "clarification"
	StepKindConclusion    StepKind = "conclusion"
)

// Step is one unit of server-driven lesson content.
// A Step is never mutated after it is decoded; the next arriving step supersedes it.
type Step struct {
	ID                 string         `json:"id"`
	Kind               StepKind       `json:"kind,omitempty" validate:"omitempty,oneof=normal clarification conclusion"`
	NarrationText      string         `json:"narrationText,omitempty"`
	InteractiveContent string         `json:"interactiveContent,omitempty"`
	Quiz               []QuizQuestion `json:"quiz,omitempty" validate:"omitempty,dive"`
	PauseAtSeconds     *float64       `json:"pauseAtSeconds,omitempty" validate:"omitempty,gte=0"`
}

// QuizQuestion is a single multiple-choice question attached to a step.
type QuizQuestion struct {
	Question           string   `json:"question" validate:"required"`
	Options            []string `json:"options" validate:"min=2,dive,required"`
	CorrectOptionIndex int      `json:"correctOptionIndex" validate:"gte=0"`
}

// IsCorrect reports whether index selects the correct option.
func (q QuizQuestion) IsCorrect(index int) bool {
	return index == q.CorrectOptionIndex
}

// HasQuiz reports whether the step carries at least one quiz question.
func (s *Step) HasQuiz() bool {
	return s != nil && len(s.Quiz) > 0
}

// HasPauseMark reports whether the step asks the video to halt at a timestamp.
func (s *Step) HasPauseMark() bool {
	return s != nil && s.PauseAtSeconds != nil
}

// HasNarration reports whether the step has text to speak.
func (s *Step) HasNarration() bool {
	return s != nil && s.NarrationText != ""
}

// IsConclusion reports whether the step ends the lesson.
func (s *Step) IsConclusion() bool {
	return s != nil && s.Kind == StepKindConclusion
}

// Seconds is a small helper for building pause marks.
func Seconds(v float64) *float64 {
	return &v
}
