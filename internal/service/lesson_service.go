package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/stemsi/lesson-orchestrator/internal/model"
	"github.com/stemsi/lesson-orchestrator/internal/validator"
)

// ErrInvalidScript wraps every load or validation failure of a lesson script.
var ErrInvalidScript = errors.New("invalid lesson script")

// Script is a lesson as authored on disk: an ordered list of steps.
type Script struct {
	Title    string       `json:"title" validate:"required"`
	VideoURL string       `json:"videoUrl,omitempty" validate:"omitempty,url"`
	Steps    []model.Step `json:"steps" validate:"required,min=1,dive"`
}

// LoadScript reads and validates the lesson script at path.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	return ParseScript(data)
}

// ParseScript decodes and validates a lesson script. Steps without an id
// are numbered by position.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	if err := validator.Struct(&s); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidScript, joinFields(validator.TranslateErrors(err)))
	}

	seen := make(map[string]bool, len(s.Steps))
	for i := range s.Steps {
		step := &s.Steps[i]
		if step.ID == "" {
			step.ID = fmt.Sprintf("step-%d", i+1)
		}
		if seen[step.ID] {
			return nil, fmt.Errorf("%w: duplicate step id %q", ErrInvalidScript, step.ID)
		}
		seen[step.ID] = true

		switch step.Kind {
		case "":
			step.Kind = model.StepKindNormal
		case model.StepKindClarification:
			return nil, fmt.Errorf("%w: step %q: clarification steps are generated, not scripted", ErrInvalidScript, step.ID)
		}
	}
	return &s, nil
}

func joinFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fields[k])
	}
	return strings.Join(parts, "; ")
}

// LessonService plays the tutor side of a lesson: it hands out scripted
// steps, answers questions from the script, and synthesizes narration audio.
type LessonService struct {
	script         *Script
	bytesPerSecond int
	log            zerolog.Logger
}

// NewLessonService creates a new LessonService.
func NewLessonService(script *Script, bytesPerSecond int, log zerolog.Logger) *LessonService {
	if bytesPerSecond <= 0 {
		bytesPerSecond = 48000
	}
	return &LessonService{
		script:         script,
		bytesPerSecond: bytesPerSecond,
		log:            log.With().Str("component", "lesson_service").Logger(),
	}
}

// Script returns the loaded script.
func (s *LessonService) Script() *Script { return s.script }

// StepAt returns the i-th scripted step.
func (s *LessonService) StepAt(i int) (*model.Step, bool) {
	if i < 0 || i >= len(s.script.Steps) {
		return nil, false
	}
	step := s.script.Steps[i]
	return &step, true
}

// Synthesize renders narration text to audio. The dev server has no real
// voice; it returns silence lasting 20ms per character.
func (s *LessonService) Synthesize(text string) []byte {
	n := len(text) * s.bytesPerSecond / 50
	return make([]byte, n)
}

// Clarify answers a viewer question with the narration of the scripted step
// sharing the most words with it.
func (s *LessonService) Clarify(question string, seq int) *model.Step {
	answer := "Let's keep going and it should become clearer."
	best := 0
	asked := keywords(question)
	for _, step := range s.script.Steps {
		score := 0
		for w := range keywords(step.NarrationText) {
			if asked[w] {
				score++
			}
		}
		if score > best {
			best, answer = score, step.NarrationText
		}
	}

	s.log.Debug().Str("question", question).Int("overlap", best).Msg("Clarification composed")

	return &model.Step{
		ID:            fmt.Sprintf("clarification-%d", seq),
		Kind:          model.StepKindClarification,
		NarrationText: "Good question. " + answer,
	}
}

func keywords(text string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) > 3 {
			out[w] = true
		}
	}
	return out
}
