// Package quiz implements the per-step quiz: question index, selection,
// feedback and scoring. A Machine is owned by a single goroutine.
package quiz

import (
	"time"

	"github.com/stemsi/lesson-orchestrator/internal/model"
)

// DefaultFeedbackDelay is how long feedback shows before the quiz advances.
const DefaultFeedbackDelay = 1500 * time.Millisecond

// Machine tracks progress through one step's quiz.
type Machine struct {
	questions []model.QuizQuestion
	state     model.QuizState
}

// New starts a quiz at the first question with a zero score.
func New(questions []model.QuizQuestion) *Machine {
	return &Machine{
		questions: questions,
		state:     model.QuizState{Total: len(questions)},
	}
}

// Len returns the number of questions.
func (m *Machine) Len() int { return len(m.questions) }

// Active reports whether there are questions left to answer.
func (m *Machine) Active() bool {
	return len(m.questions) > 0 && !m.state.Finished
}

// Question returns the question being asked.
func (m *Machine) Question() (model.QuizQuestion, bool) {
	if !m.Active() {
		return model.QuizQuestion{}, false
	}
	return m.questions[m.state.CurrentIndex], true
}

// Select answers the current question. It is a no-op while feedback is
// showing, after the quiz finished, or for an index outside the options.
// It reports whether the selection was accepted.
func (m *Machine) Select(index int) bool {
	q, ok := m.Question()
	if !ok || m.state.ShowingFeedback {
		return false
	}
	if index < 0 || index >= len(q.Options) {
		return false
	}

	m.state.SelectedOptionIndex = &index
	m.state.ShowingFeedback = true
	if q.IsCorrect(index) {
		m.state.Score++
	}
	return true
}

// Advance ends the feedback display: it moves to the next question or
// finishes the quiz. It reports whether the quiz finished.
func (m *Machine) Advance() bool {
	if !m.state.ShowingFeedback {
		return m.state.Finished
	}

	m.state.SelectedOptionIndex = nil
	m.state.ShowingFeedback = false
	if m.state.CurrentIndex < len(m.questions)-1 {
		m.state.CurrentIndex++
		return false
	}
	m.state.Finished = true
	return true
}

// State returns a copy of the observable quiz state.
func (m *Machine) State() model.QuizState {
	st := m.state
	if st.SelectedOptionIndex != nil {
		idx := *st.SelectedOptionIndex
		st.SelectedOptionIndex = &idx
	}
	return st
}
