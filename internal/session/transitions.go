package session

import (
	"strings"
	"time"

	"github.com/stemsi/lesson-orchestrator/internal/model"
	"github.com/stemsi/lesson-orchestrator/internal/narration"
	"github.com/stemsi/lesson-orchestrator/internal/playback"
	"github.com/stemsi/lesson-orchestrator/internal/quiz"
	"github.com/stemsi/lesson-orchestrator/internal/stream"
)

// Every handler in this file runs on the Run goroutine and reads c.st at
// call time. Events carry step ids only; a handler whose id no longer
// matches the current step does nothing.

func (c *Controller) setPhase(to model.SessionPhase) {
	from := c.st.phase
	if from == to {
		return
	}
	c.st.phase = to

	stepID := c.currentID()
	c.log.Debug().
		Str("from", string(from)).
		Str("to", string(to)).
		Str("step_id", stepID).
		Msg("Phase transition")

	if c.opts.Observer != nil {
		c.opts.Observer.OnTransition(Transition{
			SessionID: c.opts.SessionID,
			From:      from,
			To:        to,
			StepID:    stepID,
			At:        time.Now().UTC(),
		})
	}
}

func (c *Controller) currentID() string {
	if c.st.current == nil {
		return ""
	}
	return c.st.current.ID
}

// ─── Connection ─────────────────────────────────────────────────────

func (c *Controller) onStart() {
	if c.st.phase != model.PhaseNotStarted {
		return
	}
	c.setPhase(model.PhaseConnecting)

	ctx := c.runCtx
	go func() {
		if err := c.stream.Connect(ctx); err != nil {
			c.post(connectFailed{err: err})
		}
	}()
}

func (c *Controller) onConnectFailed(err error) {
	c.log.Error().Err(err).Msg("Failed to connect lesson stream")
	c.st.err = err
	c.st.status = model.ConnStatusDisconnected
	c.setPhase(model.PhaseEnded)
}

func (c *Controller) onStreamEvent(ev stream.Event) {
	switch e := ev.(type) {
	case stream.StatusChanged:
		c.onStatusChanged(e.Status)
		return
	case stream.NarrationChunk:
		if c.opts.Audio != nil {
			c.opts.Audio.Feed(e.Data)
		}
		return
	case stream.NarrationEnded:
		if c.opts.Audio != nil {
			c.opts.Audio.Finish()
		}
		return
	}

	if c.st.phase == model.PhaseEnded {
		c.log.Debug().Str("event", stream.Name(ev)).Msg("Ignoring event after session end")
		return
	}

	switch e := ev.(type) {
	case stream.SessionInitializing:
		c.st.message = e.Message
	case stream.StepArrived:
		c.onStepArrived(e.Step)
	case stream.ClarificationArrived:
		c.onClarificationArrived(e.Step)
	case stream.ClarificationPending:
		c.st.clarificationPending = true
	case stream.StepAcknowledged:
		c.log.Debug().Str("step_id", c.currentID()).Msg("Step completion acknowledged")
	}
}

func (c *Controller) onStatusChanged(status model.ConnStatus) {
	c.st.status = status

	switch status {
	case model.ConnStatusConnected:
		c.onConnected()
	case model.ConnStatusDisconnected:
		if c.st.phase != model.PhaseEnded {
			c.st.message = "Connection lost"
			c.log.Warn().Str("phase", string(c.st.phase)).Msg("Lesson stream disconnected, not retrying")
		}
	}
}

// onConnected requests the intro narration at most once per session.
func (c *Controller) onConnected() {
	if c.st.introRequested {
		return
	}
	c.st.introRequested = true

	if !c.opts.VideoBacked || c.opts.IntroNarration == "" {
		c.finishIntro()
		return
	}

	if err := c.gate.Speak(c.opts.IntroNarration); err != nil {
		c.log.Warn().Err(err).Msg("Intro narration request failed, skipping intro")
		c.finishIntro()
		return
	}
	c.st.speech = append(c.st.speech, speech{kind: speechIntro})
	c.setPhase(model.PhasePlayingIntro)
}

// finishIntro enters a step that arrived during the intro, or waits for one.
func (c *Controller) finishIntro() {
	c.st.introDone = true
	if c.st.current != nil {
		c.enterStep()
		return
	}
	c.setPhase(model.PhaseAwaitingStep)
	c.resumePlayback()
}

// ─── Steps ──────────────────────────────────────────────────────────

func (c *Controller) onStepArrived(step *model.Step) {
	if step == nil {
		return
	}
	if !c.arrived.Add(step.ID) {
		c.log.Debug().Str("step_id", step.ID).Msg("Ignoring duplicate step")
		return
	}

	c.st.current = step
	c.st.stepsSeen++
	c.st.quiz = quiz.New(step.Quiz)
	c.st.clarification = nil

	c.log.Info().
		Str("step_id", step.ID).
		Str("kind", string(step.Kind)).
		Bool("pause_mark", step.HasPauseMark()).
		Int("quiz", len(step.Quiz)).
		Msg("Step arrived")

	if !c.st.introDone {
		return
	}
	c.enterStep()
}

func (c *Controller) enterStep() {
	step := c.st.current
	if step.HasPauseMark() && c.opts.VideoBacked && !c.triggers.Crossed.Has(step.ID) {
		c.setPhase(model.PhaseAwaitingPauseMark)
		c.resumePlayback()
		return
	}
	c.evaluateNarration()
}

// evaluateNarration requests the current step's narration unless it was
// already requested, then moves on when there is nothing to wait for.
func (c *Controller) evaluateNarration() {
	step := c.st.current
	if step.HasNarration() && c.triggers.Requested.Add(step.ID) {
		if err := c.gate.Speak(step.NarrationText); err != nil {
			c.log.Warn().Err(err).Str("step_id", step.ID).Msg("Narration request failed")
			c.afterNarration()
			return
		}
		c.st.speech = append(c.st.speech, speech{kind: speechStep, stepID: step.ID})
		c.setPhase(model.PhaseNarrationPlaying)
		return
	}
	c.afterNarration()
}

func (c *Controller) afterNarration() {
	switch {
	case c.st.quiz.Active():
		c.setPhase(model.PhaseQuizActive)
	case c.st.manualChat:
		c.setPhase(model.PhaseAwaitingManualQuestion)
	default:
		c.completeStep()
	}
}

// completeStep acknowledges the current step exactly once, or ends the
// lesson on a conclusion step.
func (c *Controller) completeStep() {
	step := c.st.current
	if step.IsConclusion() {
		c.log.Info().Str("step_id", step.ID).Msg("Lesson concluded")
		c.closeStream()
		c.setPhase(model.PhaseEnded)
		return
	}

	if c.st.status != model.ConnStatusConnected {
		c.log.Warn().Str("step_id", step.ID).Msg("Not connected, step completion withheld")
		c.setPhase(model.PhaseAwaitingStep)
		return
	}
	if !c.triggers.Acknowledged.Add(step.ID) {
		return
	}
	if err := c.stream.AcknowledgeStepComplete(); err != nil {
		c.log.Warn().Err(err).Str("step_id", step.ID).Msg("Failed to acknowledge step")
	}

	c.st.clarification = nil
	c.setPhase(model.PhaseAwaitingStep)
	c.resumePlayback()
}

// resumePlayback plays the video when no pause condition remains.
func (c *Controller) resumePlayback() {
	if !c.opts.VideoBacked || c.st.viewerPaused || len(c.st.speech) > 0 {
		return
	}
	switch c.st.phase {
	case model.PhaseAwaitingStep, model.PhaseAwaitingPauseMark:
	default:
		return
	}

	resumed, err := c.gate.ResumeUnlessSpeaking()
	if err != nil {
		c.log.Debug().Err(err).Msg("Player not ready to resume")
		return
	}
	if resumed {
		c.log.Debug().Str("phase", string(c.st.phase)).Msg("Playback resumed")
	}
}

// ─── Playback ───────────────────────────────────────────────────────

func (c *Controller) onPollTick() {
	if c.st.phase != model.PhaseAwaitingPauseMark {
		return
	}
	step := c.st.current
	if tr, ok := c.monitor.Check(step.ID, *step.PauseAtSeconds); ok {
		c.onMarkReached(tr)
	}
}

func (c *Controller) onPlayerEnded() {
	if c.st.phase != model.PhaseAwaitingPauseMark {
		c.log.Debug().Str("phase", string(c.st.phase)).Msg("Video ended")
		return
	}
	if tr, ok := c.monitor.Ended(c.st.current.ID); ok {
		c.onMarkReached(tr)
	}
}

func (c *Controller) onMarkReached(tr playback.Trigger) {
	if tr.StepID != c.currentID() || c.st.phase != model.PhaseAwaitingPauseMark {
		return
	}
	c.log.Info().
		Str("step_id", tr.StepID).
		Str("reason", string(tr.Reason)).
		Float64("at", tr.At).
		Msg("Pause mark reached")
	c.evaluateNarration()
}

func (c *Controller) onVideoPauseToggled(paused bool) {
	c.st.viewerPaused = paused
	if !c.opts.VideoBacked {
		return
	}
	if !paused {
		c.resumePlayback()
		return
	}
	if err := c.player.Pause(); err != nil {
		c.log.Debug().Err(err).Msg("Player not ready to pause")
	}
}

// ─── Narration ──────────────────────────────────────────────────────

// onNarration matches each ended transition to the oldest outstanding
// narration request. The narrator plays requests in order.
func (c *Controller) onNarration(tr narration.Transition) {
	if tr != narration.Ended {
		return
	}
	if len(c.st.speech) == 0 {
		c.log.Debug().Msg("Narration ended without an outstanding request")
		c.resumePlayback()
		return
	}

	owner := c.st.speech[0]
	c.st.speech = c.st.speech[1:]

	switch owner.kind {
	case speechIntro:
		if c.st.phase == model.PhasePlayingIntro {
			c.finishIntro()
			return
		}
	case speechStep:
		if owner.stepID == c.currentID() && c.st.phase == model.PhaseNarrationPlaying {
			c.afterNarration()
			return
		}
		c.log.Debug().Str("step_id", owner.stepID).Msg("Ignoring narration end for superseded step")
	case speechClarification:
		c.log.Debug().Str("step_id", owner.stepID).Msg("Clarification narration ended")
	}
	c.resumePlayback()
}

// ─── Clarification & manual chat ────────────────────────────────────

// onClarificationArrived shows the answer as an overlay. The current
// step, its ledgers and the phase are left untouched.
func (c *Controller) onClarificationArrived(step *model.Step) {
	if step == nil {
		return
	}
	c.st.clarification = step
	c.st.clarificationPending = false

	c.log.Info().Str("step_id", step.ID).Msg("Clarification arrived")

	if !step.HasNarration() || !c.triggers.Requested.Add(step.ID) {
		return
	}
	if err := c.gate.Speak(step.NarrationText); err != nil {
		c.log.Warn().Err(err).Str("step_id", step.ID).Msg("Clarification narration request failed")
		return
	}
	c.st.speech = append(c.st.speech, speech{kind: speechClarification, stepID: step.ID})
}

func (c *Controller) onMessage(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	switch c.st.phase {
	case model.PhaseNotStarted, model.PhaseConnecting, model.PhaseEnded:
		return
	}

	if err := c.stream.SendFreeformMessage(text); err != nil {
		c.log.Warn().Err(err).Msg("Failed to send question")
		return
	}
	c.st.manualChat = true
	c.st.questionSent = true
}

// ─── Quiz ───────────────────────────────────────────────────────────

func (c *Controller) onOptionSelected(index int) {
	if c.st.phase != model.PhaseQuizActive {
		return
	}
	if !c.st.quiz.Select(index) {
		return
	}

	stepID := c.currentID()
	question := c.st.quiz.State().CurrentIndex
	c.schedule(c.opts.FeedbackDelay, func() {
		c.post(feedbackElapsed{stepID: stepID, question: question})
	})
}

func (c *Controller) onFeedbackElapsed(e feedbackElapsed) {
	if e.stepID != c.currentID() || c.st.phase != model.PhaseQuizActive {
		return
	}
	qs := c.st.quiz.State()
	if !qs.ShowingFeedback || qs.CurrentIndex != e.question {
		return
	}
	if c.st.quiz.Advance() {
		c.log.Info().
			Str("step_id", e.stepID).
			Int("score", qs.Score).
			Int("total", qs.Total).
			Msg("Quiz finished")
		c.setPhase(model.PhaseQuizFinished)
	}
}

// onContinue acknowledges after a finished quiz, or leaves manual chat once
// the viewer has actually sent a question.
func (c *Controller) onContinue() {
	switch c.st.phase {
	case model.PhaseQuizFinished:
	case model.PhaseAwaitingManualQuestion:
		if !c.st.questionSent {
			c.log.Debug().Msg("Continue ignored until a question is sent")
			return
		}
	default:
		return
	}
	c.st.manualChat = false
	c.st.questionSent = false
	c.st.clarification = nil
	c.completeStep()
}

func (c *Controller) onAskQuestion() {
	if c.st.phase != model.PhaseQuizFinished {
		return
	}
	c.st.manualChat = true
	c.setPhase(model.PhaseAwaitingManualQuestion)
}

// ─── Close ──────────────────────────────────────────────────────────

func (c *Controller) onClose() {
	if c.st.phase == model.PhaseEnded {
		return
	}
	c.closeStream()
	c.setPhase(model.PhaseEnded)
}

func (c *Controller) closeStream() {
	if c.st.closeSent || c.st.status != model.ConnStatusConnected {
		return
	}
	c.st.closeSent = true
	if err := c.stream.CloseSession(); err != nil {
		c.log.Warn().Err(err).Msg("Failed to close lesson stream")
	}
}
