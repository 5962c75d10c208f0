package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/lesson-orchestrator/internal/ledger"
	"github.com/stemsi/lesson-orchestrator/internal/model"
	"github.com/stemsi/lesson-orchestrator/internal/narration"
	"github.com/stemsi/lesson-orchestrator/internal/playback"
	"github.com/stemsi/lesson-orchestrator/internal/quiz"
	"github.com/stemsi/lesson-orchestrator/internal/stream"
)

// Stream is the step stream as seen by the controller.
type Stream interface {
	Connect(ctx context.Context) error
	Events() <-chan stream.Event
	AcknowledgeStepComplete() error
	SendFreeformMessage(text string) error
	CloseSession() error
}

// AudioFeeder receives narration audio arriving over the stream.
type AudioFeeder interface {
	Feed(chunk []byte)
	Finish()
}

// Options configures a Controller.
type Options struct {
	SessionID      string
	VideoBacked    bool
	IntroNarration string
	FeedbackDelay  time.Duration
	PollInterval   time.Duration
	PauseTolerance float64
	// Audio receives AUDIO_CHUNK/AUDIO_END. Nil when the speaker sources its own audio.
	Audio    AudioFeeder
	Observer Observer
}

// state is the single live session cell. Only the Run goroutine touches it.
type state struct {
	phase                model.SessionPhase
	status               model.ConnStatus
	current              *model.Step
	clarification        *model.Step
	clarificationPending bool
	quiz                 *quiz.Machine
	manualChat           bool
	// questionSent is set by a viewer message and cleared by Continue.
	questionSent         bool
	introRequested       bool
	introDone            bool
	closeSent            bool
	viewerPaused         bool
	message              string
	stepsSeen            int
	speech               []speech
	err                  error
}

// Controller drives one lesson session. Every source (stream events, poll
// ticks, narration transitions, feedback timers, viewer actions) is
// processed one at a time on the Run goroutine.
type Controller struct {
	stream   Stream
	player   playback.Player
	gate     *narration.Gate
	monitor  *playback.Monitor
	triggers *ledger.Triggers
	arrived  *ledger.Set
	opts     Options
	log      zerolog.Logger

	// schedule runs f after d on another goroutine.
	schedule func(d time.Duration, f func())

	qmu   sync.Mutex
	queue []interface{}
	wake  chan struct{}

	runCtx context.Context
	st     *state

	snapMu sync.RWMutex
	snap   Snapshot
}

// NewController wires a controller for one session. player may be nil for
// sessions without video.
func NewController(s Stream, speaker narration.Speaker, player playback.Player, opts Options, log zerolog.Logger) *Controller {
	if opts.FeedbackDelay <= 0 {
		opts.FeedbackDelay = quiz.DefaultFeedbackDelay
	}
	if player == nil {
		opts.VideoBacked = false
	}

	if opts.SessionID != "" {
		log = log.With().Str("session_id", opts.SessionID).Logger()
	}

	triggers := ledger.NewTriggers()
	c := &Controller{
		stream:   s,
		player:   player,
		gate:     narration.NewGate(speaker, log),
		triggers: triggers,
		arrived:  ledger.NewSet(),
		opts:     opts,
		log:      log.With().Str("component", "session_controller").Logger(),
		schedule: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		wake:     make(chan struct{}, 1),
		runCtx:   context.Background(),
		st: &state{
			phase:  model.PhaseNotStarted,
			status: model.ConnStatusIdle,
			quiz:   quiz.New(nil),
		},
	}
	c.monitor = playback.NewMonitor(player, triggers.Crossed, playback.Options{
		Interval:  opts.PollInterval,
		Tolerance: opts.PauseTolerance,
	}, log)
	if opts.VideoBacked {
		c.gate.Attach(player)
	}
	c.gate.Subscribe(func(tr narration.Transition) {
		c.post(narrationTransition{tr: tr})
	})
	c.publish()
	return c
}

// Ledger exposes the append-only trigger ledgers for inspection.
func (c *Controller) Ledger() *ledger.Triggers { return c.triggers }

// Snapshot returns the state as of the last processed event.
func (c *Controller) Snapshot() Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap
}

// ─── Viewer API ─────────────────────────────────────────────────────

// Start begins the session. The connection is opened by Run.
func (c *Controller) Start() { c.post(startRequested{}) }

// SelectOption answers the current quiz question.
func (c *Controller) SelectOption(index int) { c.post(optionSelected{index: index}) }

// Continue acknowledges the step after a finished quiz or manual chat.
func (c *Controller) Continue() { c.post(continueRequested{}) }

// AskQuestion chooses to ask a question instead of continuing after a quiz.
func (c *Controller) AskQuestion() { c.post(askRequested{}) }

// SendMessage sends a freeform viewer question. Automatic progression
// stays suspended until Continue.
func (c *Controller) SendMessage(text string) { c.post(messageSent{text: text}) }

// PauseVideo records a manual pause by the viewer.
func (c *Controller) PauseVideo() { c.post(videoPauseToggled{paused: true}) }

// ResumeVideo clears a manual pause.
func (c *Controller) ResumeVideo() { c.post(videoPauseToggled{paused: false}) }

// PlayerEnded reports the player's own ended event.
func (c *Controller) PlayerEnded() { c.post(playerEnded{}) }

// Close ends the session and closes the connection.
func (c *Controller) Close() { c.post(closeRequested{}) }

// ─── Event loop ─────────────────────────────────────────────────────

// Run processes events until the lesson ends, the viewer closes the
// session, a setup error occurs, or ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	c.runCtx = ctx

	ticker := time.NewTicker(c.monitor.Interval())
	defer ticker.Stop()

	events := c.stream.Events()

	for {
		if done, err := c.finished(); done {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.handle(ev)
		case <-ticker.C:
			c.handle(pollTick{})
		case <-c.wake:
			c.drain()
		}
	}
}

func (c *Controller) finished() (bool, error) {
	if c.st.err != nil {
		return true, c.st.err
	}
	if c.st.phase == model.PhaseEnded {
		return true, nil
	}
	return false, nil
}

// post enqueues an event from any goroutine. It never blocks.
func (c *Controller) post(ev interface{}) {
	c.qmu.Lock()
	c.queue = append(c.queue, ev)
	c.qmu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// drain handles every queued event in order.
func (c *Controller) drain() {
	for {
		c.qmu.Lock()
		if len(c.queue) == 0 {
			c.qmu.Unlock()
			return
		}
		ev := c.queue[0]
		c.queue = c.queue[1:]
		c.qmu.Unlock()

		c.handle(ev)
	}
}

func (c *Controller) handle(ev interface{}) {
	switch e := ev.(type) {
	case startRequested:
		c.onStart()
	case connectFailed:
		c.onConnectFailed(e.err)
	case pollTick:
		c.onPollTick()
	case playerEnded:
		c.onPlayerEnded()
	case narrationTransition:
		c.onNarration(e.tr)
	case feedbackElapsed:
		c.onFeedbackElapsed(e)
	case optionSelected:
		c.onOptionSelected(e.index)
	case continueRequested:
		c.onContinue()
	case askRequested:
		c.onAskQuestion()
	case messageSent:
		c.onMessage(e.text)
	case videoPauseToggled:
		c.onVideoPauseToggled(e.paused)
	case closeRequested:
		c.onClose()
	case stream.Event:
		c.onStreamEvent(e)
	default:
		c.log.Warn().Type("event", ev).Msg("Unhandled event")
	}
	c.publish()
}

func (c *Controller) publish() {
	st := c.st
	snap := Snapshot{
		Phase:                st.phase,
		Status:               st.status,
		Step:                 st.current,
		Clarification:        st.clarification,
		ClarificationPending: st.clarificationPending,
		Quiz:                 st.quiz.State(),
		ManualChat:           st.manualChat,
		IntroDone:            st.introDone,
		ViewerPaused:         st.viewerPaused,
		Message:              st.message,
		StepsSeen:            st.stepsSeen,
		Err:                  st.err,
	}

	c.snapMu.Lock()
	c.snap = snap
	c.snapMu.Unlock()
}
