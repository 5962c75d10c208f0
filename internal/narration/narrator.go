package narration

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Requester sends narration text to be synthesized.
type Requester interface {
	RequestNarration(text string) error
}

// AudioSink plays synthesized audio and returns once playback completes.
type AudioSink interface {
	Play(ctx context.Context, audio []byte) error
}

const clipQueueSize = 16

// StreamNarrator is a Speaker whose audio arrives over the lesson stream.
// Speak sends the request; Feed buffers AUDIO_CHUNK payloads and Finish
// queues the buffered clip for playback when AUDIO_END arrives.
type StreamNarrator struct {
	requester Requester
	sink      AudioSink
	log       zerolog.Logger
	clips     chan []byte

	mu      sync.Mutex
	buf     []byte
	stopped bool
	started []func()
	ended   []func()
}

// NewStreamNarrator creates a narrator. Call Start to begin playback.
func NewStreamNarrator(requester Requester, sink AudioSink, log zerolog.Logger) *StreamNarrator {
	return &StreamNarrator{
		requester: requester,
		sink:      sink,
		log:       log.With().Str("component", "stream_narrator").Logger(),
		clips:     make(chan []byte, clipQueueSize),
	}
}

func (n *StreamNarrator) Speak(text string) error {
	return n.requester.RequestNarration(text)
}

func (n *StreamNarrator) OnStarted(cb func()) {
	n.mu.Lock()
	n.started = append(n.started, cb)
	n.mu.Unlock()
}

func (n *StreamNarrator) OnEnded(cb func()) {
	n.mu.Lock()
	n.ended = append(n.ended, cb)
	n.mu.Unlock()
}

// Feed appends one chunk of audio for the in-flight narration.
func (n *StreamNarrator) Feed(chunk []byte) {
	n.mu.Lock()
	n.buf = append(n.buf, chunk...)
	n.mu.Unlock()
}

// Finish queues the buffered audio. An empty clip still produces a started/ended pair.
// It never blocks: when the queue is full or playback has stopped, the clip is
// skipped and its started/ended pair fires at once so progression continues.
func (n *StreamNarrator) Finish() {
	n.mu.Lock()
	clip := n.buf
	n.buf = nil
	stopped := n.stopped
	n.mu.Unlock()

	if !stopped {
		select {
		case n.clips <- clip:
			return
		default:
		}
	}

	n.log.Warn().
		Int("bytes", len(clip)).
		Bool("stopped", stopped).
		Msg("Narration queue unavailable, skipping clip")
	n.fire(&n.started)
	n.fire(&n.ended)
}

// Start plays queued clips in order until ctx is done. Call in a goroutine.
func (n *StreamNarrator) Start(ctx context.Context) {
	n.log.Debug().Msg("Narrator started")
	for {
		select {
		case <-ctx.Done():
			n.mu.Lock()
			n.stopped = true
			n.mu.Unlock()
			n.log.Debug().Msg("Narrator stopped")
			return
		case clip := <-n.clips:
			n.play(ctx, clip)
		}
	}
}

func (n *StreamNarrator) play(ctx context.Context, clip []byte) {
	n.fire(&n.started)
	if len(clip) > 0 {
		if err := n.sink.Play(ctx, clip); err != nil && ctx.Err() == nil {
			n.log.Warn().Err(err).Int("bytes", len(clip)).Msg("Narration playback failed")
		}
	}
	n.fire(&n.ended)
}

func (n *StreamNarrator) fire(cbs *[]func()) {
	n.mu.Lock()
	list := append([]func(){}, (*cbs)...)
	n.mu.Unlock()
	for _, cb := range list {
		cb()
	}
}
