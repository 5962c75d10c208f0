package narration

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingRequester struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingRequester) RequestNarration(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return nil
}

type recordingSink struct {
	mu    sync.Mutex
	clips [][]byte
}

func (s *recordingSink) Play(_ context.Context, audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clips = append(s.clips, append([]byte{}, audio...))
	return nil
}

func TestStreamNarratorPlaysBufferedClip(t *testing.T) {
	req := &recordingRequester{}
	sink := &recordingSink{}
	n := NewStreamNarrator(req, sink, zerolog.Nop())

	events := make(chan string, 4)
	n.OnStarted(func() { events <- "started" })
	n.OnEnded(func() { events <- "ended" })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Start(ctx)

	if err := n.Speak("Light drives photosynthesis."); err != nil {
		t.Fatalf("speak: %v", err)
	}
	n.Feed([]byte{1, 2})
	n.Feed([]byte{3})
	n.Finish()

	for _, want := range []string{"started", "ended"} {
		select {
		case got := <-events:
			if got != want {
				t.Fatalf("expected %s, got %s", want, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}

	if len(req.texts) != 1 || req.texts[0] != "Light drives photosynthesis." {
		t.Fatalf("unexpected requests: %v", req.texts)
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.clips) != 1 || !bytes.Equal(sink.clips[0], []byte{1, 2, 3}) {
		t.Fatalf("unexpected clips: %v", sink.clips)
	}
}

func TestStreamNarratorEmptyClipStillEnds(t *testing.T) {
	sink := &recordingSink{}
	n := NewStreamNarrator(&recordingRequester{}, sink, zerolog.Nop())

	ended := make(chan struct{}, 1)
	n.OnEnded(func() { ended <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Start(ctx)

	n.Finish()

	select {
	case <-ended:
	case <-time.After(time.Second):
		t.Fatal("expected ended for empty clip")
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.clips) != 0 {
		t.Fatal("empty clip must not reach the sink")
	}
}

func TestStreamNarratorFinishNeverBlocksWhenQueueFull(t *testing.T) {
	n := NewStreamNarrator(&recordingRequester{}, &recordingSink{}, zerolog.Nop())

	var mu sync.Mutex
	ended := 0
	n.OnEnded(func() {
		mu.Lock()
		ended++
		mu.Unlock()
	})

	// Nothing drains the queue: the first clipQueueSize clips wait, the rest are skipped.
	done := make(chan struct{})
	go func() {
		for i := 0; i < clipQueueSize+3; i++ {
			n.Finish()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Finish blocked on a full queue")
	}

	mu.Lock()
	defer mu.Unlock()
	if ended != 3 {
		t.Fatalf("expected 3 skipped clips to end at once, got %d", ended)
	}
}

func TestStreamNarratorFinishAfterStopEndsAtOnce(t *testing.T) {
	sink := &recordingSink{}
	n := NewStreamNarrator(&recordingRequester{}, sink, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.Start(ctx)

	var events []string
	n.OnStarted(func() { events = append(events, "started") })
	n.OnEnded(func() { events = append(events, "ended") })

	n.Feed([]byte{1, 2, 3})
	n.Finish()

	if len(events) != 2 || events[0] != "started" || events[1] != "ended" {
		t.Fatalf("expected started/ended right away, got %v", events)
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.clips) != 0 {
		t.Fatal("stopped narrator must not play")
	}
}

func TestPacedSinkDurationAndOutput(t *testing.T) {
	var out bytes.Buffer
	s := PacedSink{BytesPerSecond: 1000, Out: &out}

	if d := s.Duration(500); d != 500*time.Millisecond {
		t.Fatalf("expected 500ms, got %s", d)
	}

	start := time.Now()
	if err := s.Play(context.Background(), make([]byte, 20)); err != nil {
		t.Fatalf("play: %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("expected playback to take the clip duration")
	}
	if out.Len() != 20 {
		t.Fatalf("expected 20 bytes written, got %d", out.Len())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Play(ctx, make([]byte, 100000)); err == nil {
		t.Fatal("expected context error")
	}
}
