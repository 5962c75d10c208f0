package playback

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/lesson-orchestrator/internal/ledger"
	"github.com/stemsi/lesson-orchestrator/internal/model"
)

// scriptedPlayer replays a fixed sequence of positions, one per poll.
type scriptedPlayer struct {
	times  []float64
	idx    int
	status model.PlayerStatus
	err    error
	pauses int
}

func (p *scriptedPlayer) CurrentTime() (float64, error) {
	if p.err != nil {
		return 0, p.err
	}
	t := p.times[p.idx]
	if p.idx < len(p.times)-1 {
		p.idx++
	}
	return t, nil
}

func (p *scriptedPlayer) Status() (model.PlayerStatus, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.status, nil
}

func (p *scriptedPlayer) Play() error  { p.status = model.PlayerPlaying; return nil }
func (p *scriptedPlayer) Pause() error { p.pauses++; return nil }

func newTestMonitor(p Player) (*Monitor, *ledger.Set) {
	crossed := ledger.NewSet()
	return NewMonitor(p, crossed, Options{}, zerolog.Nop()), crossed
}

func TestMonitorFiresOnceInsideWindow(t *testing.T) {
	p := &scriptedPlayer{times: []float64{9.0, 9.8, 10.2, 11.0}, status: model.PlayerPlaying}
	m, crossed := newTestMonitor(p)

	var fired []Trigger
	for i := 0; i < 4; i++ {
		if tr, ok := m.Check("s1", 10); ok {
			fired = append(fired, tr)
		}
	}

	if len(fired) != 1 {
		t.Fatalf("expected exactly one trigger, got %d", len(fired))
	}
	if fired[0].Reason != ReasonMarkReached || fired[0].At != 10.2 {
		t.Fatalf("unexpected trigger: %+v", fired[0])
	}
	if p.pauses != 1 {
		t.Fatalf("expected exactly one pause, got %d", p.pauses)
	}
	if !crossed.Has("s1") {
		t.Fatal("expected s1 in crossed ledger")
	}
}

func TestMonitorAtMostOncePastMark(t *testing.T) {
	p := &scriptedPlayer{times: []float64{10.0}, status: model.PlayerPlaying}
	m, _ := newTestMonitor(p)

	count := 0
	for i := 0; i < 50; i++ {
		if _, ok := m.Check("s1", 10); ok {
			count++
		}
	}
	if count != 1 || p.pauses != 1 {
		t.Fatalf("expected one trigger and one pause, got %d / %d", count, p.pauses)
	}
}

func TestMonitorWindowBounds(t *testing.T) {
	cases := []struct {
		name   string
		at     float64
		status model.PlayerStatus
		want   bool
	}{
		{"before mark", 9.99, model.PlayerPlaying, false},
		{"at mark", 10, model.PlayerPlaying, true},
		{"inside window", 11.49, model.PlayerPlaying, true},
		{"window end is exclusive", 11.5, model.PlayerPlaying, false},
		{"paused inside window", 10.5, model.PlayerPaused, false},
		{"buffering inside window", 10.5, model.PlayerBuffering, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &scriptedPlayer{times: []float64{tc.at}, status: tc.status}
			m, _ := newTestMonitor(p)
			if _, ok := m.Check("s1", 10); ok != tc.want {
				t.Fatalf("expected fired=%v", tc.want)
			}
		})
	}
}

func TestMonitorEndedBeforeMarkFiresImmediately(t *testing.T) {
	p := &scriptedPlayer{times: []float64{4.0}, status: model.PlayerEnded}
	m, _ := newTestMonitor(p)

	tr, ok := m.Check("s1", 10)
	if !ok || tr.Reason != ReasonVideoEnded {
		t.Fatalf("expected video-ended trigger, got %+v %v", tr, ok)
	}
	if _, ok := m.Ended("s1"); ok {
		t.Fatal("natural ended event after poll must not fire again")
	}
}

func TestMonitorEndedEventThenPollSameTick(t *testing.T) {
	p := &scriptedPlayer{times: []float64{10.1}, status: model.PlayerPlaying}
	m, _ := newTestMonitor(p)

	_, endedFired := m.Ended("s1")
	_, pollFired := m.Check("s1", 10)

	if !endedFired || pollFired {
		t.Fatalf("expected only the first source to fire, got ended=%v poll=%v", endedFired, pollFired)
	}
	if p.pauses != 0 {
		t.Fatalf("expected no pause after ended, got %d", p.pauses)
	}
}

func TestMonitorPlayerErrorsAreRetried(t *testing.T) {
	p := &scriptedPlayer{times: []float64{10.2}, status: model.PlayerPlaying, err: errors.New("player api missing")}
	m, crossed := newTestMonitor(p)

	if _, ok := m.Check("s1", 10); ok {
		t.Fatal("player error must not fire")
	}
	if crossed.Has("s1") {
		t.Fatal("player error must not record a crossing")
	}

	p.err = nil
	if _, ok := m.Check("s1", 10); !ok {
		t.Fatal("expected trigger once the player is ready")
	}
}

func TestMonitorStepsAreIndependent(t *testing.T) {
	p := &scriptedPlayer{times: []float64{10.2}, status: model.PlayerPlaying}
	m, _ := newTestMonitor(p)

	_, a := m.Check("s1", 10)
	_, b := m.Check("s2", 10)
	if !a || !b {
		t.Fatalf("expected both steps to fire once, got %v %v", a, b)
	}
}

func TestHeadlessPlayerClock(t *testing.T) {
	base := time.Unix(0, 0)
	now := base
	p := NewHeadlessPlayer(20 * time.Second)
	p.now = func() time.Time { return now }

	if st, _ := p.Status(); st != model.PlayerUnstarted {
		t.Fatalf("expected unstarted, got %s", st)
	}

	p.Play()
	now = base.Add(5 * time.Second)
	if pos, _ := p.CurrentTime(); pos != 5 {
		t.Fatalf("expected 5s, got %v", pos)
	}

	p.Pause()
	now = base.Add(8 * time.Second)
	if pos, _ := p.CurrentTime(); pos != 5 {
		t.Fatalf("expected paused at 5s, got %v", pos)
	}
	if st, _ := p.Status(); st != model.PlayerPaused {
		t.Fatalf("expected paused, got %s", st)
	}

	p.Play()
	now = base.Add(30 * time.Second)
	if st, _ := p.Status(); st != model.PlayerEnded {
		t.Fatalf("expected ended, got %s", st)
	}
	if pos, _ := p.CurrentTime(); pos != 20 {
		t.Fatalf("expected clamp at 20s, got %v", pos)
	}
}
