package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/lesson-orchestrator/internal/model"
	ws "github.com/stemsi/lesson-orchestrator/internal/websocket"
)

var testUpgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func newTestServer(t *testing.T, handle func(conn *websocket.Conn, r *http.Request)) (string, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), &hits
}

func nextEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev, ok := <-c.Events():
		if !ok {
			t.Fatal("events channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil
}

// nextDomainEvent skips status transitions.
func nextDomainEvent(t *testing.T, c *Client) Event {
	t.Helper()
	for {
		ev := nextEvent(t, c)
		if _, ok := ev.(StatusChanged); !ok {
			return ev
		}
	}
}

func TestConnectWithoutCredentialDoesNotDial(t *testing.T) {
	url, hits := newTestServer(t, func(*websocket.Conn, *http.Request) {})
	c := New(Options{URL: url}, zerolog.Nop())

	err := c.Connect(context.Background())
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if atomic.LoadInt32(hits) != 0 {
		t.Fatal("expected no connection attempt")
	}
	if c.Status() != model.ConnStatusIdle {
		t.Fatalf("expected idle status, got %s", c.Status())
	}
}

func TestCredentialAndSessionAppendedToTarget(t *testing.T) {
	got := make(chan string, 2)
	url, _ := newTestServer(t, func(conn *websocket.Conn, r *http.Request) {
		got <- r.URL.Query().Get("token")
		got <- r.URL.Query().Get("session_id")
		conn.ReadMessage()
	})
	c := New(Options{URL: url + "?lesson=7", Token: "tok", SessionID: "sess-1"}, zerolog.Nop())
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.CloseSession()

	if tok := <-got; tok != "tok" {
		t.Fatalf("expected token tok, got %q", tok)
	}
	if sid := <-got; sid != "sess-1" {
		t.Fatalf("expected session sess-1, got %q", sid)
	}
}

func TestEventsDecodedInOrderAndGarbageDropped(t *testing.T) {
	url, _ := newTestServer(t, func(conn *websocket.Conn, _ *http.Request) {
		frames := []string{
			`{"type":"INITIALIZING","message":"warming up"}`,
			`not json at all`,
			`{"type":"MYSTERY"}`,
			`{"type":"NEXT_STEP","step":{"id":"s1","narrationText":"hi","pauseAtSeconds":10}}`,
			`{"type":"LOAD_INSTRUCTION"}`,
			`{"type":"CLARIFICATION_RESPONSE","step":{"id":"c1","narrationText":"because"}}`,
			`{"type":"AUDIO_CHUNK","data":"AQID"}`,
			`{"type":"AUDIO_END"}`,
			`{"type":"StepCompleted"}`,
		}
		for _, f := range frames {
			conn.WriteMessage(websocket.TextMessage, []byte(f))
		}
		conn.ReadMessage()
	})

	c := New(Options{URL: url, Token: "tok"}, zerolog.Nop())
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.CloseSession()

	if ev, ok := nextDomainEvent(t, c).(SessionInitializing); !ok || ev.Message != "warming up" {
		t.Fatalf("expected SessionInitializing, got %#v", ev)
	}
	if ev, ok := nextDomainEvent(t, c).(StepArrived); !ok || ev.Step.ID != "s1" {
		t.Fatalf("expected StepArrived s1, got %#v", ev)
	}
	if _, ok := nextDomainEvent(t, c).(ClarificationPending); !ok {
		t.Fatal("expected ClarificationPending")
	}
	if ev, ok := nextDomainEvent(t, c).(ClarificationArrived); !ok || ev.Step.Kind != model.StepKindClarification {
		t.Fatalf("expected ClarificationArrived, got %#v", ev)
	}
	if ev, ok := nextDomainEvent(t, c).(NarrationChunk); !ok || len(ev.Data) != 3 {
		t.Fatalf("expected 3-byte NarrationChunk, got %#v", ev)
	}
	if _, ok := nextDomainEvent(t, c).(NarrationEnded); !ok {
		t.Fatal("expected NarrationEnded")
	}
	if _, ok := nextDomainEvent(t, c).(StepAcknowledged); !ok {
		t.Fatal("expected StepAcknowledged")
	}
}

func TestOutboundIntents(t *testing.T) {
	frames := make(chan ws.ClientFrame, 8)
	url, _ := newTestServer(t, func(conn *websocket.Conn, _ *http.Request) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			f, err := ws.ParseClientFrame(data)
			if err == nil {
				frames <- f
			}
		}
	})

	c := New(Options{URL: url, Token: "tok", SessionID: "sess-9"}, zerolog.Nop())
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if err := c.RequestNarration("Plants eat light."); err != nil {
		t.Fatalf("request narration: %v", err)
	}
	if err := c.AcknowledgeStepComplete(); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if err := c.SendFreeformMessage("why green?"); err != nil {
		t.Fatalf("question: %v", err)
	}
	if err := c.CloseSession(); err != nil {
		t.Fatalf("close: %v", err)
	}

	want := []ws.MessageType{ws.TypeNarrationRequest, ws.TypeStepCompleted, ws.TypeUserQuestion, ws.TypeCloseSession}
	for i, typ := range want {
		select {
		case f := <-frames:
			if f.Type != typ {
				t.Fatalf("frame %d: expected %s, got %s", i, typ, f.Type)
			}
			if typ == ws.TypeNarrationRequest && f.NarrationText != "Plants eat light." {
				t.Fatalf("unexpected narration text %q", f.NarrationText)
			}
			if typ == ws.TypeUserQuestion && f.QuestionText != "why green?" {
				t.Fatalf("unexpected question %q", f.QuestionText)
			}
			if typ == ws.TypeCloseSession && f.SessionID != "sess-9" {
				t.Fatalf("unexpected session id %q", f.SessionID)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for frame %d", i)
		}
	}

	if err := c.RequestNarration(""); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestDisconnectIsObservableAndFinal(t *testing.T) {
	url, _ := newTestServer(t, func(conn *websocket.Conn, _ *http.Request) {
		// Drop the connection without a close handshake.
	})

	c := New(Options{URL: url, Token: "tok"}, zerolog.Nop())
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	var disconnects int
	deadline := time.After(2 * time.Second)
	for done := false; !done; {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				done = true
				continue
			}
			if sc, isStatus := ev.(StatusChanged); isStatus && sc.Status == model.ConnStatusDisconnected {
				disconnects++
			}
		case <-deadline:
			t.Fatal("timed out waiting for events to close")
		}
	}

	if disconnects != 1 {
		t.Fatalf("expected exactly one disconnected event, got %d", disconnects)
	}
	if c.Status() != model.ConnStatusDisconnected {
		t.Fatalf("expected disconnected, got %s", c.Status())
	}
	if err := c.AcknowledgeStepComplete(); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}
	if err := c.Connect(context.Background()); !errors.Is(err, ErrAlreadyConnected) {
		t.Fatalf("expected no reconnection, got %v", err)
	}
}

func TestWritesBeforeConnectFail(t *testing.T) {
	c := New(Options{URL: "ws://127.0.0.1:1", Token: "tok"}, zerolog.Nop())
	if err := c.AcknowledgeStepComplete(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}
