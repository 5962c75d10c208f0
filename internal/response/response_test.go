package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newEngine(h gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", h)
	return r
}

func TestRequestIDHeaderKeptWhenSafe(t *testing.T) {
	r := newEngine(func(c *gin.Context) { Success(c, http.StatusOK, nil) })

	tests := []struct {
		name string
		in   string
		keep bool
	}{
		{"uuid", "3f2b8c1e-0d5a-4c1e-9a57-6f1f0b3c2d11", true},
		{"token", "req_42.retry", true},
		{"empty", "", false},
		{"spaces", "bad id", false},
		{"newline", "bad\nid", false},
		{"too long", strings.Repeat("a", maxRequestIDLen+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.in != "" {
				req.Header["X-Request-Id"] = []string{tt.in}
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get("X-Request-ID")
			if got == "" {
				t.Fatal("missing X-Request-ID")
			}
			if (got == tt.in) != tt.keep {
				t.Errorf("X-Request-ID = %q for input %q, keep = %v", got, tt.in, tt.keep)
			}
		})
	}
}

func TestMetadataCarriesSessionID(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		SetSessionID(c, "sess-1")
		Fail(c, http.StatusForbidden, ErrSessionMismatch)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var body Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Metadata.SessionID != "sess-1" {
		t.Errorf("session_id = %q", body.Metadata.SessionID)
	}
	if body.Metadata.RequestID != w.Header().Get("X-Request-ID") {
		t.Errorf("request_id %q does not match header %q", body.Metadata.RequestID, w.Header().Get("X-Request-ID"))
	}
	if body.Error == nil || body.Error.Code != ErrSessionMismatch {
		t.Errorf("error = %+v", body.Error)
	}
}

func TestMetadataOmitsSessionWhenUnbound(t *testing.T) {
	r := newEngine(func(c *gin.Context) { Success(c, http.StatusOK, gin.H{"ok": true}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Contains(w.Body.String(), "session_id") {
		t.Errorf("unexpected session_id in %s", w.Body.String())
	}
}

func TestEventStreamFrames(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		StartEventStream(c)
		if err := WriteEvent(c, gin.H{"type": "attached"}); err != nil {
			t.Errorf("write map: %v", err)
		}
		if err := WriteEvent(c, []byte(`{"to":"ENDED"}`)); err != nil {
			t.Errorf("write raw: %v", err)
		}
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	want := "data: {\"type\":\"attached\"}\n\ndata: {\"to\":\"ENDED\"}\n\n"
	if w.Body.String() != want {
		t.Errorf("body = %q, want %q", w.Body.String(), want)
	}
}

func TestWriteEventRejectsUnmarshalable(t *testing.T) {
	r := newEngine(func(c *gin.Context) {
		StartEventStream(c)
		if err := WriteEvent(c, make(chan int)); err == nil {
			t.Error("expected marshal error")
		}
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
