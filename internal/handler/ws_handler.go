package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/lesson-orchestrator/internal/config"
	"github.com/stemsi/lesson-orchestrator/internal/middleware"
	"github.com/stemsi/lesson-orchestrator/internal/model"
	"github.com/stemsi/lesson-orchestrator/internal/response"
	"github.com/stemsi/lesson-orchestrator/internal/service"
	ws "github.com/stemsi/lesson-orchestrator/internal/websocket"
)

const (
	pingInterval   = 30 * time.Second
	audioChunkSize = 16 * 1024
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler serves the lesson step stream.
type WSHandler struct {
	rdb           *redis.Client
	lessonService *service.LessonService
	log           zerolog.Logger
	upgrader      websocket.Upgrader
	connTTL       time.Duration
}

// NewWSHandler creates a new WSHandler. rdb may be nil; without it the
// one-connection-per-session rule is not enforced.
func NewWSHandler(rdb *redis.Client, lessonService *service.LessonService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:           rdb,
		lessonService: lessonService,
		log:           log.With().Str("component", "ws_handler").Logger(),
		upgrader:      buildUpgrader(allowedOrigins),
		connTTL:       6 * time.Hour,
	}
}

// LessonStream godoc
// WS /ws/v1/lesson?token=...&session_id=...
// Streams the lesson script one step at a time, synthesizes narration on
// request and answers viewer questions.
func (h *WSHandler) LessonStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID := claims.SessionID
	if q := c.Query("session_id"); q != "" && q != sessionID {
		response.Fail(c, http.StatusForbidden, response.ErrSessionMismatch)
		return
	}

	release, err := h.claimConnection(c.Request.Context(), sessionID, claims.ID)
	if err != nil {
		if errors.Is(err, errConnectionActive) {
			response.Fail(c, http.StatusConflict, response.ErrSessionActive)
			return
		}
		h.log.Error().Err(err).Msg("Claim connection")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	defer release()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := response.Logger(c, h.log).With().
		Str("learner_id", claims.LearnerID).
		Logger()

	wsLog.Info().Msg("Learner connected")

	done := make(chan struct{})
	defer close(done)
	go keepPinging(conn, done)

	ls := &lessonStream{
		conn:   conn,
		lesson: h.lessonService,
		log:    wsLog,
	}
	ls.run()
}

var errConnectionActive = errors.New("session already has a live connection")

// claimConnection records this token as the session's only live connection.
func (h *WSHandler) claimConnection(ctx context.Context, sessionID, tokenID string) (func(), error) {
	if h.rdb == nil {
		return func() {}, nil
	}

	key := config.CacheKey.SessionConnectionKey(sessionID)
	ok, err := h.rdb.SetNX(ctx, key, tokenID, h.connTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errConnectionActive
	}
	return func() {
		h.rdb.Del(context.Background(), key)
	}, nil
}

func keepPinging(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		}
	}
}

// lessonStream is the server side of one connection. Only run writes
// data frames; pings go through WriteControl.
type lessonStream struct {
	conn           *websocket.Conn
	lesson         *service.LessonService
	log            zerolog.Logger
	next           int
	clarifications int
}

func (s *lessonStream) run() {
	ws.ExtendOnPong(s.conn)

	if err := ws.WriteTyped(s.conn, ws.InitializingMessage{
		Type:    ws.TypeInitializing,
		Message: "Preparing your lesson: " + s.lesson.Script().Title,
	}); err != nil {
		return
	}
	if err := s.sendNextStep(); err != nil {
		return
	}

	for {
		data, err := ws.ReadFrame(s.conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				s.log.Debug().Msg("Connection closed")
			}
			return
		}

		frame, err := ws.ParseClientFrame(data)
		if err != nil {
			s.log.Warn().Err(err).Msg("Ignoring client frame")
			continue
		}

		switch frame.Type {
		case ws.TypeNarrationRequest:
			err = s.narrate(frame.NarrationText)
		case ws.TypeStepCompleted:
			err = s.completeStep()
		case ws.TypeUserQuestion:
			err = s.clarify(frame.QuestionText)
		case ws.TypeCloseSession:
			s.log.Info().Str("requested_session", frame.SessionID).Msg("Learner closed the session")
			ws.WriteClose(s.conn, "session closed")
			return
		}
		if err != nil {
			s.log.Warn().Err(err).Str("type", string(frame.Type)).Msg("Write failed")
			return
		}
	}
}

func (s *lessonStream) sendNextStep() error {
	step, ok := s.lesson.StepAt(s.next)
	if !ok {
		s.log.Info().Msg("Script exhausted")
		return nil
	}
	s.next++
	return s.sendStep(ws.TypeNextStep, step)
}

func (s *lessonStream) sendStep(t ws.MessageType, step *model.Step) error {
	raw, err := json.Marshal(step)
	if err != nil {
		return err
	}
	s.log.Debug().Str("type", string(t)).Str("step_id", step.ID).Msg("Sending step")
	return ws.WriteTyped(s.conn, ws.StepMessage{Type: t, Step: raw})
}

func (s *lessonStream) completeStep() error {
	if err := ws.WriteTyped(s.conn, ws.SignalMessage{Type: ws.TypeStepAcknowledged}); err != nil {
		return err
	}
	return s.sendNextStep()
}

func (s *lessonStream) narrate(text string) error {
	audio := s.lesson.Synthesize(text)
	for start := 0; start < len(audio); start += audioChunkSize {
		end := start + audioChunkSize
		if end > len(audio) {
			end = len(audio)
		}
		if err := ws.WriteTyped(s.conn, ws.AudioChunkMessage{Type: ws.TypeAudioChunk, Data: audio[start:end]}); err != nil {
			return err
		}
	}
	return ws.WriteTyped(s.conn, ws.SignalMessage{Type: ws.TypeAudioEnd})
}

func (s *lessonStream) clarify(question string) error {
	if err := ws.WriteTyped(s.conn, ws.SignalMessage{Type: ws.TypeLoadInstruction}); err != nil {
		return err
	}
	s.clarifications++
	return s.sendStep(ws.TypeClarificationResponse, s.lesson.Clarify(question, s.clarifications))
}
