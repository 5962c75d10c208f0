package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/lesson-orchestrator/internal/config"
	"github.com/stemsi/lesson-orchestrator/internal/response"
)

const keepAliveInterval = 30 * time.Second

// MonitorHandler relays a session's phase transitions over SSE.
type MonitorHandler struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewMonitorHandler(rdb *redis.Client, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		rdb: rdb,
		log: log.With().Str("component", "monitor_handler").Logger(),
	}
}

// SessionMonitorSSE godoc
// GET /api/v1/sessions/:id/monitor
func (h *MonitorHandler) SessionMonitorSSE(c *gin.Context) {
	if h.rdb == nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrMonitorDisabled)
		return
	}

	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	reqCtx := c.Request.Context()
	log := response.Logger(c, h.log)

	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.SessionMonitorChannel(sessionID))
	defer pubsub.Close()

	// Wait for the subscription so nothing published after "attached" is lost.
	if _, err := pubsub.Receive(reqCtx); err != nil {
		log.Error().Err(err).Msg("Subscribe monitor channel")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.StartEventStream(c)
	if err := response.WriteEvent(c, gin.H{"type": "attached", "session_id": sessionID}); err != nil {
		return
	}

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	log.Info().Msg("Observer attached to session monitor")

	ping := gin.H{"type": "ping"}

	for {
		select {
		case <-reqCtx.Done():
			log.Info().Msg("Observer detached from session monitor")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Forward raw JSON directly, no deserialization needed.
			if err := response.WriteEvent(c, []byte(msg.Payload)); err != nil {
				log.Debug().Err(err).Msg("Observer write failed")
				return
			}

		case <-keepAliveTicker.C:
			if err := response.WriteEvent(c, ping); err != nil {
				return
			}
		}
	}
}
