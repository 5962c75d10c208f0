package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/lesson-orchestrator/internal/response"
	"github.com/stemsi/lesson-orchestrator/internal/service"
	"github.com/stemsi/lesson-orchestrator/internal/validator"
)

// AuthHandler issues lesson credentials.
type AuthHandler struct {
	authService *service.AuthService
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// IssueSessionRequest is the body of POST /api/v1/sessions.
type IssueSessionRequest struct {
	LearnerID string            `json:"learner_id" validate:"required,max=64"`
	Role      service.TokenType `json:"role" validate:"omitempty,oneof=learner observer"`
	// SessionID joins an existing session. Observers must name one.
	SessionID string `json:"session_id" validate:"required_if=Role observer,omitempty,uuid"`
}

// IssueSession godoc
// POST /api/v1/sessions
// Mints a credential for a new lesson session, or an observer credential for an existing one.
func (h *AuthHandler) IssueSession(c *gin.Context) {
	var req IssueSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if req.Role == "" {
		req.Role = service.TokenTypeLearner
	}

	issued, err := h.authService.GenerateToken(req.Role, req.LearnerID, req.SessionID)
	if err != nil {
		h.log.Error().Err(err).Msg("Generate token")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SetSessionID(c, issued.SessionID)
	reqLog := response.Logger(c, h.log)
	reqLog.Info().
		Str("learner_id", req.LearnerID).
		Str("role", string(req.Role)).
		Msg("Session credential issued")

	response.Success(c, http.StatusCreated, issued)
}
