package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/services"
)

type UserHandler struct {
	log       *logger.Logger
	interview services.InterviewService
}

func NewUserHandler(log *logger.Logger, interview services.InterviewService) *UserHandler {
	return &UserHandler{log: log.With("handler", "UserHandler"), interview: interview}
}

// Status reports where the user is in onboarding; clients gate the main
// chat UI on interview_state.
func (h *UserHandler) Status(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	state, err := h.interview.State(c.Request.Context(), uid)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"interview_state": state})
}
