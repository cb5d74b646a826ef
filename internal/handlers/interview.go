package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/services"
	"github.com/compasshq/compass-backend/internal/sse"
)

type InterviewHandler struct {
	log       *logger.Logger
	interview services.InterviewService
}

func NewInterviewHandler(log *logger.Logger, interview services.InterviewService) *InterviewHandler {
	return &InterviewHandler{log: log.With("handler", "InterviewHandler"), interview: interview}
}

type interviewChatRequest struct {
	Message string `json:"message"`
}

// Chat streams one interview exchange. An empty message on a fresh
// interview elicits the opening greeting. When the exchange moves the
// interview to COMPLETING, that is signalled as a final chunk-level
// event before [DONE].
func (h *InterviewHandler) Chat(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	var req interviewChatRequest
	_ = c.ShouldBindJSON(&req)

	stream, err := sse.NewStream(c.Writer)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}

	_, completing, err := h.interview.Chat(c.Request.Context(), uid, req.Message, func(delta string) {
		_ = stream.Chunk(delta)
	})
	if err != nil {
		StreamError(stream, h.log, err)
		return
	}
	if completing {
		stream.Event("interview_completing")
	}
	stream.Done()
}

func (h *InterviewHandler) Initialize(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	if err := h.interview.Initialize(c.Request.Context(), uid); err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"initialized": true})
}
