package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/compasshq/compass-backend/internal/platform/apierr"
	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/services"
	"github.com/compasshq/compass-backend/internal/sse"
)

type MaterialHandler struct {
	log            *logger.Logger
	material       services.MaterialService
	recommendation services.RecommendationService
}

func NewMaterialHandler(
	log *logger.Logger,
	material services.MaterialService,
	recommendation services.RecommendationService,
) *MaterialHandler {
	return &MaterialHandler{
		log:            log.With("handler", "MaterialHandler"),
		material:       material,
		recommendation: recommendation,
	}
}

func (h *MaterialHandler) ListBooks(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	books, err := h.recommendation.GetBooks(c.Request.Context(), uid)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"books": books})
}

func (h *MaterialHandler) ListVideos(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	videos, err := h.recommendation.GetVideos(c.Request.Context(), uid)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"videos": videos})
}

type feedbackRequest struct {
	MaterialType string    `json:"material_type"`
	MaterialID   uuid.UUID `json:"material_id"`
	Rating       int       `json:"rating"`
	Review       string    `json:"review"`
	Completed    *bool     `json:"completed"`
}

func (h *MaterialHandler) SubmitFeedback(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, h.log, apierr.BadRequest("invalid_body", fmt.Errorf("invalid request body: %w", err)))
		return
	}
	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}
	fb, err := h.material.SubmitFeedback(c.Request.Context(), uid, services.FeedbackInput{
		MaterialType: req.MaterialType,
		MaterialID:   req.MaterialID,
		Rating:       req.Rating,
		Review:       req.Review,
		Completed:    completed,
	})
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, fb)
}

func (h *MaterialHandler) ListFeedback(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	feedback, err := h.material.ListFeedback(c.Request.Context(), uid)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"feedback": feedback})
}

func (h *MaterialHandler) bookID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apierr.BadRequest("invalid_book_id", fmt.Errorf("invalid book id: %w", err))
	}
	return id, nil
}

func (h *MaterialHandler) GenerateChapterSummaries(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	bookID, err := h.bookID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	summaries, err := h.material.GenerateChapterSummaries(c.Request.Context(), uid, bookID)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"chapters": summaries})
}

func (h *MaterialHandler) GetChapterSummaries(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	bookID, err := h.bookID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	summaries, err := h.material.GetChapterSummaries(c.Request.Context(), uid, bookID)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"chapters": summaries})
}

type discussChapterRequest struct {
	Chapter int    `json:"chapter"`
	Message string `json:"message"`
}

func (h *MaterialHandler) DiscussChapter(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	bookID, err := h.bookID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	var req discussChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, h.log, apierr.BadRequest("invalid_body", fmt.Errorf("invalid request body: %w", err)))
		return
	}

	stream, err := sse.NewStream(c.Writer)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	_, err = h.material.DiscussChapter(c.Request.Context(), uid, bookID, req.Chapter, req.Message, func(delta string) {
		_ = stream.Chunk(delta)
	})
	if err != nil {
		StreamError(stream, h.log, err)
		return
	}
	stream.Done()
}
