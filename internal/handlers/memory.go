package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/compasshq/compass-backend/internal/platform/apierr"
	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/services"
)

type MemoryHandler struct {
	log    *logger.Logger
	memory services.MemoryService
}

func NewMemoryHandler(log *logger.Logger, memory services.MemoryService) *MemoryHandler {
	return &MemoryHandler{log: log.With("handler", "MemoryHandler"), memory: memory}
}

func (h *MemoryHandler) ListMemories(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	memories, err := h.memory.ListMemories(c.Request.Context(), uid)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"memories": memories})
}

func (h *MemoryHandler) DeleteMemory(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	memoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, h.log, apierr.BadRequest("invalid_memory_id", fmt.Errorf("invalid memory id: %w", err)))
		return
	}
	if err := h.memory.DeleteMemory(c.Request.Context(), uid, memoryID); err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}
