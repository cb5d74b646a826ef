package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/compasshq/compass-backend/internal/platform/apierr"
	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/repos"
	"github.com/compasshq/compass-backend/internal/types"
)

type MemoryService interface {
	ListMemories(ctx context.Context, userID uuid.UUID) ([]*types.Memory, error)
	DeleteMemory(ctx context.Context, userID, memoryID uuid.UUID) error
}

type memoryService struct {
	log        *logger.Logger
	memoryRepo repos.MemoryRepo
}

func NewMemoryService(log *logger.Logger, memoryRepo repos.MemoryRepo) MemoryService {
	return &memoryService{log: log.With("service", "MemoryService"), memoryRepo: memoryRepo}
}

func (ms *memoryService) ListMemories(ctx context.Context, userID uuid.UUID) ([]*types.Memory, error) {
	memories, err := ms.memoryRepo.ListByUserID(ctx, nil, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	return memories, nil
}

func (ms *memoryService) DeleteMemory(ctx context.Context, userID, memoryID uuid.UUID) error {
	n, err := ms.memoryRepo.DeleteByID(ctx, nil, userID, memoryID)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	if n == 0 {
		return apierr.NotFound("memory_not_found", fmt.Errorf("memory %s not found", memoryID))
	}
	return nil
}
