package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/platform/openai"
	"github.com/compasshq/compass-backend/internal/platform/rediscache"
	"github.com/compasshq/compass-backend/internal/prompts"
	"github.com/compasshq/compass-backend/internal/repos"
	"github.com/compasshq/compass-backend/internal/types"
)

const (
	// historyWindow is how many recent turns are sent verbatim; older
	// turns are folded into the rolling summary.
	historyWindow = 30

	goalsContextLimit    = 10
	memoriesContextLimit = 15

	summaryCacheTTL = 5 * time.Minute
)

// StreamParams describes one chat generation request.
type StreamParams struct {
	UserID  uuid.UUID
	ChatID  uuid.UUID
	Message string
	Images  []openai.ImageInput
	// OnDelta receives rendered text chunks in generation order.
	OnDelta func(delta string)
}

type StreamService interface {
	// StreamChat runs a full coached exchange: builds the system
	// instruction from goals, memories and the rolling summary, streams
	// the reply, persists both turns once complete, and kicks off fact
	// extraction in the background. Returns the assistant's full reply.
	StreamChat(ctx context.Context, p StreamParams) (string, error)
}

type streamService struct {
	log         *logger.Logger
	chatRepo    repos.ChatRepo
	messageRepo repos.MessageRepo
	goalRepo    repos.GoalRepo
	memoryRepo  repos.MemoryRepo
	chatService ChatService
	extraction  ExtractionService
	cache       rediscache.Cache
	ai          openai.Client
}

func NewStreamService(
	log *logger.Logger,
	chatRepo repos.ChatRepo,
	messageRepo repos.MessageRepo,
	goalRepo repos.GoalRepo,
	memoryRepo repos.MemoryRepo,
	chatService ChatService,
	extraction ExtractionService,
	cache rediscache.Cache,
	ai openai.Client,
) StreamService {
	return &streamService{
		log:         log.With("service", "StreamService"),
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		goalRepo:    goalRepo,
		memoryRepo:  memoryRepo,
		chatService: chatService,
		extraction:  extraction,
		cache:       cache,
		ai:          ai,
	}
}

func (ss *streamService) StreamChat(ctx context.Context, p StreamParams) (string, error) {
	if _, err := ss.chatService.SaveMessage(ctx, p.UserID, p.ChatID, types.MessageRoleUser, p.Message); err != nil {
		return "", err
	}

	history, err := ss.messageRepo.ListByChatID(ctx, nil, p.ChatID)
	if err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}
	// The user turn just saved is rendered as the live message, not as
	// history.
	if n := len(history); n > 0 && history[n-1].Role == types.MessageRoleUser && history[n-1].Content == strings.TrimSpace(p.Message) {
		history = history[:n-1]
	}

	system, turns, err := ss.buildContext(ctx, p.UserID, p.ChatID, history)
	if err != nil {
		return "", err
	}

	full, err := ss.ai.Stream(ctx, openai.StreamRequest{
		System:    system,
		History:   turns,
		Message:   p.Message,
		Images:    p.Images,
		WebSearch: true,
	}, p.OnDelta)
	if err != nil {
		// Nothing is persisted for an abandoned or failed stream.
		return "", fmt.Errorf("generation failed: %w", err)
	}

	if _, err := ss.chatService.SaveMessage(ctx, p.UserID, p.ChatID, types.MessageRoleAssistant, full); err != nil {
		return "", fmt.Errorf("failed to persist assistant reply: %w", err)
	}

	ss.extraction.RunAfterExchange(p.UserID, p.Message, full)
	return full, nil
}

// buildContext assembles the system instruction and the verbatim
// history window, folding older turns into the rolling summary.
func (ss *streamService) buildContext(ctx context.Context, userID, chatID uuid.UUID, history []*types.Message) (string, []openai.Turn, error) {
	var sb strings.Builder
	sb.WriteString(prompts.CoachSystem)

	goals, err := ss.goalRepo.ListActive(ctx, nil, userID, goalsContextLimit)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load goals: %w", err)
	}
	if len(goals) > 0 {
		sb.WriteString("\n\n" + prompts.GoalsBlockHeader + "\n")
		for _, g := range goals {
			sb.WriteString("- " + g.Title)
			if g.Description != "" {
				sb.WriteString(": " + g.Description)
			}
			sb.WriteString("\n")
		}
		sb.WriteString(prompts.GoalsBlockFooter)
	}

	memories, err := ss.memoryRepo.ListByUserID(ctx, nil, userID, memoriesContextLimit)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load memories: %w", err)
	}
	if len(memories) > 0 {
		sb.WriteString("\n\n" + prompts.MemoriesBlockHeader + "\n")
		for _, m := range memories {
			sb.WriteString("- " + m.Content + "\n")
		}
		sb.WriteString(prompts.MemoriesBlockFooter)
	}

	window := history
	if len(history) > historyWindow {
		summary, err := ss.rollingSummary(ctx, chatID, history[:len(history)-historyWindow])
		if err != nil {
			// A missing summary degrades context, it must not kill the
			// exchange.
			ss.log.Warn("rolling summary unavailable", "chat_id", chatID.String(), "error", err)
		} else if summary != "" {
			sb.WriteString("\n\nEarlier in this conversation (summarized):\n" + summary)
		}
		window = history[len(history)-historyWindow:]
	}

	turns := make([]openai.Turn, 0, len(window))
	for _, m := range window {
		turns = append(turns, openai.Turn{Role: m.Role, Content: m.Content})
	}
	return sb.String(), turns, nil
}

// rollingSummary returns a summary of the given older turns, reusing
// the redis-cached value (and the persisted chat row) when fresh.
func (ss *streamService) rollingSummary(ctx context.Context, chatID uuid.UUID, older []*types.Message) (string, error) {
	key := summaryCacheKey(chatID)
	if cached, err := ss.cache.Get(ctx, key); err == nil {
		return cached, nil
	} else if !errors.Is(err, rediscache.ErrMiss) {
		ss.log.Warn("summary cache read failed", "chat_id", chatID.String(), "error", err)
	}

	var sb strings.Builder
	for _, m := range older {
		role := "User"
		if m.Role == types.MessageRoleAssistant {
			role = "Coach"
		}
		sb.WriteString(role + ": " + m.Content + "\n")
	}

	summary, err := ss.ai.GenerateText(ctx, prompts.SummarySystem, sb.String())
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}
	summary = strings.TrimSpace(summary)

	if err := ss.chatRepo.UpdateSummary(ctx, nil, chatID, summary); err != nil {
		ss.log.Warn("failed to persist rolling summary", "chat_id", chatID.String(), "error", err)
	}
	if err := ss.cache.Set(ctx, key, summary, summaryCacheTTL); err != nil {
		ss.log.Warn("summary cache write failed", "chat_id", chatID.String(), "error", err)
	}
	return summary, nil
}

func summaryCacheKey(chatID uuid.UUID) string {
	return "chat:summary:" + chatID.String()
}
