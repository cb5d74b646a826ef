package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/compasshq/compass-backend/internal/platform/apierr"
	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/platform/openai"
	"github.com/compasshq/compass-backend/internal/prompts"
	"github.com/compasshq/compass-backend/internal/repos"
	"github.com/compasshq/compass-backend/internal/types"
)

// duplicateWindow guards against double-submitted messages: an
// identical (chat, role, content) message inside this window is
// treated as already saved.
const duplicateWindow = time.Minute

// titleFallbackMax caps the fallback title built from the message's
// leading words.
const titleFallbackMax = 27

type ChatService interface {
	CreateChat(ctx context.Context, userID uuid.UUID, title string) (*types.Chat, error)
	// ListChats omits untouched placeholders: chats still at the default
	// title with no saved messages.
	ListChats(ctx context.Context, userID uuid.UUID) ([]*types.Chat, error)
	GetMessages(ctx context.Context, userID, chatID uuid.UUID) ([]*types.Message, error)
	// SaveMessage persists a turn and bumps the chat's updated_at. A
	// duplicate inside duplicateWindow returns the existing row.
	SaveMessage(ctx context.Context, userID, chatID uuid.UUID, role, content string) (*types.Message, error)
	RenameChat(ctx context.Context, userID, chatID uuid.UUID, title string) (*types.Chat, error)
	DeleteChat(ctx context.Context, userID, chatID uuid.UUID) error
	// GenerateTitle names a chat after its first user message, with a
	// deterministic fallback when generation fails.
	GenerateTitle(ctx context.Context, userID, chatID uuid.UUID, firstMessage string) (string, error)
}

type chatService struct {
	db          *gorm.DB
	log         *logger.Logger
	chatRepo    repos.ChatRepo
	messageRepo repos.MessageRepo
	ai          openai.Client
}

func NewChatService(
	db *gorm.DB,
	log *logger.Logger,
	chatRepo repos.ChatRepo,
	messageRepo repos.MessageRepo,
	ai openai.Client,
) ChatService {
	return &chatService{
		db:          db,
		log:         log.With("service", "ChatService"),
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		ai:          ai,
	}
}

func (cs *chatService) CreateChat(ctx context.Context, userID uuid.UUID, title string) (*types.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = types.DefaultChatTitle
	}
	chat, err := cs.chatRepo.Create(ctx, nil, &types.Chat{
		ID:     uuid.New(),
		UserID: userID,
		Title:  title,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return chat, nil
}

func (cs *chatService) ListChats(ctx context.Context, userID uuid.UUID) ([]*types.Chat, error) {
	chats, err := cs.chatRepo.ListByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(chats))
	for _, c := range chats {
		if c.Title == types.DefaultChatTitle {
			ids = append(ids, c.ID)
		}
	}
	counts := map[uuid.UUID]int64{}
	if len(ids) > 0 {
		counts, err = cs.messageRepo.CountByChatIDs(ctx, nil, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to count chat messages: %w", err)
		}
	}

	visible := make([]*types.Chat, 0, len(chats))
	for _, c := range chats {
		if c.Title == types.InterviewChatTitle {
			continue
		}
		if c.Title == types.DefaultChatTitle && counts[c.ID] == 0 {
			continue
		}
		visible = append(visible, c)
	}
	return visible, nil
}

func (cs *chatService) GetMessages(ctx context.Context, userID, chatID uuid.UUID) ([]*types.Message, error) {
	if _, err := cs.getOwned(ctx, userID, chatID); err != nil {
		return nil, err
	}
	messages, err := cs.messageRepo.ListByChatID(ctx, nil, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

func (cs *chatService) SaveMessage(ctx context.Context, userID, chatID uuid.UUID, role, content string) (*types.Message, error) {
	if role != types.MessageRoleUser && role != types.MessageRoleAssistant {
		return nil, apierr.BadRequest("invalid_role", fmt.Errorf("unknown message role %q", role))
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apierr.BadRequest("empty_message", fmt.Errorf("message content is empty"))
	}
	if _, err := cs.getOwned(ctx, userID, chatID); err != nil {
		return nil, err
	}

	existing, err := cs.messageRepo.LastMatching(ctx, nil, chatID, role, content)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate message: %w", err)
	}
	if existing != nil && time.Since(existing.CreatedAt) < duplicateWindow {
		cs.log.Debug("duplicate message suppressed", "chat_id", chatID.String())
		return existing, nil
	}

	var saved *types.Message
	err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg, err := cs.messageRepo.Create(ctx, tx, &types.Message{
			ID:      uuid.New(),
			UserID:  userID,
			ChatID:  chatID,
			Role:    role,
			Content: content,
		})
		if err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
		saved = msg
		return cs.chatRepo.Touch(ctx, tx, chatID, time.Now())
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (cs *chatService) RenameChat(ctx context.Context, userID, chatID uuid.UUID, title string) (*types.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apierr.BadRequest("empty_title", fmt.Errorf("chat title is empty"))
	}
	chat, err := cs.getOwned(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if err := cs.chatRepo.UpdateTitle(ctx, nil, chatID, title); err != nil {
		return nil, fmt.Errorf("failed to rename chat: %w", err)
	}
	chat.Title = title
	return chat, nil
}

func (cs *chatService) DeleteChat(ctx context.Context, userID, chatID uuid.UUID) error {
	if _, err := cs.getOwned(ctx, userID, chatID); err != nil {
		return err
	}
	return cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := cs.messageRepo.DeleteByChatID(ctx, tx, chatID); err != nil {
			return fmt.Errorf("failed to delete chat messages: %w", err)
		}
		if err := cs.chatRepo.Delete(ctx, tx, chatID); err != nil {
			return fmt.Errorf("failed to delete chat: %w", err)
		}
		return nil
	})
}

func (cs *chatService) GenerateTitle(ctx context.Context, userID, chatID uuid.UUID, firstMessage string) (string, error) {
	firstMessage = strings.TrimSpace(firstMessage)
	if firstMessage == "" {
		return "", apierr.BadRequest("empty_message", fmt.Errorf("cannot title an empty message"))
	}
	if _, err := cs.getOwned(ctx, userID, chatID); err != nil {
		return "", err
	}

	title, err := cs.ai.GenerateText(ctx, prompts.TitleSystem, firstMessage)
	if err != nil {
		cs.log.Warn("title generation failed, using fallback", "chat_id", chatID.String(), "error", err)
		title = ""
	}
	title = cleanTitle(title)
	if title == "" {
		title = FallbackTitle(firstMessage)
	}

	if err := cs.chatRepo.UpdateTitle(ctx, nil, chatID, title); err != nil {
		return "", fmt.Errorf("failed to store chat title: %w", err)
	}
	return title, nil
}

func (cs *chatService) getOwned(ctx context.Context, userID, chatID uuid.UUID) (*types.Chat, error) {
	chat, err := cs.chatRepo.GetByID(ctx, nil, userID, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("chat_not_found", fmt.Errorf("chat %s not found", chatID))
		}
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}
	return chat, nil
}

// cleanTitle strips wrapping quotes and trailing punctuation the model
// sometimes adds despite instructions.
func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	s = strings.TrimRight(s, ".!")
	return strings.TrimSpace(s)
}

// FallbackTitle derives a title from the message's first five words,
// truncated to titleFallbackMax characters with an ellipsis.
func FallbackTitle(message string) string {
	words := strings.Fields(message)
	if len(words) > 5 {
		words = words[:5]
	}
	title := strings.Join(words, " ")
	if len(title) > titleFallbackMax {
		title = strings.TrimSpace(title[:titleFallbackMax]) + "..."
	}
	if title == "" {
		title = types.DefaultChatTitle
	}
	return title
}
