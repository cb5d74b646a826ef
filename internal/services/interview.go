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
	"github.com/compasshq/compass-backend/internal/platform/envutil"
	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/platform/openai"
	"github.com/compasshq/compass-backend/internal/prompts"
	"github.com/compasshq/compass-backend/internal/repos"
	"github.com/compasshq/compass-backend/internal/types"
)

// CompletionPolicy decides whether the interview has covered its
// checklist after an exchange completes.
type CompletionPolicy interface {
	Complete(ctx context.Context, transcript string) (bool, error)
}

// sentinelPolicy matches a configured phrase in the assistant's last
// reply. Kept for deployments that prefer zero extra model calls; the
// phrase can leak into user-visible text, which is why it is not the
// default.
type sentinelPolicy struct {
	phrase string
}

func (p *sentinelPolicy) Complete(_ context.Context, transcript string) (bool, error) {
	if p.phrase == "" {
		return false, nil
	}
	return strings.Contains(transcript, p.phrase), nil
}

// classifierPolicy asks the model, with a strict JSON response, whether
// the checklist is satisfied. The rendered reply never carries a marker.
type classifierPolicy struct {
	ai openai.Client
}

func completionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"checklist_complete": map[string]any{"type": "boolean"},
		},
		"required":             []string{"checklist_complete"},
		"additionalProperties": false,
	}
}

func (p *classifierPolicy) Complete(ctx context.Context, transcript string) (bool, error) {
	out, err := p.ai.GenerateJSON(ctx,
		prompts.CompletionClassifierSystem,
		fmt.Sprintf(prompts.CompletionClassifierUser, transcript),
		"interview_completion", completionSchema())
	if err != nil {
		return false, fmt.Errorf("completion classification failed: %w", err)
	}
	done, _ := out["checklist_complete"].(bool)
	return done, nil
}

// NewCompletionPolicyFromEnv selects the policy:
// INTERVIEW_COMPLETION_POLICY = classifier (default) | sentinel, with
// INTERVIEW_SENTINEL holding the sentinel phrase.
func NewCompletionPolicyFromEnv(log *logger.Logger, ai openai.Client) CompletionPolicy {
	switch mode := envutil.String("INTERVIEW_COMPLETION_POLICY", "classifier"); mode {
	case "sentinel":
		phrase := envutil.String("INTERVIEW_SENTINEL", "")
		if phrase == "" {
			log.Warn("sentinel completion policy selected without INTERVIEW_SENTINEL; interview can never complete")
		}
		return &sentinelPolicy{phrase: phrase}
	default:
		return &classifierPolicy{ai: ai}
	}
}

type InterviewService interface {
	// State returns the user's interview state.
	State(ctx context.Context, userID uuid.UUID) (string, error)
	// Chat runs one interview exchange, streaming the reply. The first
	// call (empty history) synthesizes the opening greeting. Returns the
	// reply and whether the interview has just moved to COMPLETING.
	Chat(ctx context.Context, userID uuid.UUID, message string, onDelta func(delta string)) (string, bool, error)
	// Initialize is the one-time provisioning call: marks the interview
	// COMPLETED and starts recommendation generation from the transcript.
	Initialize(ctx context.Context, userID uuid.UUID) error
}

type interviewService struct {
	db             *gorm.DB
	log            *logger.Logger
	userRepo       repos.UserRepo
	chatRepo       repos.ChatRepo
	messageRepo    repos.MessageRepo
	extraction     ExtractionService
	recommendation RecommendationService
	policy         CompletionPolicy
	ai             openai.Client
}

func NewInterviewService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	chatRepo repos.ChatRepo,
	messageRepo repos.MessageRepo,
	extraction ExtractionService,
	recommendation RecommendationService,
	policy CompletionPolicy,
	ai openai.Client,
) InterviewService {
	return &interviewService{
		db:             db,
		log:            log.With("service", "InterviewService"),
		userRepo:       userRepo,
		chatRepo:       chatRepo,
		messageRepo:    messageRepo,
		extraction:     extraction,
		recommendation: recommendation,
		policy:         policy,
		ai:             ai,
	}
}

func (is *interviewService) State(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := is.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load user: %w", err)
	}
	return user.InterviewState, nil
}

func (is *interviewService) Chat(ctx context.Context, userID uuid.UUID, message string, onDelta func(delta string)) (string, bool, error) {
	user, err := is.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return "", false, fmt.Errorf("failed to load user: %w", err)
	}
	if user.InterviewState == types.InterviewCompleted {
		return "", false, apierr.BadRequest("interview_completed", fmt.Errorf("interview already completed"))
	}

	chat, err := is.interviewChat(ctx, userID)
	if err != nil {
		return "", false, err
	}
	history, err := is.messageRepo.ListByChatID(ctx, nil, chat.ID)
	if err != nil {
		return "", false, fmt.Errorf("failed to load interview history: %w", err)
	}

	message = strings.TrimSpace(message)
	opening := len(history) == 0 && message == ""
	if !opening && message == "" {
		return "", false, apierr.BadRequest("empty_message", fmt.Errorf("message content is empty"))
	}

	if user.InterviewState == types.InterviewNotStarted {
		if err := is.userRepo.UpdateInterviewState(ctx, nil, userID, types.InterviewInProgress); err != nil {
			return "", false, fmt.Errorf("failed to start interview: %w", err)
		}
		user.InterviewState = types.InterviewInProgress
	}

	turns := make([]openai.Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, openai.Turn{Role: m.Role, Content: m.Content})
	}

	liveMessage := message
	if opening {
		liveMessage = prompts.InterviewOpening
	}
	reply, err := is.ai.Stream(ctx, openai.StreamRequest{
		System:  prompts.InterviewSystem,
		History: turns,
		Message: liveMessage,
	}, onDelta)
	if err != nil {
		return "", false, fmt.Errorf("interview generation failed: %w", err)
	}

	err = is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !opening {
			if _, err := is.messageRepo.Create(ctx, tx, &types.Message{
				ID: uuid.New(), UserID: userID, ChatID: chat.ID,
				Role: types.MessageRoleUser, Content: message,
			}); err != nil {
				return fmt.Errorf("failed to save interview message: %w", err)
			}
		}
		if _, err := is.messageRepo.Create(ctx, tx, &types.Message{
			ID: uuid.New(), UserID: userID, ChatID: chat.ID,
			Role: types.MessageRoleAssistant, Content: reply,
		}); err != nil {
			return fmt.Errorf("failed to save interview reply: %w", err)
		}
		return is.chatRepo.Touch(ctx, tx, chat.ID, time.Now())
	})
	if err != nil {
		return "", false, err
	}

	if !opening {
		is.extraction.RunAfterExchange(userID, message, reply)
	}

	completing := false
	if user.InterviewState == types.InterviewInProgress && !opening {
		transcript := renderTranscript(append(history,
			&types.Message{Role: types.MessageRoleUser, Content: message},
			&types.Message{Role: types.MessageRoleAssistant, Content: reply},
		))
		done, err := is.policy.Complete(ctx, transcript)
		if err != nil {
			is.log.Warn("completion check failed", "user_id", userID.String(), "error", err)
		} else if done {
			if err := is.userRepo.UpdateInterviewState(ctx, nil, userID, types.InterviewCompleting); err != nil {
				return "", false, fmt.Errorf("failed to mark interview completing: %w", err)
			}
			completing = true
		}
	}
	return reply, completing, nil
}

func (is *interviewService) Initialize(ctx context.Context, userID uuid.UUID) error {
	user, err := is.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	switch user.InterviewState {
	case types.InterviewCompleted:
		return apierr.BadRequest("interview_completed", fmt.Errorf("interview already initialized"))
	case types.InterviewNotStarted:
		return apierr.BadRequest("interview_not_started", fmt.Errorf("interview has not happened yet"))
	}

	chat, err := is.interviewChat(ctx, userID)
	if err != nil {
		return err
	}
	history, err := is.messageRepo.ListByChatID(ctx, nil, chat.ID)
	if err != nil {
		return fmt.Errorf("failed to load interview transcript: %w", err)
	}

	if err := is.userRepo.UpdateInterviewState(ctx, nil, userID, types.InterviewCompleted); err != nil {
		return fmt.Errorf("failed to complete interview: %w", err)
	}

	is.recommendation.RunInitial(userID, renderTranscript(history))
	return nil
}

// interviewChat finds or creates the user's dedicated interview chat.
func (is *interviewService) interviewChat(ctx context.Context, userID uuid.UUID) (*types.Chat, error) {
	chat, err := is.findInterviewChat(ctx, userID)
	if err != nil {
		return nil, err
	}
	if chat != nil {
		return chat, nil
	}
	created, err := is.chatRepo.Create(ctx, nil, &types.Chat{
		ID:     uuid.New(),
		UserID: userID,
		Title:  types.InterviewChatTitle,
	})
	if err != nil {
		// Lost a concurrent create; use the winner's chat.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if chat, ferr := is.findInterviewChat(ctx, userID); ferr == nil && chat != nil {
				return chat, nil
			}
		}
		return nil, fmt.Errorf("failed to create interview chat: %w", err)
	}
	return created, nil
}

func (is *interviewService) findInterviewChat(ctx context.Context, userID uuid.UUID) (*types.Chat, error) {
	chats, err := is.chatRepo.ListByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	for _, c := range chats {
		if c.Title == types.InterviewChatTitle {
			return c, nil
		}
	}
	return nil, nil
}

func renderTranscript(messages []*types.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		role := "User"
		if m.Role == types.MessageRoleAssistant {
			role = "Coach"
		}
		sb.WriteString(role + ": " + m.Content + "\n")
	}
	return sb.String()
}
