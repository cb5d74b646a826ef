package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/compasshq/compass-backend/internal/platform/apierr"
	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/platform/openai"
	"github.com/compasshq/compass-backend/internal/prompts"
	"github.com/compasshq/compass-backend/internal/repos"
	"github.com/compasshq/compass-backend/internal/types"
)

// ChapterSummary is one entry of a book's generated chapter breakdown.
type ChapterSummary struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// FeedbackInput carries a material rating submission.
type FeedbackInput struct {
	MaterialType string
	MaterialID   uuid.UUID
	Rating       int
	Review       string
	Completed    bool
}

type MaterialService interface {
	SubmitFeedback(ctx context.Context, userID uuid.UUID, in FeedbackInput) (*types.MaterialFeedback, error)
	ListFeedback(ctx context.Context, userID uuid.UUID) ([]*types.MaterialFeedback, error)
	// GenerateChapterSummaries produces and stores the chapter breakdown
	// for a book. Regenerating replaces the stored breakdown.
	GenerateChapterSummaries(ctx context.Context, userID, bookID uuid.UUID) ([]ChapterSummary, error)
	GetChapterSummaries(ctx context.Context, userID, bookID uuid.UUID) ([]ChapterSummary, error)
	// DiscussChapter streams a coaching discussion grounded on one
	// stored chapter summary and appends the exchange to the book's
	// discussion transcript.
	DiscussChapter(ctx context.Context, userID, bookID uuid.UUID, chapter int, message string, onDelta func(delta string)) (string, error)
}

type materialService struct {
	log          *logger.Logger
	bookRepo     repos.BookRepo
	videoRepo    repos.VideoRepo
	feedbackRepo repos.FeedbackRepo
	ai           openai.Client
}

func NewMaterialService(
	log *logger.Logger,
	bookRepo repos.BookRepo,
	videoRepo repos.VideoRepo,
	feedbackRepo repos.FeedbackRepo,
	ai openai.Client,
) MaterialService {
	return &materialService{
		log:          log.With("service", "MaterialService"),
		bookRepo:     bookRepo,
		videoRepo:    videoRepo,
		feedbackRepo: feedbackRepo,
		ai:           ai,
	}
}

func (ms *materialService) SubmitFeedback(ctx context.Context, userID uuid.UUID, in FeedbackInput) (*types.MaterialFeedback, error) {
	if !types.ValidMaterialType(in.MaterialType) {
		return nil, apierr.BadRequest("invalid_material_type", fmt.Errorf("unknown material type %q", in.MaterialType))
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apierr.BadRequest("invalid_rating", fmt.Errorf("rating must be 1..5, got %d", in.Rating))
	}

	// The material must exist and belong to the user.
	var err error
	switch in.MaterialType {
	case types.MaterialTypeBook:
		_, err = ms.bookRepo.GetByID(ctx, nil, userID, in.MaterialID)
	case types.MaterialTypeVideo:
		_, err = ms.videoRepo.GetByID(ctx, nil, userID, in.MaterialID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("material_not_found", fmt.Errorf("%s %s not found", in.MaterialType, in.MaterialID))
		}
		return nil, fmt.Errorf("failed to load material: %w", err)
	}

	fb, err := ms.feedbackRepo.Upsert(ctx, nil, &types.MaterialFeedback{
		ID:           uuid.New(),
		UserID:       userID,
		MaterialType: in.MaterialType,
		MaterialID:   in.MaterialID,
		Rating:       in.Rating,
		Review:       strings.TrimSpace(in.Review),
		Completed:    in.Completed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}
	return fb, nil
}

func (ms *materialService) ListFeedback(ctx context.Context, userID uuid.UUID) ([]*types.MaterialFeedback, error) {
	feedback, err := ms.feedbackRepo.ListByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return feedback, nil
}

func chapterSummariesSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"chapters": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"number":  map[string]any{"type": "integer"},
						"title":   map[string]any{"type": "string"},
						"summary": map[string]any{"type": "string"},
					},
					"required":             []string{"number", "title", "summary"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"chapters"},
		"additionalProperties": false,
	}
}

func (ms *materialService) GenerateChapterSummaries(ctx context.Context, userID, bookID uuid.UUID) ([]ChapterSummary, error) {
	book, err := ms.getBook(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	out, err := ms.ai.GenerateJSON(ctx,
		prompts.ChapterSummariesSystem,
		fmt.Sprintf("Book: %s by %s", book.Title, book.Author),
		"chapter_summaries", chapterSummariesSchema())
	if err != nil {
		return nil, fmt.Errorf("chapter summary generation failed: %w", err)
	}

	raw, _ := out["chapters"].([]any)
	summaries := make([]ChapterSummary, 0, len(raw))
	for i, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		cs := ChapterSummary{
			Title:   strings.TrimSpace(stringField(obj, "title")),
			Summary: strings.TrimSpace(stringField(obj, "summary")),
		}
		if n, ok := obj["number"].(float64); ok {
			cs.Number = int(n)
		}
		if cs.Number == 0 {
			cs.Number = i + 1
		}
		if cs.Summary != "" {
			summaries = append(summaries, cs)
		}
	}
	if len(summaries) == 0 {
		return nil, apierr.New(502, "generation_empty", fmt.Errorf("model returned no chapters"))
	}

	encoded, err := json.Marshal(summaries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chapter summaries: %w", err)
	}
	if err := ms.bookRepo.UpdateChapterSummaries(ctx, nil, bookID, string(encoded)); err != nil {
		return nil, fmt.Errorf("failed to store chapter summaries: %w", err)
	}
	return summaries, nil
}

func (ms *materialService) GetChapterSummaries(ctx context.Context, userID, bookID uuid.UUID) ([]ChapterSummary, error) {
	book, err := ms.getBook(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	if book.ChapterSummaries == "" {
		return nil, apierr.NotFound("summaries_not_generated", fmt.Errorf("no chapter summaries for book %s", bookID))
	}
	var summaries []ChapterSummary
	if err := json.Unmarshal([]byte(book.ChapterSummaries), &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode stored chapter summaries: %w", err)
	}
	return summaries, nil
}

func (ms *materialService) DiscussChapter(ctx context.Context, userID, bookID uuid.UUID, chapter int, message string, onDelta func(delta string)) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", apierr.BadRequest("empty_message", fmt.Errorf("message content is empty"))
	}

	book, err := ms.getBook(ctx, userID, bookID)
	if err != nil {
		return "", err
	}
	summaries, err := ms.GetChapterSummaries(ctx, userID, bookID)
	if err != nil {
		return "", err
	}
	var target *ChapterSummary
	for i := range summaries {
		if summaries[i].Number == chapter {
			target = &summaries[i]
			break
		}
	}
	if target == nil {
		return "", apierr.NotFound("chapter_not_found", fmt.Errorf("book %s has no chapter %d", bookID, chapter))
	}

	system := fmt.Sprintf(prompts.ChapterDiscussSystem, book.Title, book.Author, target.Summary)
	reply, err := ms.ai.Stream(ctx, openai.StreamRequest{
		System:  system,
		History: parseDiscussion(book.Discussion),
		Message: message,
	}, onDelta)
	if err != nil {
		return "", fmt.Errorf("discussion generation failed: %w", err)
	}

	transcript := appendDiscussion(book.Discussion, message, reply)
	if err := ms.bookRepo.UpdateDiscussion(ctx, nil, bookID, transcript); err != nil {
		ms.log.Warn("failed to store discussion transcript", "book_id", bookID.String(), "error", err)
	}
	return reply, nil
}

func (ms *materialService) getBook(ctx context.Context, userID, bookID uuid.UUID) (*types.Book, error) {
	book, err := ms.bookRepo.GetByID(ctx, nil, userID, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("book_not_found", fmt.Errorf("book %s not found", bookID))
		}
		return nil, fmt.Errorf("failed to load book: %w", err)
	}
	return book, nil
}

// Discussion transcripts are stored as a JSON array of turns so the
// prior discussion can be replayed as model history.
type discussionTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func parseDiscussion(stored string) []openai.Turn {
	if stored == "" {
		return nil
	}
	var rawTurns []discussionTurn
	if err := json.Unmarshal([]byte(stored), &rawTurns); err != nil {
		return nil
	}
	turns := make([]openai.Turn, 0, len(rawTurns))
	for _, t := range rawTurns {
		turns = append(turns, openai.Turn{Role: t.Role, Content: t.Content})
	}
	return turns
}

func appendDiscussion(stored, userMessage, reply string) string {
	var turns []discussionTurn
	if stored != "" {
		_ = json.Unmarshal([]byte(stored), &turns)
	}
	turns = append(turns,
		discussionTurn{Role: types.MessageRoleUser, Content: userMessage},
		discussionTurn{Role: types.MessageRoleAssistant, Content: reply},
	)
	encoded, err := json.Marshal(turns)
	if err != nil {
		return stored
	}
	return string(encoded)
}
