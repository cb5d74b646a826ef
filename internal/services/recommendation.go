package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/platform/lookup"
	"github.com/compasshq/compass-backend/internal/platform/openai"
	"github.com/compasshq/compass-backend/internal/prompts"
	"github.com/compasshq/compass-backend/internal/repos"
	"github.com/compasshq/compass-backend/internal/types"
)

const (
	recommendedBooks  = 4
	recommendedVideos = 4

	// backfillPasses bounds the regenerate-and-revalidate loop when
	// entries fail lookup validation. Schema conformance beats
	// fabrication: on exhaustion the shorter list is persisted.
	backfillPasses = 2

	recommendationTimeout = 5 * time.Minute
)

type RecommendationService interface {
	// GenerateForUser produces, validates and persists the user's
	// recommendations from the interview transcript and any feedback.
	GenerateForUser(ctx context.Context, userID uuid.UUID, transcript string) error
	// RunInitial runs GenerateForUser on a detached context; failures
	// are logged and swallowed.
	RunInitial(userID uuid.UUID, transcript string)
	GetBooks(ctx context.Context, userID uuid.UUID) ([]*types.Book, error)
	GetVideos(ctx context.Context, userID uuid.UUID) ([]*types.Video, error)
}

type recommendationService struct {
	log          *logger.Logger
	bookRepo     repos.BookRepo
	videoRepo    repos.VideoRepo
	feedbackRepo repos.FeedbackRepo
	books        lookup.BookClient
	videos       lookup.VideoClient
	ai           openai.Client
}

func NewRecommendationService(
	log *logger.Logger,
	bookRepo repos.BookRepo,
	videoRepo repos.VideoRepo,
	feedbackRepo repos.FeedbackRepo,
	books lookup.BookClient,
	videos lookup.VideoClient,
	ai openai.Client,
) RecommendationService {
	return &recommendationService{
		log:          log.With("service", "RecommendationService"),
		bookRepo:     bookRepo,
		videoRepo:    videoRepo,
		feedbackRepo: feedbackRepo,
		books:        books,
		videos:       videos,
		ai:           ai,
	}
}

type bookCandidate struct {
	Title       string
	Author      string
	Description string
}

type videoCandidate struct {
	Title       string
	URL         string
	Channel     string
	Description string
}

func recommendationSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"books": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":       map[string]any{"type": "string"},
						"author":      map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
					},
					"required":             []string{"title", "author", "description"},
					"additionalProperties": false,
				},
			},
			"videos": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":       map[string]any{"type": "string"},
						"url":         map[string]any{"type": "string"},
						"channel":     map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
					},
					"required":             []string{"title", "url", "channel", "description"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"books", "videos"},
		"additionalProperties": false,
	}
}

func (rs *recommendationService) GenerateForUser(ctx context.Context, userID uuid.UUID, transcript string) error {
	feedbackBlock, err := rs.feedbackBlock(ctx, userID)
	if err != nil {
		return err
	}

	var validBooks []*types.Book
	var validVideos []*types.Video
	seenBooks := map[string]struct{}{}
	seenVideos := map[string]struct{}{}

	for pass := 0; pass <= backfillPasses; pass++ {
		needBooks := recommendedBooks - len(validBooks)
		needVideos := recommendedVideos - len(validVideos)
		if needBooks <= 0 && needVideos <= 0 {
			break
		}

		bookCands, videoCands, err := rs.generate(ctx, transcript, feedbackBlock)
		if err != nil {
			if pass == 0 {
				// Parse/generation failure means no recommendations this
				// round, not an API error for the user.
				rs.log.Error("recommendation generation failed", "user_id", userID.String(), "error", err)
				return nil
			}
			rs.log.Warn("backfill generation failed", "user_id", userID.String(), "pass", pass, "error", err)
			break
		}

		books, videos := rs.validate(ctx, bookCands, videoCands)
		for _, b := range books {
			key := normalizeContent(b.Title + " " + b.Author)
			if _, dup := seenBooks[key]; dup || len(validBooks) >= recommendedBooks {
				continue
			}
			seenBooks[key] = struct{}{}
			b.UserID = userID
			validBooks = append(validBooks, b)
		}
		for _, v := range videos {
			key := normalizeContent(v.URL)
			if _, dup := seenVideos[key]; dup || len(validVideos) >= recommendedVideos {
				continue
			}
			seenVideos[key] = struct{}{}
			v.UserID = userID
			validVideos = append(validVideos, v)
		}
	}

	if len(validBooks) == 0 && len(validVideos) == 0 {
		rs.log.Warn("no recommendations survived validation", "user_id", userID.String())
		return nil
	}
	if len(validBooks) > 0 {
		if _, err := rs.bookRepo.Create(ctx, nil, validBooks); err != nil {
			return fmt.Errorf("failed to save book recommendations: %w", err)
		}
	}
	if len(validVideos) > 0 {
		if _, err := rs.videoRepo.Create(ctx, nil, validVideos); err != nil {
			return fmt.Errorf("failed to save video recommendations: %w", err)
		}
	}
	rs.log.Info("recommendations stored",
		"user_id", userID.String(), "books", len(validBooks), "videos", len(validVideos))
	return nil
}

func (rs *recommendationService) generate(ctx context.Context, transcript, feedbackBlock string) ([]bookCandidate, []videoCandidate, error) {
	out, err := rs.ai.GenerateJSON(ctx,
		prompts.RecommendationSystem,
		fmt.Sprintf(prompts.RecommendationUser, transcript, feedbackBlock),
		"recommendations", recommendationSchema())
	if err != nil {
		return nil, nil, fmt.Errorf("recommendation call failed: %w", err)
	}

	var books []bookCandidate
	if raw, ok := out["books"].([]any); ok {
		for _, item := range raw {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			c := bookCandidate{
				Title:       strings.TrimSpace(stringField(obj, "title")),
				Author:      strings.TrimSpace(stringField(obj, "author")),
				Description: strings.TrimSpace(stringField(obj, "description")),
			}
			if c.Title != "" {
				books = append(books, c)
			}
		}
	}
	var videos []videoCandidate
	if raw, ok := out["videos"].([]any); ok {
		for _, item := range raw {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			c := videoCandidate{
				Title:       strings.TrimSpace(stringField(obj, "title")),
				URL:         strings.TrimSpace(stringField(obj, "url")),
				Channel:     strings.TrimSpace(stringField(obj, "channel")),
				Description: strings.TrimSpace(stringField(obj, "description")),
			}
			if c.URL != "" {
				videos = append(videos, c)
			}
		}
	}
	return books, videos, nil
}

// validate checks every candidate against the lookup clients in
// parallel. Entries that cannot be verified are dropped; verified
// entries are enriched with the lookup's canonical metadata.
func (rs *recommendationService) validate(ctx context.Context, bookCands []bookCandidate, videoCands []videoCandidate) ([]*types.Book, []*types.Video) {
	var mu sync.Mutex
	var books []*types.Book
	var videos []*types.Video

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for _, c := range bookCands {
		c := c
		g.Go(func() error {
			res, err := rs.books.Search(gctx, c.Title, c.Author)
			if err != nil {
				if !errors.Is(err, lookup.ErrNotFound) {
					rs.log.Warn("book lookup failed", "error", err)
				}
				return nil
			}
			mu.Lock()
			books = append(books, &types.Book{
				ID:          uuid.New(),
				Title:       c.Title,
				Author:      c.Author,
				Description: c.Description,
				Thumbnail:   res.Thumbnail,
				InfoURL:     res.InfoURL,
			})
			mu.Unlock()
			return nil
		})
	}
	for _, c := range videoCands {
		c := c
		g.Go(func() error {
			res, err := rs.videos.Resolve(gctx, c.URL)
			if err != nil {
				if !errors.Is(err, lookup.ErrNotFound) {
					rs.log.Warn("video lookup failed", "error", err)
				}
				return nil
			}
			mu.Lock()
			videos = append(videos, &types.Video{
				ID:          uuid.New(),
				Title:       res.Title,
				URL:         c.URL,
				Channel:     res.Channel,
				Description: c.Description,
				Thumbnail:   res.Thumbnail,
			})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return books, videos
}

func (rs *recommendationService) feedbackBlock(ctx context.Context, userID uuid.UUID) (string, error) {
	feedback, err := rs.feedbackRepo.ListByUserID(ctx, nil, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load feedback: %w", err)
	}
	if len(feedback) == 0 {
		return "(none)", nil
	}

	var sb strings.Builder
	for _, fb := range feedback {
		name := rs.materialName(ctx, userID, fb)
		fmt.Fprintf(&sb, "- %s %q rated %d/5", fb.MaterialType, name, fb.Rating)
		if fb.Review != "" {
			fmt.Fprintf(&sb, ": %s", fb.Review)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func (rs *recommendationService) materialName(ctx context.Context, userID uuid.UUID, fb *types.MaterialFeedback) string {
	switch fb.MaterialType {
	case types.MaterialTypeBook:
		if b, err := rs.bookRepo.GetByID(ctx, nil, userID, fb.MaterialID); err == nil {
			return b.Title
		}
	case types.MaterialTypeVideo:
		if v, err := rs.videoRepo.GetByID(ctx, nil, userID, fb.MaterialID); err == nil {
			return v.Title
		}
	}
	return fb.MaterialID.String()
}

func (rs *recommendationService) RunInitial(userID uuid.UUID, transcript string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recommendationTimeout)
		defer cancel()
		if err := rs.GenerateForUser(ctx, userID, transcript); err != nil {
			rs.log.Error("initial recommendation run failed", "user_id", userID.String(), "error", err)
		}
	}()
}

func (rs *recommendationService) GetBooks(ctx context.Context, userID uuid.UUID) ([]*types.Book, error) {
	books, err := rs.bookRepo.ListByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

func (rs *recommendationService) GetVideos(ctx context.Context, userID uuid.UUID) ([]*types.Video, error) {
	videos, err := rs.videoRepo.ListByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	return videos, nil
}
