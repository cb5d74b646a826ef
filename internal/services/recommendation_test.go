package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/compasshq/compass-backend/internal/types"
)

func recommendationPayload() map[string]any {
	books := []any{}
	for _, title := range []string{"Atomic Habits", "Deep Work", "Mindset", "Grit"} {
		books = append(books, map[string]any{
			"title":       title,
			"author":      "Author of " + title,
			"description": "why it fits",
		})
	}
	videos := []any{}
	for _, id := range []string{"a1", "b2", "c3", "d4"} {
		videos = append(videos, map[string]any{
			"title":       "Video " + id,
			"url":         "https://youtube.com/watch?v=" + id,
			"channel":     "Channel " + id,
			"description": "why it fits",
		})
	}
	return map[string]any{"books": books, "videos": videos}
}

func TestGenerateForUserPersistsValidatedSet(t *testing.T) {
	userID := uuid.New()
	bookRepo := &fakeBookRepo{}
	videoRepo := &fakeVideoRepo{}
	svc := NewRecommendationService(testLogger(t),
		bookRepo, videoRepo, &fakeFeedbackRepo{},
		&fakeBookClient{}, &fakeVideoClient{},
		&fakeAI{generateJSON: func(_, _, _ string) (map[string]any, error) {
			return recommendationPayload(), nil
		}})

	if err := svc.GenerateForUser(context.Background(), userID, "transcript"); err != nil {
		t.Fatalf("GenerateForUser: %v", err)
	}
	if len(bookRepo.books) != 4 {
		t.Fatalf("got %d books, want 4", len(bookRepo.books))
	}
	if len(videoRepo.videos) != 4 {
		t.Fatalf("got %d videos, want 4", len(videoRepo.videos))
	}
	for _, b := range bookRepo.books {
		if b.UserID != userID {
			t.Errorf("book %q missing owner", b.Title)
		}
		if b.InfoURL == "" {
			t.Errorf("book %q missing lookup enrichment", b.Title)
		}
	}
	for _, v := range videoRepo.videos {
		if v.Channel != "resolved channel" {
			t.Errorf("video %q not enriched from lookup", v.URL)
		}
	}
}

func TestGenerateForUserDropsUnverifiableEntries(t *testing.T) {
	userID := uuid.New()
	bookRepo := &fakeBookRepo{}
	videoRepo := &fakeVideoRepo{}
	svc := NewRecommendationService(testLogger(t),
		bookRepo, videoRepo, &fakeFeedbackRepo{},
		&fakeBookClient{missing: map[string]bool{"Mindset": true, "Grit": true}},
		&fakeVideoClient{missing: map[string]bool{"https://youtube.com/watch?v=d4": true}},
		&fakeAI{generateJSON: func(_, _, _ string) (map[string]any, error) {
			// Backfill passes regenerate the same set, so the dropped
			// entries stay dropped and the shorter list is persisted.
			return recommendationPayload(), nil
		}})

	if err := svc.GenerateForUser(context.Background(), userID, "transcript"); err != nil {
		t.Fatalf("GenerateForUser: %v", err)
	}
	if len(bookRepo.books) != 2 {
		t.Fatalf("got %d books, want 2 after dropping fabrications", len(bookRepo.books))
	}
	for _, b := range bookRepo.books {
		if b.Title == "Mindset" || b.Title == "Grit" {
			t.Errorf("unverifiable book persisted: %q", b.Title)
		}
	}
	if len(videoRepo.videos) != 3 {
		t.Fatalf("got %d videos, want 3 after dropping fabrications", len(videoRepo.videos))
	}
}

func TestGenerateForUserSwallowsParseFailure(t *testing.T) {
	bookRepo := &fakeBookRepo{}
	svc := NewRecommendationService(testLogger(t),
		bookRepo, &fakeVideoRepo{}, &fakeFeedbackRepo{},
		&fakeBookClient{}, &fakeVideoClient{},
		&fakeAI{generateJSON: func(_, _, _ string) (map[string]any, error) {
			return nil, errors.New("malformed output")
		}})

	if err := svc.GenerateForUser(context.Background(), uuid.New(), "transcript"); err != nil {
		t.Fatalf("generation failure must not surface: %v", err)
	}
	if len(bookRepo.books) != 0 {
		t.Fatalf("nothing should be persisted on failure")
	}
}

func TestFeedbackShapesPrompt(t *testing.T) {
	userID := uuid.New()
	bookID := uuid.New()
	bookRepo := &fakeBookRepo{books: []*types.Book{
		{ID: bookID, UserID: userID, Title: "Deep Focus", Author: "A. Writer"},
	}}
	feedbackRepo := &fakeFeedbackRepo{feedback: []*types.MaterialFeedback{{
		ID: uuid.New(), UserID: userID,
		MaterialType: types.MaterialTypeBook, MaterialID: bookID,
		Rating: 5, Review: "loved the practical drills", Completed: true,
	}}}

	var seenUser string
	svc := NewRecommendationService(testLogger(t),
		bookRepo, &fakeVideoRepo{}, feedbackRepo,
		&fakeBookClient{}, &fakeVideoClient{},
		&fakeAI{generateJSON: func(_, user, _ string) (map[string]any, error) {
			seenUser = user
			return recommendationPayload(), nil
		}})

	if err := svc.GenerateForUser(context.Background(), userID, "transcript"); err != nil {
		t.Fatalf("GenerateForUser: %v", err)
	}
	for _, want := range []string{"Deep Focus", "5/5", "loved the practical drills"} {
		if !strings.Contains(seenUser, want) {
			t.Errorf("feedback fragment %q not rendered into prompt: %q", want, seenUser)
		}
	}
}
