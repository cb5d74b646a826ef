package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/compasshq/compass-backend/internal/platform/openai"
	"github.com/compasshq/compass-backend/internal/types"
)

func TestSubmitFeedbackValidation(t *testing.T) {
	userID := uuid.New()
	bookID := uuid.New()
	bookRepo := &fakeBookRepo{books: []*types.Book{{ID: bookID, UserID: userID, Title: "Deep Focus"}}}
	svc := NewMaterialService(testLogger(t), bookRepo, &fakeVideoRepo{}, &fakeFeedbackRepo{}, &fakeAI{})

	cases := []struct {
		name string
		in   FeedbackInput
	}{
		{name: "bad type", in: FeedbackInput{MaterialType: "podcast", MaterialID: bookID, Rating: 3}},
		{name: "rating too low", in: FeedbackInput{MaterialType: types.MaterialTypeBook, MaterialID: bookID, Rating: 0}},
		{name: "rating too high", in: FeedbackInput{MaterialType: types.MaterialTypeBook, MaterialID: bookID, Rating: 6}},
		{name: "unknown material", in: FeedbackInput{MaterialType: types.MaterialTypeBook, MaterialID: uuid.New(), Rating: 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SubmitFeedback(context.Background(), userID, tc.in); err == nil {
				t.Error("invalid feedback accepted")
			}
		})
	}
}

func TestSubmitFeedbackUpserts(t *testing.T) {
	userID := uuid.New()
	bookID := uuid.New()
	bookRepo := &fakeBookRepo{books: []*types.Book{{ID: bookID, UserID: userID, Title: "Deep Focus"}}}
	feedbackRepo := &fakeFeedbackRepo{}
	svc := NewMaterialService(testLogger(t), bookRepo, &fakeVideoRepo{}, feedbackRepo, &fakeAI{})

	first, err := svc.SubmitFeedback(context.Background(), userID, FeedbackInput{
		MaterialType: types.MaterialTypeBook, MaterialID: bookID, Rating: 2, Review: "too dense", Completed: false,
	})
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	second, err := svc.SubmitFeedback(context.Background(), userID, FeedbackInput{
		MaterialType: types.MaterialTypeBook, MaterialID: bookID, Rating: 5, Review: "grew on me", Completed: true,
	})
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("resubmission created a new row")
	}
	if len(feedbackRepo.feedback) != 1 || feedbackRepo.feedback[0].Rating != 5 {
		t.Fatalf("feedback not replaced: %+v", feedbackRepo.feedback)
	}
}

func TestChapterSummariesRoundTrip(t *testing.T) {
	userID := uuid.New()
	bookID := uuid.New()
	bookRepo := &fakeBookRepo{books: []*types.Book{{ID: bookID, UserID: userID, Title: "Deep Focus", Author: "A. Writer"}}}
	ai := &fakeAI{generateJSON: func(_, _, schemaName string) (map[string]any, error) {
		if schemaName != "chapter_summaries" {
			t.Fatalf("unexpected schema name %q", schemaName)
		}
		return map[string]any{"chapters": []any{
			map[string]any{"number": float64(1), "title": "Foundations", "summary": "Why focus matters."},
			map[string]any{"number": float64(2), "title": "Practice", "summary": "Daily drills."},
		}}, nil
	}}
	svc := NewMaterialService(testLogger(t), bookRepo, &fakeVideoRepo{}, &fakeFeedbackRepo{}, ai)

	generated, err := svc.GenerateChapterSummaries(context.Background(), userID, bookID)
	if err != nil {
		t.Fatalf("GenerateChapterSummaries: %v", err)
	}
	if len(generated) != 2 || generated[0].Title != "Foundations" {
		t.Fatalf("unexpected chapters: %+v", generated)
	}

	stored, err := svc.GetChapterSummaries(context.Background(), userID, bookID)
	if err != nil {
		t.Fatalf("GetChapterSummaries: %v", err)
	}
	if len(stored) != 2 || stored[1].Summary != "Daily drills." {
		t.Fatalf("stored chapters mismatch: %+v", stored)
	}
}

func TestDiscussChapterGroundsAndAppendsTranscript(t *testing.T) {
	userID := uuid.New()
	bookID := uuid.New()
	bookRepo := &fakeBookRepo{books: []*types.Book{{
		ID: bookID, UserID: userID, Title: "Deep Focus", Author: "A. Writer",
		ChapterSummaries: `[{"number":1,"title":"Foundations","summary":"Why focus matters."}]`,
	}}}
	var seenSystem string
	ai := &fakeAI{stream: func(req openai.StreamRequest, onDelta func(string)) (string, error) {
		seenSystem = req.System
		onDelta("Let's ")
		onDelta("dig in.")
		return "Let's dig in.", nil
	}}
	svc := NewMaterialService(testLogger(t), bookRepo, &fakeVideoRepo{}, &fakeFeedbackRepo{}, ai)

	var chunks []string
	reply, err := svc.DiscussChapter(context.Background(), userID, bookID, 1, "what stood out?", func(delta string) {
		chunks = append(chunks, delta)
	})
	if err != nil {
		t.Fatalf("DiscussChapter: %v", err)
	}
	if reply != "Let's dig in." {
		t.Fatalf("reply = %q", reply)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if !strings.Contains(seenSystem, "Why focus matters.") {
		t.Errorf("chapter summary not grounded into system prompt: %q", seenSystem)
	}
	if !strings.Contains(bookRepo.books[0].Discussion, "what stood out?") {
		t.Errorf("transcript not appended: %q", bookRepo.books[0].Discussion)
	}

	// The next discussion turn replays the stored transcript as history.
	var history []openai.Turn
	ai.stream = func(req openai.StreamRequest, onDelta func(string)) (string, error) {
		history = req.History
		return "More ideas.", nil
	}
	if _, err := svc.DiscussChapter(context.Background(), userID, bookID, 1, "tell me more", func(string) {}); err != nil {
		t.Fatalf("DiscussChapter: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d history turns, want 2", len(history))
	}
}

func TestDiscussChapterRejectsUnknownChapter(t *testing.T) {
	userID := uuid.New()
	bookID := uuid.New()
	bookRepo := &fakeBookRepo{books: []*types.Book{{
		ID: bookID, UserID: userID, Title: "Deep Focus",
		ChapterSummaries: `[{"number":1,"title":"Foundations","summary":"Why focus matters."}]`,
	}}}
	svc := NewMaterialService(testLogger(t), bookRepo, &fakeVideoRepo{}, &fakeFeedbackRepo{}, &fakeAI{})

	if _, err := svc.DiscussChapter(context.Background(), userID, bookID, 7, "hi", func(string) {}); err == nil {
		t.Error("unknown chapter accepted")
	}
}
