package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/compasshq/compass-backend/internal/types"
)

func TestFallbackTitle(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "short message", in: "help me plan my week", want: "help me plan my week"},
		{name: "five word cap", in: "one two three four five six seven", want: "one two three four five"},
		{name: "char cap with ellipsis", in: "extraordinarily comprehensive introspection exercise today", want: "extraordinarily comprehensi..."},
		{name: "empty falls back to default", in: "   ", want: types.DefaultChatTitle},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FallbackTitle(tc.in)
			if got != tc.want {
				t.Fatalf("FallbackTitle(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if len(got) > titleFallbackMax+3 {
				t.Fatalf("fallback title too long: %q", got)
			}
		})
	}
}

func TestCleanTitle(t *testing.T) {
	cases := []struct{ in, want string }{
		{`"Weekly Planning"`, "Weekly Planning"},
		{"'Morning Routine'", "Morning Routine"},
		{"Career Pivot.", "Career Pivot"},
		{"  Goal Review!  ", "Goal Review"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := cleanTitle(tc.in); got != tc.want {
			t.Errorf("cleanTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestListChatsHidesPlaceholdersAndInterview(t *testing.T) {
	userID := uuid.New()
	chatRepo := &fakeChatRepo{}
	msgRepo := &fakeMessageRepo{}
	svc := NewChatService(nil, testLogger(t), chatRepo, msgRepo, &fakeAI{})

	named := &types.Chat{ID: uuid.New(), UserID: userID, Title: "Career talk"}
	emptyPlaceholder := &types.Chat{ID: uuid.New(), UserID: userID, Title: types.DefaultChatTitle}
	usedPlaceholder := &types.Chat{ID: uuid.New(), UserID: userID, Title: types.DefaultChatTitle}
	interview := &types.Chat{ID: uuid.New(), UserID: userID, Title: types.InterviewChatTitle}
	chatRepo.chats = []*types.Chat{named, emptyPlaceholder, usedPlaceholder, interview}
	msgRepo.messages = []*types.Message{
		{ID: uuid.New(), UserID: userID, ChatID: usedPlaceholder.ID, Role: types.MessageRoleUser, Content: "hi"},
	}

	chats, err := svc.ListChats(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("got %d chats, want 2: %+v", len(chats), chats)
	}
	for _, c := range chats {
		if c.ID == emptyPlaceholder.ID {
			t.Error("empty placeholder chat should be hidden")
		}
		if c.ID == interview.ID {
			t.Error("interview chat should be hidden")
		}
	}
}

func TestSaveMessageDuplicateGuard(t *testing.T) {
	userID := uuid.New()
	chatID := uuid.New()
	chatRepo := &fakeChatRepo{chats: []*types.Chat{{ID: chatID, UserID: userID, Title: "t"}}}
	msgRepo := &fakeMessageRepo{}
	svc := NewChatService(nil, testLogger(t), chatRepo, msgRepo, &fakeAI{})

	recent := &types.Message{
		ID: uuid.New(), UserID: userID, ChatID: chatID,
		Role: types.MessageRoleUser, Content: "hello there",
		CreatedAt: time.Now().Add(-10 * time.Second),
	}
	msgRepo.messages = []*types.Message{recent}

	got, err := svc.SaveMessage(context.Background(), userID, chatID, types.MessageRoleUser, "hello there")
	if err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}
	if got.ID != recent.ID {
		t.Fatalf("duplicate within window not suppressed: got id %s, want %s", got.ID, recent.ID)
	}
	if len(msgRepo.messages) != 1 {
		t.Fatalf("duplicate was persisted: %d messages", len(msgRepo.messages))
	}
}

func TestSaveMessageRejectsBadInput(t *testing.T) {
	userID := uuid.New()
	chatID := uuid.New()
	chatRepo := &fakeChatRepo{chats: []*types.Chat{{ID: chatID, UserID: userID, Title: "t"}}}
	svc := NewChatService(nil, testLogger(t), chatRepo, &fakeMessageRepo{}, &fakeAI{})

	if _, err := svc.SaveMessage(context.Background(), userID, chatID, "system", "x"); err == nil {
		t.Error("unknown role accepted")
	}
	if _, err := svc.SaveMessage(context.Background(), userID, chatID, types.MessageRoleUser, "   "); err == nil {
		t.Error("empty content accepted")
	}
}

func TestGenerateTitleFallsBackOnModelFailure(t *testing.T) {
	userID := uuid.New()
	chatID := uuid.New()
	chatRepo := &fakeChatRepo{chats: []*types.Chat{{ID: chatID, UserID: userID, Title: types.DefaultChatTitle}}}
	ai := &fakeAI{
		generateText: func(_, _ string) (string, error) {
			return "", errors.New("provider down")
		},
	}
	svc := NewChatService(nil, testLogger(t), chatRepo, &fakeMessageRepo{}, ai)

	title, err := svc.GenerateTitle(context.Background(), userID, chatID, "help me plan my week")
	if err != nil {
		t.Fatalf("GenerateTitle: %v", err)
	}
	if title != "help me plan my week" {
		t.Fatalf("got title %q, want first-words fallback", title)
	}
	if chatRepo.chats[0].Title != title {
		t.Fatalf("title not persisted: %q", chatRepo.chats[0].Title)
	}
}

func TestGenerateTitleStripsQuotes(t *testing.T) {
	userID := uuid.New()
	chatID := uuid.New()
	chatRepo := &fakeChatRepo{chats: []*types.Chat{{ID: chatID, UserID: userID, Title: types.DefaultChatTitle}}}
	ai := &fakeAI{
		generateText: func(_, _ string) (string, error) {
			return `"Weekly Planning"`, nil
		},
	}
	svc := NewChatService(nil, testLogger(t), chatRepo, &fakeMessageRepo{}, ai)

	title, err := svc.GenerateTitle(context.Background(), userID, chatID, "help me plan my week")
	if err != nil {
		t.Fatalf("GenerateTitle: %v", err)
	}
	if title != "Weekly Planning" {
		t.Fatalf("got title %q, want %q", title, "Weekly Planning")
	}
}
