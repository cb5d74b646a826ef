package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/compasshq/compass-backend/internal/platform/openai"
	"github.com/compasshq/compass-backend/internal/platform/rediscache"
	"github.com/compasshq/compass-backend/internal/types"
)

type fakeChatService struct {
	saved []*types.Message
}

func (f *fakeChatService) CreateChat(_ context.Context, userID uuid.UUID, title string) (*types.Chat, error) {
	return &types.Chat{ID: uuid.New(), UserID: userID, Title: title}, nil
}

func (f *fakeChatService) ListChats(context.Context, uuid.UUID) ([]*types.Chat, error) {
	return nil, nil
}

func (f *fakeChatService) GetMessages(context.Context, uuid.UUID, uuid.UUID) ([]*types.Message, error) {
	return nil, nil
}

func (f *fakeChatService) SaveMessage(_ context.Context, userID, chatID uuid.UUID, role, content string) (*types.Message, error) {
	msg := &types.Message{ID: uuid.New(), UserID: userID, ChatID: chatID, Role: role, Content: content}
	f.saved = append(f.saved, msg)
	return msg, nil
}

func (f *fakeChatService) RenameChat(context.Context, uuid.UUID, uuid.UUID, string) (*types.Chat, error) {
	return nil, nil
}

func (f *fakeChatService) DeleteChat(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (f *fakeChatService) GenerateTitle(context.Context, uuid.UUID, uuid.UUID, string) (string, error) {
	return "", nil
}

type fakeCache struct {
	mu    sync.Mutex
	store map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: map[string]string{}}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.store[key]; ok {
		return v, nil
	}
	return "", rediscache.ErrMiss
}

func (f *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[key] = value
	return nil
}

func (f *fakeCache) Close() error { return nil }

type recordingExtraction struct {
	mu    sync.Mutex
	calls [][2]string
}

func (f *recordingExtraction) Extract(context.Context, uuid.UUID, string, string) ([]Fact, error) {
	return nil, nil
}
func (f *recordingExtraction) Apply(context.Context, uuid.UUID, []Fact) error { return nil }
func (f *recordingExtraction) RunAfterExchange(_ uuid.UUID, userMessage, assistantMessage string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, [2]string{userMessage, assistantMessage})
}

func streamFixture(t *testing.T, ai *fakeAI) (*streamService, uuid.UUID, uuid.UUID, *fakeChatService, *recordingExtraction, *fakeMemoryRepo, *fakeChatRepo, *fakeMessageRepo, *fakeGoalRepo) {
	t.Helper()
	userID := uuid.New()
	chatID := uuid.New()
	chatRepo := &fakeChatRepo{chats: []*types.Chat{{ID: chatID, UserID: userID, Title: "t"}}}
	msgRepo := &fakeMessageRepo{}
	goalRepo := &fakeGoalRepo{}
	memRepo := &fakeMemoryRepo{}
	chatSvc := &fakeChatService{}
	extraction := &recordingExtraction{}
	svc := NewStreamService(testLogger(t), chatRepo, msgRepo, goalRepo, memRepo,
		chatSvc, extraction, newFakeCache(), ai).(*streamService)
	return svc, userID, chatID, chatSvc, extraction, memRepo, chatRepo, msgRepo, goalRepo
}


func TestStreamChatPersistsAfterCompletion(t *testing.T) {
	ai := &fakeAI{stream: func(req openai.StreamRequest, onDelta func(string)) (string, error) {
		onDelta("Good ")
		onDelta("question.")
		return "Good question.", nil
	}}
	svc, userID, chatID, chatSvc, extraction, _, _, _, _ := streamFixture(t, ai)

	var chunks []string
	reply, err := svc.StreamChat(context.Background(), StreamParams{
		UserID:  userID,
		ChatID:  chatID,
		Message: "how do I focus better?",
		OnDelta: func(delta string) { chunks = append(chunks, delta) },
	})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	if reply != "Good question." {
		t.Fatalf("reply = %q", reply)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if len(chatSvc.saved) != 2 {
		t.Fatalf("got %d saved messages, want user + assistant", len(chatSvc.saved))
	}
	if chatSvc.saved[1].Role != types.MessageRoleAssistant || chatSvc.saved[1].Content != "Good question." {
		t.Fatalf("assistant turn not persisted: %+v", chatSvc.saved[1])
	}
	if len(extraction.calls) != 1 {
		t.Fatalf("extraction not kicked: %d calls", len(extraction.calls))
	}
}

func TestStreamChatDiscardsOnFailure(t *testing.T) {
	ai := &fakeAI{stream: func(req openai.StreamRequest, onDelta func(string)) (string, error) {
		onDelta("partial")
		return "", errors.New("provider reset")
	}}
	svc, userID, chatID, chatSvc, extraction, _, _, _, _ := streamFixture(t, ai)

	_, err := svc.StreamChat(context.Background(), StreamParams{
		UserID:  userID,
		ChatID:  chatID,
		Message: "hello",
		OnDelta: func(string) {},
	})
	if err == nil {
		t.Fatal("stream failure not surfaced")
	}
	for _, m := range chatSvc.saved {
		if m.Role == types.MessageRoleAssistant {
			t.Fatal("partial assistant reply persisted")
		}
	}
	if len(extraction.calls) != 0 {
		t.Fatal("extraction ran for a failed exchange")
	}
}

func TestStreamChatInjectsGoalsAndMemories(t *testing.T) {
	var seenSystem string
	ai := &fakeAI{stream: func(req openai.StreamRequest, onDelta func(string)) (string, error) {
		seenSystem = req.System
		return "ok", nil
	}}
	svc, userID, chatID, _, _, memRepo, _, _, goalRepo := streamFixture(t, ai)

	goalRepo.goals = []*types.Goal{{UserID: userID, Title: "Run a marathon", Status: types.GoalStatusActive}}
	memRepo.memories = []*types.Memory{{ID: uuid.New(), UserID: userID, Content: "Works night shifts."}}

	if _, err := svc.StreamChat(context.Background(), StreamParams{
		UserID: userID, ChatID: chatID, Message: "hi", OnDelta: func(string) {},
	}); err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	if !strings.Contains(seenSystem, "Run a marathon") {
		t.Errorf("goals block missing: %q", seenSystem)
	}
	if !strings.Contains(seenSystem, "Works night shifts.") {
		t.Errorf("memories block missing: %q", seenSystem)
	}
}
