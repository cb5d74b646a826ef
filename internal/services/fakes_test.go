package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/platform/lookup"
	"github.com/compasshq/compass-backend/internal/platform/openai"
	"github.com/compasshq/compass-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

// testDB opens an in-memory database for services that run real
// transactions around fake repositories.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return gdb
}

// fakeAI scripts the three client calls per test.
type fakeAI struct {
	generateText func(system, user string) (string, error)
	generateJSON func(system, user, schemaName string) (map[string]any, error)
	stream       func(req openai.StreamRequest, onDelta func(delta string)) (string, error)
}

func (f *fakeAI) GenerateText(_ context.Context, system, user string) (string, error) {
	if f.generateText == nil {
		return "", nil
	}
	return f.generateText(system, user)
}

func (f *fakeAI) GenerateJSON(_ context.Context, system, user, schemaName string, _ map[string]any) (map[string]any, error) {
	if f.generateJSON == nil {
		return map[string]any{}, nil
	}
	return f.generateJSON(system, user, schemaName)
}

func (f *fakeAI) Stream(_ context.Context, req openai.StreamRequest, onDelta func(delta string)) (string, error) {
	if f.stream == nil {
		return "", nil
	}
	return f.stream(req, onDelta)
}

type fakeMemoryRepo struct {
	memories []*types.Memory
	created  []*types.Memory
}

func (f *fakeMemoryRepo) Create(_ context.Context, _ *gorm.DB, memories []*types.Memory) ([]*types.Memory, error) {
	f.created = append(f.created, memories...)
	f.memories = append(f.memories, memories...)
	return memories, nil
}

func (f *fakeMemoryRepo) ListByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID, limit int) ([]*types.Memory, error) {
	var out []*types.Memory
	for _, m := range f.memories {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMemoryRepo) DeleteByID(_ context.Context, _ *gorm.DB, userID, memoryID uuid.UUID) (int64, error) {
	for i, m := range f.memories {
		if m.ID == memoryID && m.UserID == userID {
			f.memories = append(f.memories[:i], f.memories[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

type fakeProfileRepo struct {
	updates []map[string]any
}

func (f *fakeProfileRepo) Create(_ context.Context, _ *gorm.DB, profile *types.Profile) (*types.Profile, error) {
	return profile, nil
}

func (f *fakeProfileRepo) GetByUserID(_ context.Context, _ *gorm.DB, _ uuid.UUID) (*types.Profile, error) {
	return &types.Profile{}, nil
}

func (f *fakeProfileRepo) UpdateFields(_ context.Context, _ *gorm.DB, _ uuid.UUID, fields map[string]any) error {
	f.updates = append(f.updates, fields)
	return nil
}

type fakeChatRepo struct {
	chats []*types.Chat
}

func (f *fakeChatRepo) Create(_ context.Context, _ *gorm.DB, chat *types.Chat) (*types.Chat, error) {
	f.chats = append(f.chats, chat)
	return chat, nil
}

func (f *fakeChatRepo) GetByID(_ context.Context, _ *gorm.DB, userID, chatID uuid.UUID) (*types.Chat, error) {
	for _, c := range f.chats {
		if c.ID == chatID && c.UserID == userID {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeChatRepo) ListByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID) ([]*types.Chat, error) {
	var out []*types.Chat
	for _, c := range f.chats {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChatRepo) UpdateTitle(_ context.Context, _ *gorm.DB, chatID uuid.UUID, title string) error {
	for _, c := range f.chats {
		if c.ID == chatID {
			c.Title = title
		}
	}
	return nil
}

func (f *fakeChatRepo) UpdateSummary(_ context.Context, _ *gorm.DB, chatID uuid.UUID, summary string) error {
	for _, c := range f.chats {
		if c.ID == chatID {
			c.Summary = summary
		}
	}
	return nil
}

func (f *fakeChatRepo) Touch(_ context.Context, _ *gorm.DB, chatID uuid.UUID, at time.Time) error {
	for _, c := range f.chats {
		if c.ID == chatID {
			c.UpdatedAt = at
		}
	}
	return nil
}

func (f *fakeChatRepo) Delete(_ context.Context, _ *gorm.DB, chatID uuid.UUID) error {
	for i, c := range f.chats {
		if c.ID == chatID {
			f.chats = append(f.chats[:i], f.chats[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeMessageRepo struct {
	messages []*types.Message
}

func (f *fakeMessageRepo) Create(_ context.Context, _ *gorm.DB, message *types.Message) (*types.Message, error) {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	f.messages = append(f.messages, message)
	return message, nil
}

func (f *fakeMessageRepo) ListByChatID(_ context.Context, _ *gorm.DB, chatID uuid.UUID) ([]*types.Message, error) {
	var out []*types.Message
	for _, m := range f.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) CountByChatIDs(_ context.Context, _ *gorm.DB, chatIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(chatIDs))
	for _, id := range chatIDs {
		for _, m := range f.messages {
			if m.ChatID == id {
				counts[id]++
			}
		}
	}
	return counts, nil
}

func (f *fakeMessageRepo) LastMatching(_ context.Context, _ *gorm.DB, chatID uuid.UUID, role, content string) (*types.Message, error) {
	for i := len(f.messages) - 1; i >= 0; i-- {
		m := f.messages[i]
		if m.ChatID == chatID && m.Role == role && m.Content == content {
			return m, nil
		}
	}
	return nil, nil
}

func (f *fakeMessageRepo) DeleteByChatID(_ context.Context, _ *gorm.DB, chatID uuid.UUID) error {
	var kept []*types.Message
	for _, m := range f.messages {
		if m.ChatID != chatID {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	return nil
}

type fakeBookRepo struct {
	books []*types.Book
}

func (f *fakeBookRepo) Create(_ context.Context, _ *gorm.DB, books []*types.Book) ([]*types.Book, error) {
	f.books = append(f.books, books...)
	return books, nil
}

func (f *fakeBookRepo) GetByID(_ context.Context, _ *gorm.DB, userID, bookID uuid.UUID) (*types.Book, error) {
	for _, b := range f.books {
		if b.ID == bookID && b.UserID == userID {
			return b, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBookRepo) ListByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID) ([]*types.Book, error) {
	var out []*types.Book
	for _, b := range f.books {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookRepo) UpdateChapterSummaries(_ context.Context, _ *gorm.DB, bookID uuid.UUID, summaries string) error {
	for _, b := range f.books {
		if b.ID == bookID {
			b.ChapterSummaries = summaries
		}
	}
	return nil
}

func (f *fakeBookRepo) UpdateDiscussion(_ context.Context, _ *gorm.DB, bookID uuid.UUID, discussion string) error {
	for _, b := range f.books {
		if b.ID == bookID {
			b.Discussion = discussion
		}
	}
	return nil
}

type fakeVideoRepo struct {
	videos []*types.Video
}

func (f *fakeVideoRepo) Create(_ context.Context, _ *gorm.DB, videos []*types.Video) ([]*types.Video, error) {
	f.videos = append(f.videos, videos...)
	return videos, nil
}

func (f *fakeVideoRepo) GetByID(_ context.Context, _ *gorm.DB, userID, videoID uuid.UUID) (*types.Video, error) {
	for _, v := range f.videos {
		if v.ID == videoID && v.UserID == userID {
			return v, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeVideoRepo) ListByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID) ([]*types.Video, error) {
	var out []*types.Video
	for _, v := range f.videos {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

type fakeFeedbackRepo struct {
	feedback []*types.MaterialFeedback
}

func (f *fakeFeedbackRepo) Upsert(_ context.Context, _ *gorm.DB, fb *types.MaterialFeedback) (*types.MaterialFeedback, error) {
	for _, existing := range f.feedback {
		if existing.UserID == fb.UserID && existing.MaterialType == fb.MaterialType && existing.MaterialID == fb.MaterialID {
			existing.Rating = fb.Rating
			existing.Review = fb.Review
			existing.Completed = fb.Completed
			return existing, nil
		}
	}
	f.feedback = append(f.feedback, fb)
	return fb, nil
}

func (f *fakeFeedbackRepo) ListByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID) ([]*types.MaterialFeedback, error) {
	var out []*types.MaterialFeedback
	for _, fb := range f.feedback {
		if fb.UserID == userID {
			out = append(out, fb)
		}
	}
	return out, nil
}

type fakeGoalRepo struct {
	goals []*types.Goal
}

func (f *fakeGoalRepo) Create(_ context.Context, _ *gorm.DB, goal *types.Goal) (*types.Goal, error) {
	f.goals = append(f.goals, goal)
	return goal, nil
}

func (f *fakeGoalRepo) GetByID(_ context.Context, _ *gorm.DB, userID, goalID uuid.UUID) (*types.Goal, error) {
	for _, g := range f.goals {
		if g.ID == goalID && g.UserID == userID {
			return g, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeGoalRepo) ListByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID) ([]*types.Goal, error) {
	var out []*types.Goal
	for _, g := range f.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGoalRepo) ListActive(_ context.Context, _ *gorm.DB, userID uuid.UUID, limit int) ([]*types.Goal, error) {
	var out []*types.Goal
	for _, g := range f.goals {
		if g.UserID == userID && g.Status == types.GoalStatusActive {
			out = append(out, g)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeGoalRepo) UpdateStatus(_ context.Context, _ *gorm.DB, goalID uuid.UUID, status string) error {
	for _, g := range f.goals {
		if g.ID == goalID {
			g.Status = status
		}
	}
	return nil
}

func (f *fakeGoalRepo) DeleteByID(_ context.Context, _ *gorm.DB, userID, goalID uuid.UUID) (int64, error) {
	for i, g := range f.goals {
		if g.ID == goalID && g.UserID == userID {
			f.goals = append(f.goals[:i], f.goals[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

// fakeBookClient verifies every title not listed in missing.
type fakeBookClient struct {
	missing map[string]bool
}

func (f *fakeBookClient) Search(_ context.Context, title, author string) (*lookup.BookResult, error) {
	if f.missing[title] {
		return nil, lookup.ErrNotFound
	}
	return &lookup.BookResult{
		Title:     title,
		Authors:   []string{author},
		Thumbnail: "https://books.example/" + title + ".jpg",
		InfoURL:   "https://books.example/" + title,
	}, nil
}

// fakeVideoClient verifies every URL not listed in missing.
type fakeVideoClient struct {
	missing map[string]bool
}

func (f *fakeVideoClient) Resolve(_ context.Context, videoURL string) (*lookup.VideoResult, error) {
	if f.missing[videoURL] {
		return nil, lookup.ErrNotFound
	}
	return &lookup.VideoResult{
		Title:   "resolved title",
		Channel: "resolved channel",
		URL:     videoURL,
	}, nil
}
