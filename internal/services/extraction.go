package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/platform/openai"
	"github.com/compasshq/compass-backend/internal/prompts"
	"github.com/compasshq/compass-backend/internal/repos"
	"github.com/compasshq/compass-backend/internal/types"
)

const (
	FactKindProfileField = "profile_field"
	FactKindMemory       = "memory"
)

// Profile field keys the extractor is allowed to emit.
const (
	ProfileKeyFirstName = "first_name"
	ProfileKeyLastName  = "last_name"
	ProfileKeyBirthDate = "birth_date"
)

// Fact is one extracted durable fact. Kind selects the destination:
// profile fields carry a Key and land on the profile row, memories
// carry only a Value and become memory rows.
type Fact struct {
	Kind  string
	Key   string
	Value string
}

// extractionTimeout bounds the detached post-exchange run.
const extractionTimeout = 90 * time.Second

// dedupeScanLimit caps how many recent memories are loaded for the
// duplicate check and the known-memories prompt block.
const dedupeScanLimit = 200

type ExtractionService interface {
	// Extract returns the new durable facts in a single exchange. An
	// empty slice means the exchange contained nothing worth keeping.
	Extract(ctx context.Context, userID uuid.UUID, userMessage, assistantMessage string) ([]Fact, error)
	// Apply routes facts to their stores: profile fields update the
	// profile row, memories append rows after deduplication.
	Apply(ctx context.Context, userID uuid.UUID, facts []Fact) error
	// RunAfterExchange performs Extract+Apply on a detached context.
	// Failures are logged and swallowed; the exchange already succeeded.
	RunAfterExchange(userID uuid.UUID, userMessage, assistantMessage string)
}

type extractionService struct {
	log         *logger.Logger
	memoryRepo  repos.MemoryRepo
	profileRepo repos.ProfileRepo
	ai          openai.Client
}

func NewExtractionService(
	log *logger.Logger,
	memoryRepo repos.MemoryRepo,
	profileRepo repos.ProfileRepo,
	ai openai.Client,
) ExtractionService {
	return &extractionService{
		log:         log.With("service", "ExtractionService"),
		memoryRepo:  memoryRepo,
		profileRepo: profileRepo,
		ai:          ai,
	}
}

// extractionSchema constrains the model to a tagged-variant list. With
// strict mode every property is required, so profile facts carry their
// key and memory facts carry an empty one.
func extractionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"facts": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"kind": map[string]any{
							"type": "string",
							"enum": []string{FactKindProfileField, FactKindMemory},
						},
						"key": map[string]any{
							"type": "string",
							"enum": []string{ProfileKeyFirstName, ProfileKeyLastName, ProfileKeyBirthDate, ""},
						},
						"value": map[string]any{"type": "string"},
					},
					"required":             []string{"kind", "key", "value"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"facts"},
		"additionalProperties": false,
	}
}

func (es *extractionService) Extract(ctx context.Context, userID uuid.UUID, userMessage, assistantMessage string) ([]Fact, error) {
	known, err := es.memoryRepo.ListByUserID(ctx, nil, userID, dedupeScanLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load known memories: %w", err)
	}
	knownBlock := "(none)"
	if len(known) > 0 {
		lines := make([]string, 0, len(known))
		for _, m := range known {
			lines = append(lines, "- "+m.Content)
		}
		knownBlock = strings.Join(lines, "\n")
	}

	user := fmt.Sprintf(prompts.MemoryExtractionUser, knownBlock, userMessage, assistantMessage)
	out, err := es.ai.GenerateJSON(ctx, prompts.MemoryExtractionSystem, user, "extracted_facts", extractionSchema())
	if err != nil {
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}

	raw, _ := out["facts"].([]any)
	facts := make([]Fact, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		fact := Fact{
			Kind:  stringField(obj, "kind"),
			Key:   stringField(obj, "key"),
			Value: strings.TrimSpace(stringField(obj, "value")),
		}
		if fact.Value == "" {
			continue
		}
		switch fact.Kind {
		case FactKindProfileField:
			if fact.Key == ProfileKeyBirthDate {
				normalized, err := NormalizeBirthDate(fact.Value)
				if err != nil {
					es.log.Warn("unparseable birth date dropped", "value_len", len(fact.Value), "error", err)
					continue
				}
				fact.Value = normalized
			}
			if fact.Key != ProfileKeyFirstName && fact.Key != ProfileKeyLastName && fact.Key != ProfileKeyBirthDate {
				continue
			}
		case FactKindMemory:
			fact.Key = ""
		default:
			continue
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

func (es *extractionService) Apply(ctx context.Context, userID uuid.UUID, facts []Fact) error {
	if len(facts) == 0 {
		return nil
	}

	profileFields := map[string]any{}
	var memoryValues []string
	for _, f := range facts {
		switch f.Kind {
		case FactKindProfileField:
			if f.Key == ProfileKeyBirthDate {
				t, err := time.Parse("2006-01-02", f.Value)
				if err != nil {
					continue
				}
				profileFields[f.Key] = t
			} else {
				profileFields[f.Key] = f.Value
			}
		case FactKindMemory:
			memoryValues = append(memoryValues, f.Value)
		}
	}

	if len(profileFields) > 0 {
		if err := es.profileRepo.UpdateFields(ctx, nil, userID, profileFields); err != nil {
			return fmt.Errorf("failed to update profile fields: %w", err)
		}
	}

	if len(memoryValues) > 0 {
		existing, err := es.memoryRepo.ListByUserID(ctx, nil, userID, dedupeScanLimit)
		if err != nil {
			return fmt.Errorf("failed to load memories for dedup: %w", err)
		}
		seen := make(map[string]struct{}, len(existing))
		for _, m := range existing {
			seen[normalizeContent(m.Content)] = struct{}{}
		}

		var rows []*types.Memory
		for _, v := range memoryValues {
			norm := normalizeContent(v)
			if _, dup := seen[norm]; dup {
				continue
			}
			seen[norm] = struct{}{}
			rows = append(rows, &types.Memory{ID: uuid.New(), UserID: userID, Content: v})
		}
		if len(rows) > 0 {
			if _, err := es.memoryRepo.Create(ctx, nil, rows); err != nil {
				return fmt.Errorf("failed to save memories: %w", err)
			}
		}
	}
	return nil
}

func (es *extractionService) RunAfterExchange(userID uuid.UUID, userMessage, assistantMessage string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), extractionTimeout)
		defer cancel()

		facts, err := es.Extract(ctx, userID, userMessage, assistantMessage)
		if err != nil {
			es.log.Warn("post-exchange extraction failed", "user_id", userID.String(), "error", err)
			return
		}
		if len(facts) == 0 {
			return
		}
		if err := es.Apply(ctx, userID, facts); err != nil {
			es.log.Warn("failed to apply extracted facts", "user_id", userID.String(), "error", err)
			return
		}
		es.log.Info("extraction applied", "user_id", userID.String(), "facts", len(facts))
	}()
}

// normalizeContent is the duplicate predicate for memories: lowercase,
// collapsed whitespace, terminal punctuation stripped.
func normalizeContent(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRight(s, ".!?")
}

// birthDateLayouts are the accepted input shapes, tried in order.
var birthDateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
	"02.01.2006",
}

// NormalizeBirthDate renders any accepted date phrasing as YYYY-MM-DD.
func NormalizeBirthDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range birthDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", s)
}

func stringField(obj map[string]any, key string) string {
	v, _ := obj[key].(string)
	return v
}
