package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestNormalizeBirthDate(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "1990-06-15", want: "1990-06-15"},
		{in: "June 15, 1990", want: "1990-06-15"},
		{in: "June 15 1990", want: "1990-06-15"},
		{in: "Jun 15, 1990", want: "1990-06-15"},
		{in: "15 June 1990", want: "1990-06-15"},
		{in: "06/15/1990", want: "1990-06-15"},
		{in: "1990/06/15", want: "1990-06-15"},
		{in: "  1990-06-15  ", want: "1990-06-15"},
		{in: "sometime in the 90s", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := NormalizeBirthDate(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("NormalizeBirthDate(%q) = %q, want error", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeBirthDate(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("NormalizeBirthDate(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeContent(t *testing.T) {
	cases := []struct {
		a, b string
		same bool
	}{
		{"Works as a nurse.", "works as a nurse", true},
		{"  Works   as a  nurse ", "works as a nurse.", true},
		{"Wants to run a marathon!", "wants to run a marathon", true},
		{"works as a nurse", "works as a doctor", false},
	}
	for _, tc := range cases {
		if got := normalizeContent(tc.a) == normalizeContent(tc.b); got != tc.same {
			t.Errorf("normalizeContent(%q) vs (%q): same=%v, want %v", tc.a, tc.b, got, tc.same)
		}
	}
}

func TestExtractParsesTaggedVariants(t *testing.T) {
	ai := &fakeAI{
		generateJSON: func(_, _, schemaName string) (map[string]any, error) {
			if schemaName != "extracted_facts" {
				t.Fatalf("unexpected schema name %q", schemaName)
			}
			return map[string]any{
				"facts": []any{
					map[string]any{"kind": "profile_field", "key": "first_name", "value": "Maya"},
					map[string]any{"kind": "profile_field", "key": "birth_date", "value": "June 15, 1990"},
					map[string]any{"kind": "memory", "key": "", "value": "Works night shifts as a nurse."},
					map[string]any{"kind": "profile_field", "key": "birth_date", "value": "around 1990"},
					map[string]any{"kind": "memory", "key": "", "value": "   "},
				},
			}, nil
		},
	}
	svc := NewExtractionService(testLogger(t), &fakeMemoryRepo{}, &fakeProfileRepo{}, ai)

	facts, err := svc.Extract(context.Background(), uuid.New(), "hi", "hello")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(facts) != 3 {
		t.Fatalf("got %d facts, want 3: %+v", len(facts), facts)
	}
	if facts[0].Kind != FactKindProfileField || facts[0].Key != ProfileKeyFirstName || facts[0].Value != "Maya" {
		t.Errorf("unexpected first fact: %+v", facts[0])
	}
	if facts[1].Value != "1990-06-15" {
		t.Errorf("birth date not normalized: %+v", facts[1])
	}
	if facts[2].Kind != FactKindMemory || facts[2].Key != "" {
		t.Errorf("unexpected memory fact: %+v", facts[2])
	}
}

func TestExtractEmptyResult(t *testing.T) {
	ai := &fakeAI{
		generateJSON: func(_, _, _ string) (map[string]any, error) {
			return map[string]any{"facts": []any{}}, nil
		},
	}
	svc := NewExtractionService(testLogger(t), &fakeMemoryRepo{}, &fakeProfileRepo{}, ai)

	facts, err := svc.Extract(context.Background(), uuid.New(), "nice weather", "indeed")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(facts) != 0 {
		t.Fatalf("got %d facts, want 0", len(facts))
	}
}

func TestApplyRoutesFacts(t *testing.T) {
	userID := uuid.New()
	memRepo := &fakeMemoryRepo{}
	profRepo := &fakeProfileRepo{}
	svc := NewExtractionService(testLogger(t), memRepo, profRepo, &fakeAI{})

	err := svc.Apply(context.Background(), userID, []Fact{
		{Kind: FactKindProfileField, Key: ProfileKeyFirstName, Value: "Maya"},
		{Kind: FactKindProfileField, Key: ProfileKeyBirthDate, Value: "1990-06-15"},
		{Kind: FactKindMemory, Value: "Works night shifts as a nurse."},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if len(profRepo.updates) != 1 {
		t.Fatalf("got %d profile updates, want 1", len(profRepo.updates))
	}
	if profRepo.updates[0][ProfileKeyFirstName] != "Maya" {
		t.Errorf("first_name not routed: %+v", profRepo.updates[0])
	}
	if _, ok := profRepo.updates[0][ProfileKeyBirthDate]; !ok {
		t.Errorf("birth_date not routed: %+v", profRepo.updates[0])
	}
	if len(memRepo.created) != 1 || memRepo.created[0].Content != "Works night shifts as a nurse." {
		t.Errorf("memory not routed: %+v", memRepo.created)
	}
}

func TestApplySkipsDuplicateMemories(t *testing.T) {
	userID := uuid.New()
	memRepo := &fakeMemoryRepo{}
	svc := NewExtractionService(testLogger(t), memRepo, &fakeProfileRepo{}, &fakeAI{})

	seed := []Fact{{Kind: FactKindMemory, Value: "Wants to run a marathon."}}
	if err := svc.Apply(context.Background(), userID, seed); err != nil {
		t.Fatalf("Apply seed: %v", err)
	}

	err := svc.Apply(context.Background(), userID, []Fact{
		{Kind: FactKindMemory, Value: "wants to run a marathon"},
		{Kind: FactKindMemory, Value: "Is afraid of public speaking."},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(memRepo.created) != 2 {
		t.Fatalf("got %d created memories, want 2 (duplicate skipped): %+v", len(memRepo.created), memRepo.created)
	}
	if memRepo.created[1].Content != "Is afraid of public speaking." {
		t.Errorf("unexpected second memory: %q", memRepo.created[1].Content)
	}
}
