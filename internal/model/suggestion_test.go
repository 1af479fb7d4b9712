package model

import "testing"

func TestSuggestions_Sort(t *testing.T) {
	s := Suggestions{
		{CategoryID: 3, Confidence: 0.5},
		{CategoryID: 1, Confidence: 0.9},
		{CategoryID: 2, Confidence: 0.9},
		{CategoryID: 4, Confidence: 0.1},
	}

	s.Sort()

	wantOrder := []int{1, 2, 3, 4}
	for i, want := range wantOrder {
		if s[i].CategoryID != want {
			t.Errorf("position %d: category %d, want %d", i, s[i].CategoryID, want)
		}
	}
}

func TestSuggestions_TopN(t *testing.T) {
	s := Suggestions{
		{CategoryID: 1, Confidence: 0.2},
		{CategoryID: 2, Confidence: 0.8},
		{CategoryID: 3, Confidence: 0.5},
	}

	top := s.TopN(2)
	if len(top) != 2 {
		t.Fatalf("TopN(2) returned %d suggestions", len(top))
	}
	if top[0].CategoryID != 2 || top[1].CategoryID != 3 {
		t.Errorf("TopN(2) order = %d, %d; want 2, 3", top[0].CategoryID, top[1].CategoryID)
	}

	if got := s.TopN(10); len(got) != 3 {
		t.Errorf("TopN larger than slice returned %d, want 3", len(got))
	}
	if got := s.TopN(0); len(got) != 0 {
		t.Errorf("TopN(0) returned %d, want 0", len(got))
	}
}

func TestSuggestions_Top(t *testing.T) {
	var empty Suggestions
	if empty.Top() != nil {
		t.Error("Top of empty suggestions should be nil")
	}

	s := Suggestions{
		{CategoryID: 1, Confidence: 0.3},
		{CategoryID: 2, Confidence: 0.7},
	}
	top := s.Top()
	if top == nil || top.CategoryID != 2 {
		t.Errorf("Top() = %+v, want category 2", top)
	}
}

func TestSuggestion_Validate(t *testing.T) {
	good := Suggestion{CategoryID: 1, Confidence: 0.5}
	if err := good.Validate(); err != nil {
		t.Errorf("valid suggestion: %v", err)
	}

	noCategory := Suggestion{Confidence: 0.5}
	if err := noCategory.Validate(); err == nil {
		t.Error("missing category should fail validation")
	}

	tooConfident := Suggestion{CategoryID: 1, Confidence: 1.5}
	if err := tooConfident.Validate(); err == nil {
		t.Error("confidence above 1.0 should fail validation")
	}
}

func TestSuggestions_AboveThreshold(t *testing.T) {
	s := Suggestions{
		{CategoryID: 1, Confidence: 0.2},
		{CategoryID: 2, Confidence: 0.8},
		{CategoryID: 3, Confidence: 0.5},
	}

	got := s.AboveThreshold(0.5)
	if len(got) != 2 {
		t.Fatalf("AboveThreshold(0.5) returned %d suggestions, want 2", len(got))
	}
	if got[0].CategoryID != 2 || got[1].CategoryID != 3 {
		t.Errorf("order = %d, %d; want 2, 3", got[0].CategoryID, got[1].CategoryID)
	}
}
