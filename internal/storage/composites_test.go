package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kestrelfin/sortinghat/internal/common"
	"github.com/kestrelfin/sortinghat/internal/model"
)

func TestCreateCompositePattern(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx := context.Background()
	category := createTestCategory(t, store, "Food & Dining")
	p1 := createTestPattern(t, store, model.PatternMerchant, "starbucks", category.ID)
	p2 := createTestPattern(t, store, model.PatternKeyword, "coffee", category.ID)

	startHour := 5
	endHour := 12
	composite := &model.CompositePattern{
		Name:             "weekend morning coffee",
		Operator:         model.OperatorAnd,
		ComponentIDs:     []int64{p1.ID, p2.ID},
		DaysOfWeek:       []time.Weekday{time.Saturday, time.Sunday},
		StartHour:        &startHour,
		EndHour:          &endHour,
		CategoryID:       category.ID,
		ConfidenceWeight: 1.0,
		Active:           true,
	}
	if err := store.CreateCompositePattern(ctx, composite); err != nil {
		t.Fatalf("CreateCompositePattern() error = %v", err)
	}
	if composite.ID == 0 {
		t.Fatal("CreateCompositePattern() did not assign an ID")
	}
	// Create reads the components back inside its transaction, so the
	// struct reflects the stored position order without a second query.
	if len(composite.ComponentIDs) != 2 || composite.ComponentIDs[0] != p1.ID || composite.ComponentIDs[1] != p2.ID {
		t.Errorf("stored component order = %v, want [%d %d]", composite.ComponentIDs, p1.ID, p2.ID)
	}

	got, err := store.GetCompositePattern(ctx, composite.ID)
	if err != nil {
		t.Fatalf("GetCompositePattern() error = %v", err)
	}
	if got.Name != composite.Name || got.Operator != model.OperatorAnd {
		t.Errorf("round trip = %q %s", got.Name, got.Operator)
	}
	if len(got.ComponentIDs) != 2 || got.ComponentIDs[0] != p1.ID || got.ComponentIDs[1] != p2.ID {
		t.Errorf("component order = %v, want [%d %d]", got.ComponentIDs, p1.ID, p2.ID)
	}
	if len(got.DaysOfWeek) != 2 {
		t.Errorf("days of week = %v", got.DaysOfWeek)
	}
	if got.StartHour == nil || *got.StartHour != 5 || got.EndHour == nil || *got.EndHour != 12 {
		t.Errorf("hour window = %v..%v", got.StartHour, got.EndHour)
	}
}

func TestCreateCompositePattern_Invalid(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx := context.Background()
	category := createTestCategory(t, store, "Food & Dining")

	tests := []struct {
		name      string
		composite model.CompositePattern
	}{
		{
			name: "no components",
			composite: model.CompositePattern{
				Name: "empty", Operator: model.OperatorAnd,
				CategoryID: category.ID, ConfidenceWeight: 1.0,
			},
		},
		{
			name: "unknown operator",
			composite: model.CompositePattern{
				Name: "bad op", Operator: "XOR", ComponentIDs: []int64{1},
				CategoryID: category.ID, ConfidenceWeight: 1.0,
			},
		},
		{
			name: "missing name",
			composite: model.CompositePattern{
				Operator: model.OperatorOr, ComponentIDs: []int64{1},
				CategoryID: category.ID, ConfidenceWeight: 1.0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.CreateCompositePattern(ctx, &tt.composite); err == nil {
				t.Error("CreateCompositePattern() error = nil, want error")
			}
		})
	}
}

func TestGetActiveCompositePatterns(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx := context.Background()
	category := createTestCategory(t, store, "Food & Dining")
	p := createTestPattern(t, store, model.PatternMerchant, "starbucks", category.ID)

	first := &model.CompositePattern{
		Name: "first", Operator: model.OperatorOr, ComponentIDs: []int64{p.ID},
		CategoryID: category.ID, ConfidenceWeight: 1.0, Active: true,
	}
	second := &model.CompositePattern{
		Name: "second", Operator: model.OperatorOr, ComponentIDs: []int64{p.ID},
		CategoryID: category.ID, ConfidenceWeight: 1.0, Active: true,
	}
	for _, c := range []*model.CompositePattern{first, second} {
		if err := store.CreateCompositePattern(ctx, c); err != nil {
			t.Fatalf("CreateCompositePattern() error = %v", err)
		}
	}

	if err := store.SetCompositeActive(ctx, second.ID, false); err != nil {
		t.Fatalf("SetCompositeActive() error = %v", err)
	}

	active, err := store.GetActiveCompositePatterns(ctx)
	if err != nil {
		t.Fatalf("GetActiveCompositePatterns() error = %v", err)
	}
	if len(active) != 1 || active[0].ID != first.ID {
		t.Errorf("active composites = %+v, want only %d", active, first.ID)
	}
	if len(active[0].ComponentIDs) != 1 {
		t.Errorf("components not loaded: %v", active[0].ComponentIDs)
	}
}

func TestRecordCompositeUse(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx := context.Background()
	category := createTestCategory(t, store, "Food & Dining")
	p := createTestPattern(t, store, model.PatternMerchant, "starbucks", category.ID)

	composite := &model.CompositePattern{
		Name: "combo", Operator: model.OperatorOr, ComponentIDs: []int64{p.ID},
		CategoryID: category.ID, ConfidenceWeight: 1.0, Active: true,
	}
	if err := store.CreateCompositePattern(ctx, composite); err != nil {
		t.Fatalf("CreateCompositePattern() error = %v", err)
	}

	if err := store.RecordCompositeUse(ctx, composite.ID, true); err != nil {
		t.Fatalf("RecordCompositeUse() error = %v", err)
	}
	if err := store.RecordCompositeUse(ctx, composite.ID, false); err != nil {
		t.Fatalf("RecordCompositeUse() error = %v", err)
	}

	got, err := store.GetCompositePattern(ctx, composite.ID)
	if err != nil {
		t.Fatalf("GetCompositePattern() error = %v", err)
	}
	if got.UsageCount != 2 || got.SuccessCount != 1 {
		t.Errorf("counters = %d/%d, want 2/1", got.SuccessCount, got.UsageCount)
	}

	if err := store.RecordCompositeUse(ctx, 9999, true); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("RecordCompositeUse(missing) error = %v, want ErrNotFound", err)
	}
}
