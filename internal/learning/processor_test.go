package learning

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelfin/sortinghat/internal/model"
	"github.com/kestrelfin/sortinghat/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testTxn(merchant string) model.Transaction {
	return model.Transaction{
		ID:           uuid.NewString(),
		Date:         time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC),
		MerchantName: merchant,
		Name:         merchant,
		Amount:       12.50,
	}
}

func TestRecordFeedback_Confirmation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	category, err := store.CreateCategory(ctx, "Food & Dining", "")
	require.NoError(t, err)
	p := &model.Pattern{
		Type: model.PatternMerchant, Value: "starbucks",
		CategoryID: category.ID, ConfidenceWeight: 1.0, Active: true,
	}
	require.NoError(t, store.CreatePattern(ctx, p))

	processor := NewProcessor(store, DefaultConfig())
	ref := model.SimpleRef(p.ID)
	err = processor.RecordFeedback(ctx, Feedback{
		Transaction:      testTxn("STARBUCKS"),
		Type:             model.FeedbackConfirmation,
		OriginatingRef:   &ref,
		ContributingRefs: []model.PatternRef{ref},
		CategoryID:       category.ID,
		Confidence:       0.95,
	})
	require.NoError(t, err)

	got, err := store.GetPattern(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UsageCount)
	assert.Equal(t, int64(1), got.SuccessCount)

	// The merchant preference strengthened toward the confirmed category.
	prefs, err := store.GetPreferences(ctx)
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, model.ContextMerchant, prefs[0].ContextType)
	assert.Equal(t, "starbucks", prefs[0].ContextValue)
	assert.Equal(t, category.ID, prefs[0].CategoryID)
	assert.Equal(t, 1.0, prefs[0].Strength)
}

func TestRecordFeedback_CorrectionCountsAsFailure(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	food, err := store.CreateCategory(ctx, "Food & Dining", "")
	require.NoError(t, err)
	shopping, err := store.CreateCategory(ctx, "Shopping", "")
	require.NoError(t, err)

	p := &model.Pattern{
		Type: model.PatternMerchant, Value: "target",
		CategoryID: shopping.ID, ConfidenceWeight: 1.0, Active: true,
	}
	require.NoError(t, store.CreatePattern(ctx, p))

	processor := NewProcessor(store, DefaultConfig())
	ref := model.SimpleRef(p.ID)
	err = processor.RecordFeedback(ctx, Feedback{
		Transaction:    testTxn("TARGET"),
		Type:           model.FeedbackCorrection,
		OriginatingRef: &ref,
		CategoryID:     food.ID, // user chose food, not shopping
		Confidence:     0.8,
	})
	require.NoError(t, err)

	got, err := store.GetPattern(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UsageCount)
	assert.Equal(t, int64(0), got.SuccessCount)

	// The chosen category gained strength; the superseded category's
	// preference was pushed down and floors at zero, so only the chosen
	// one survives.
	prefs, err := store.GetPreferences(ctx)
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, food.ID, prefs[0].CategoryID)
}

func TestRecordFeedback_SynthesisAfterRepeatedCorrections(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	food, err := store.CreateCategory(ctx, "Food & Dining", "")
	require.NoError(t, err)

	processor := NewProcessor(store, DefaultConfig())

	// Correct the same merchant to the same category three times.
	for i := 0; i < 3; i++ {
		err := processor.RecordFeedback(ctx, Feedback{
			Transaction: testTxn("JOES PIZZA"),
			Type:        model.FeedbackCorrection,
			CategoryID:  food.ID,
		})
		require.NoError(t, err)
	}

	patterns, err := store.GetAllPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 1)

	synthesized := patterns[0]
	assert.Equal(t, model.PatternMerchant, synthesized.Type)
	assert.Equal(t, "joes pizza", synthesized.Value)
	assert.Equal(t, food.ID, synthesized.CategoryID)
	assert.True(t, synthesized.UserCreated)
	assert.True(t, synthesized.Active)

	// A fourth correction does not create a duplicate.
	err = processor.RecordFeedback(ctx, Feedback{
		Transaction: testTxn("JOES PIZZA"),
		Type:        model.FeedbackCorrection,
		CategoryID:  food.ID,
	})
	require.NoError(t, err)

	patterns, err = store.GetAllPatterns(ctx)
	require.NoError(t, err)
	assert.Len(t, patterns, 1)
}

func TestRecordFeedback_NoSynthesisBelowThreshold(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	food, err := store.CreateCategory(ctx, "Food & Dining", "")
	require.NoError(t, err)

	processor := NewProcessor(store, DefaultConfig())

	for i := 0; i < 2; i++ {
		err := processor.RecordFeedback(ctx, Feedback{
			Transaction: testTxn("JOES PIZZA"),
			Type:        model.FeedbackCorrection,
			CategoryID:  food.ID,
		})
		require.NoError(t, err)
	}

	patterns, err := store.GetAllPatterns(ctx)
	require.NoError(t, err)
	assert.Empty(t, patterns)
}

func TestRecordFeedback_SynthesisReactivatesDisabledPattern(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	food, err := store.CreateCategory(ctx, "Food & Dining", "")
	require.NoError(t, err)

	existing := &model.Pattern{
		Type: model.PatternMerchant, Value: "joes pizza",
		CategoryID: food.ID, ConfidenceWeight: 1.0, Active: true,
	}
	require.NoError(t, store.CreatePattern(ctx, existing))
	require.NoError(t, store.SetPatternActive(ctx, existing.ID, false))

	processor := NewProcessor(store, DefaultConfig())
	for i := 0; i < 3; i++ {
		err := processor.RecordFeedback(ctx, Feedback{
			Transaction: testTxn("JOES PIZZA"),
			Type:        model.FeedbackCorrection,
			CategoryID:  food.ID,
		})
		require.NoError(t, err)
	}

	got, err := store.GetPattern(ctx, existing.ID)
	require.NoError(t, err)
	assert.True(t, got.Active, "corrections should re-earn the disabled pattern")

	patterns, err := store.GetAllPatterns(ctx)
	require.NoError(t, err)
	assert.Len(t, patterns, 1, "no duplicate should be created")
}

func TestRecordFeedback_RejectionWeakensPreference(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	food, err := store.CreateCategory(ctx, "Food & Dining", "")
	require.NoError(t, err)

	processor := NewProcessor(store, DefaultConfig())

	// Build up some strength first.
	err = processor.RecordFeedback(ctx, Feedback{
		Transaction: testTxn("STARBUCKS"),
		Type:        model.FeedbackConfirmation,
		CategoryID:  food.ID,
	})
	require.NoError(t, err)

	err = processor.RecordFeedback(ctx, Feedback{
		Transaction: testTxn("STARBUCKS"),
		Type:        model.FeedbackRejection,
		CategoryID:  food.ID,
	})
	require.NoError(t, err)

	// +1 then -1: the preference is back to zero and out of the set.
	prefs, err := store.GetPreferences(ctx)
	require.NoError(t, err)
	assert.Empty(t, prefs)
}

func TestRecordFeedback_Validation(t *testing.T) {
	store := newTestStore(t)
	processor := NewProcessor(store, DefaultConfig())
	ctx := context.Background()

	tests := []struct {
		name string
		fb   Feedback
	}{
		{
			name: "missing transaction",
			fb:   Feedback{Type: model.FeedbackConfirmation, CategoryID: 1},
		},
		{
			name: "missing category",
			fb:   Feedback{Transaction: testTxn("x"), Type: model.FeedbackConfirmation},
		},
		{
			name: "unknown type",
			fb:   Feedback{Transaction: testTxn("x"), Type: "shrug", CategoryID: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, processor.RecordFeedback(ctx, tt.fb))
		})
	}
}

func TestSweep(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	food, err := store.CreateCategory(ctx, "Food & Dining", "")
	require.NoError(t, err)

	failing := &model.Pattern{
		Type: model.PatternMerchant, Value: "failing",
		CategoryID: food.ID, ConfidenceWeight: 1.0, Active: true,
		UsageCount: 20, SuccessCount: 4,
	}
	require.NoError(t, store.CreatePattern(ctx, failing))

	processor := NewProcessor(store, DefaultConfig())
	deactivated, err := processor.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deactivated)

	got, err := store.GetPattern(ctx, failing.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}
