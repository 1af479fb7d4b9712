package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelfin/sortinghat/internal/common"
	"github.com/kestrelfin/sortinghat/internal/learning"
	"github.com/kestrelfin/sortinghat/internal/model"
	"github.com/kestrelfin/sortinghat/internal/pattern"
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

func testTxn(merchant string, amount float64) model.Transaction {
	return model.Transaction{
		ID:           uuid.NewString(),
		Date:         time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC),
		MerchantName: merchant,
		Name:         merchant,
		Amount:       amount,
	}
}

func TestEngine_Categorize(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	food, err := store.CreateCategory(ctx, "Food & Dining", "")
	require.NoError(t, err)
	require.NoError(t, store.CreatePattern(ctx, &model.Pattern{
		Type: model.PatternMerchant, Value: "starbucks",
		CategoryID: food.ID, ConfidenceWeight: 1.0, Active: true,
	}))

	eng := New(store, pattern.DefaultConfig(), learning.DefaultConfig())

	// The first Categorize loads the snapshot lazily.
	suggestions, diagnostic, err := eng.Categorize(ctx, testTxn("STARBUCKS", 6.50))
	require.NoError(t, err)
	assert.Empty(t, diagnostic)
	require.Len(t, suggestions, 1)
	assert.Equal(t, food.ID, suggestions[0].CategoryID)
	assert.Equal(t, "Food & Dining", suggestions[0].Category)
	assert.InDelta(t, 1.0, suggestions[0].Confidence, 0.02)
}

func TestEngine_Categorize_NoMatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateCategory(ctx, "Food & Dining", "")
	require.NoError(t, err)

	eng := New(store, pattern.DefaultConfig(), learning.DefaultConfig())

	suggestions, diagnostic, err := eng.Categorize(ctx, testTxn("UNKNOWN VENDOR", 12))
	require.NoError(t, err)
	assert.Empty(t, suggestions, "unmatched transactions stay uncategorized")
	assert.Empty(t, diagnostic, "no-match is not a diagnostic condition")
}

func TestEngine_Categorize_IncompleteTransaction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateCategory(ctx, "Food & Dining", "")
	require.NoError(t, err)

	eng := New(store, pattern.DefaultConfig(), learning.DefaultConfig())

	// No amount and no merchant text.
	suggestions, diagnostic, err := eng.Categorize(ctx, model.Transaction{
		ID:   uuid.NewString(),
		Date: time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Empty(t, suggestions)
	assert.NotEmpty(t, diagnostic, "the caller should learn why nothing was suggested")
}

func TestEngine_Categorize_FailsClosed(t *testing.T) {
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	eng := New(store, pattern.DefaultConfig(), learning.DefaultConfig())

	// Break the snapshot source before the first load.
	require.NoError(t, store.Close())

	suggestions, _, err := eng.Categorize(context.Background(), testTxn("STARBUCKS", 6.50))
	assert.Empty(t, suggestions, "degraded mode must not guess")
	assert.True(t, errors.Is(err, common.ErrDegradedMode), "err = %v", err)
}

func TestEngine_Refresh_PicksUpNewPatterns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	food, err := store.CreateCategory(ctx, "Food & Dining", "")
	require.NoError(t, err)

	eng := New(store, pattern.DefaultConfig(), learning.DefaultConfig())
	require.NoError(t, eng.Refresh(ctx))

	// Nothing matches against the initial snapshot.
	suggestions, _, err := eng.Categorize(ctx, testTxn("STARBUCKS", 6.50))
	require.NoError(t, err)
	assert.Empty(t, suggestions)

	require.NoError(t, store.CreatePattern(ctx, &model.Pattern{
		Type: model.PatternMerchant, Value: "starbucks",
		CategoryID: food.ID, ConfidenceWeight: 1.0, Active: true,
	}))

	// The stale snapshot still misses it until Refresh.
	suggestions, _, err = eng.Categorize(ctx, testTxn("STARBUCKS", 6.50))
	require.NoError(t, err)
	assert.Empty(t, suggestions, "stale snapshot must stay stable")

	require.NoError(t, eng.Refresh(ctx))
	suggestions, _, err = eng.Categorize(ctx, testTxn("STARBUCKS", 6.50))
	require.NoError(t, err)
	assert.Len(t, suggestions, 1)
}

func TestEngine_FeedbackLoop(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	food, err := store.CreateCategory(ctx, "Food & Dining", "")
	require.NoError(t, err)
	p := &model.Pattern{
		Type: model.PatternMerchant, Value: "starbucks",
		CategoryID: food.ID, ConfidenceWeight: 1.0, Active: true,
	}
	require.NoError(t, store.CreatePattern(ctx, p))

	eng := New(store, pattern.DefaultConfig(), learning.DefaultConfig())

	txn := testTxn("STARBUCKS", 6.50)
	suggestions, _, err := eng.Categorize(ctx, txn)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)

	err = eng.RecordFeedback(ctx, learning.Feedback{
		Transaction:      txn,
		Type:             model.FeedbackConfirmation,
		ContributingRefs: suggestions[0].ContributingRefs,
		CategoryID:       suggestions[0].CategoryID,
		Confidence:       suggestions[0].Confidence,
	})
	require.NoError(t, err)

	got, err := store.GetPattern(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UsageCount)
	assert.Equal(t, int64(1), got.SuccessCount)
}

func TestEngine_Sweep(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	food, err := store.CreateCategory(ctx, "Food & Dining", "")
	require.NoError(t, err)
	require.NoError(t, store.CreatePattern(ctx, &model.Pattern{
		Type: model.PatternMerchant, Value: "failing",
		CategoryID: food.ID, ConfidenceWeight: 1.0, Active: true,
		UsageCount: 20, SuccessCount: 2,
	}))

	eng := New(store, pattern.DefaultConfig(), learning.DefaultConfig())
	deactivated, err := eng.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deactivated)
}
