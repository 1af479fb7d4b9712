// Package engine ties the snapshot, ranker, and learning processor into
// the categorization API that request and job collaborators call.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/kestrelfin/sortinghat/internal/common"
	"github.com/kestrelfin/sortinghat/internal/learning"
	"github.com/kestrelfin/sortinghat/internal/model"
	"github.com/kestrelfin/sortinghat/internal/pattern"
	"github.com/kestrelfin/sortinghat/internal/service"
)

// Engine is the in-process categorization facade. Matching runs against
// an explicit snapshot; Refresh swaps it atomically, so staleness is a
// parameter the caller controls rather than hidden cache behavior.
type Engine struct {
	storage   service.Storage
	processor *learning.Processor
	config    pattern.Config
	mu        sync.RWMutex
	ranker    *pattern.Ranker
}

// New creates an engine. Call Refresh before the first Categorize, or
// let the first call load the snapshot lazily.
func New(storage service.Storage, rankConfig pattern.Config, learnConfig learning.Config) *Engine {
	return &Engine{
		storage:   storage,
		config:    rankConfig,
		processor: learning.NewProcessor(storage, learnConfig),
	}
}

// Refresh loads a fresh snapshot from storage and rebuilds the ranker.
func (e *Engine) Refresh(ctx context.Context) error {
	snapshot, err := e.storage.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDegradedMode, err)
	}

	ranker := pattern.NewRanker(snapshot, e.config)

	e.mu.Lock()
	e.ranker = ranker
	e.mu.Unlock()

	slog.Info("refreshed pattern snapshot",
		"patterns", len(snapshot.Patterns),
		"composites", len(snapshot.Composites),
		"preferences", len(snapshot.Preferences))

	return nil
}

// Categorize returns the ordered category suggestions for a transaction.
// Incomplete input yields an empty list with a diagnostic reason. When
// the snapshot cannot be loaded it fails closed: an empty list and
// ErrDegradedMode, never a guess.
func (e *Engine) Categorize(ctx context.Context, txn model.Transaction) (model.Suggestions, string, error) {
	e.mu.RLock()
	ranker := e.ranker
	e.mu.RUnlock()

	if ranker == nil {
		if err := e.Refresh(ctx); err != nil {
			return model.Suggestions{}, "", err
		}
		e.mu.RLock()
		ranker = e.ranker
		e.mu.RUnlock()
	}

	suggestions, diagnostic := ranker.Categorize(txn)
	if diagnostic != "" {
		// Nothing was evaluated, so there is no attempt to record.
		slog.Debug("categorization skipped", "transaction_id", txn.ID, "reason", diagnostic)
		return suggestions, diagnostic, nil
	}

	e.appendAttemptEvent(ctx, txn, suggestions)

	return suggestions, "", nil
}

// appendAttemptEvent records the categorization attempt in the
// append-only analytics log; best effort only.
func (e *Engine) appendAttemptEvent(ctx context.Context, txn model.Transaction, suggestions model.Suggestions) {
	event := &model.LearningEvent{
		ID:            uuid.NewString(),
		TransactionID: txn.ID,
		Outcome:       "no_match",
	}
	if len(suggestions) > 0 {
		event.Outcome = "suggested"
		event.CategoryID = suggestions[0].CategoryID
		event.Confidence = suggestions[0].Confidence
		event.ContributingRefs = suggestions[0].ContributingRefs
	}

	if err := e.storage.AppendLearningEvent(ctx, event); err != nil {
		slog.Warn("failed to append learning event",
			"transaction_id", txn.ID,
			"error", err)
	}
}

// RecordFeedback forwards a user action to the learning processor.
func (e *Engine) RecordFeedback(ctx context.Context, fb learning.Feedback) error {
	return e.processor.RecordFeedback(ctx, fb)
}

// Sweep runs the deactivation pass and reports how many patterns it
// disabled.
func (e *Engine) Sweep(ctx context.Context) (int64, error) {
	return e.processor.Sweep(ctx)
}
