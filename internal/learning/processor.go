// Package learning closes the feedback loop: it updates pattern
// statistics from user actions, synthesizes new patterns from repeated
// corrections, and soft-disables rules that keep getting it wrong.
package learning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kestrelfin/sortinghat/internal/common"
	"github.com/kestrelfin/sortinghat/internal/model"
	"github.com/kestrelfin/sortinghat/internal/normalize"
	"github.com/kestrelfin/sortinghat/internal/service"
)

// Config tunes the learning processor.
type Config struct {
	Retry              service.RetryOptions
	SynthesisThreshold int64   // Corrections of the same merchant to the same category before a pattern is synthesized
	MinSamples         int64   // Minimum usage_count before deactivation applies
	SuccessFloor       float64 // Patterns below this success rate get deactivated
	InitialWeight      float64 // Confidence weight for synthesized patterns
	PreferenceDelta    float64 // Strength change per confirmation/correction
}

// DefaultConfig returns the tuned learning configuration.
func DefaultConfig() Config {
	return Config{
		SynthesisThreshold: 3,
		MinSamples:         10,
		SuccessFloor:       0.5,
		InitialWeight:      1.0,
		PreferenceDelta:    1.0,
	}
}

// Processor applies feedback to the pattern store.
type Processor struct {
	storage service.Storage
	config  Config
}

// NewProcessor creates a learning processor.
func NewProcessor(storage service.Storage, config Config) *Processor {
	if config.SynthesisThreshold <= 0 {
		config.SynthesisThreshold = DefaultConfig().SynthesisThreshold
	}
	if config.MinSamples <= 0 {
		config.MinSamples = DefaultConfig().MinSamples
	}
	if config.SuccessFloor <= 0 {
		config.SuccessFloor = DefaultConfig().SuccessFloor
	}
	if config.InitialWeight <= 0 {
		config.InitialWeight = DefaultConfig().InitialWeight
	}
	if config.PreferenceDelta <= 0 {
		config.PreferenceDelta = DefaultConfig().PreferenceDelta
	}
	return &Processor{storage: storage, config: config}
}

// Feedback describes one user action against a categorization decision.
type Feedback struct {
	Transaction      model.Transaction
	Type             model.FeedbackType
	OriginatingRef   *model.PatternRef
	ContributingRefs []model.PatternRef
	CategoryID       int // The category the user chose
	Confidence       float64
}

// RecordFeedback applies one feedback action: counter updates first,
// then synthesis, preference, and deactivation bookkeeping, and finally
// a best-effort learning-event append that never fails the call.
func (p *Processor) RecordFeedback(ctx context.Context, fb Feedback) error {
	if fb.Transaction.ID == "" {
		return fmt.Errorf("transaction ID is required")
	}
	if fb.CategoryID <= 0 {
		return fmt.Errorf("category is required")
	}
	switch fb.Type {
	case model.FeedbackConfirmation, model.FeedbackCorrection, model.FeedbackRejection:
	default:
		return fmt.Errorf("unknown feedback type %q", fb.Type)
	}

	merchantValue := normalize.Normalize(fb.Transaction.MerchantName)
	if merchantValue == "" {
		merchantValue = normalize.Normalize(fb.Transaction.Name)
	}

	wasCorrect := fb.Type == model.FeedbackConfirmation

	if err := p.updateCounters(ctx, fb, wasCorrect); err != nil {
		return err
	}

	record := &model.PatternFeedback{
		TransactionID: fb.Transaction.ID,
		MerchantValue: merchantValue,
		PatternRef:    fb.OriginatingRef,
		Type:          fb.Type,
		CategoryID:    fb.CategoryID,
		Confidence:    fb.Confidence,
		WasCorrect:    wasCorrect,
	}
	if err := common.WithRetry(ctx, func() error {
		return p.storage.SaveFeedback(ctx, record)
	}, p.config.Retry); err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	p.updatePreferences(ctx, fb, merchantValue)

	if fb.Type == model.FeedbackCorrection && merchantValue != "" {
		if err := p.maybeSynthesize(ctx, merchantValue, fb.CategoryID); err != nil {
			slog.Warn("pattern synthesis failed",
				"merchant", merchantValue,
				"category_id", fb.CategoryID,
				"error", err)
		}
	}

	if deactivated, err := p.storage.SweepUnderperformingPatterns(ctx, p.config.MinSamples, p.config.SuccessFloor); err != nil {
		slog.Warn("deactivation sweep failed", "error", err)
	} else if deactivated > 0 {
		slog.Info("deactivated underperforming patterns", "count", deactivated)
	}

	// Append-only analytics record; losing one never fails feedback.
	event := &model.LearningEvent{
		ID:               uuid.NewString(),
		TransactionID:    fb.Transaction.ID,
		CategoryID:       fb.CategoryID,
		Confidence:       fb.Confidence,
		Outcome:          string(fb.Type),
		ContributingRefs: fb.ContributingRefs,
	}
	if err := p.storage.AppendLearningEvent(ctx, event); err != nil {
		slog.Warn("failed to append learning event",
			"transaction_id", fb.Transaction.ID,
			"error", err)
	}

	return nil
}

// updateCounters increments usage (and success, on confirmation) for
// every pattern that contributed to the decision.
func (p *Processor) updateCounters(ctx context.Context, fb Feedback, wasCorrect bool) error {
	refs := fb.ContributingRefs
	if len(refs) == 0 && fb.OriginatingRef != nil {
		refs = []model.PatternRef{*fb.OriginatingRef}
	}

	for _, ref := range refs {
		ref := ref
		err := common.WithRetry(ctx, func() error {
			switch ref.Kind {
			case model.RefSimple:
				return p.storage.RecordPatternUse(ctx, ref.ID, wasCorrect)
			case model.RefComposite:
				return p.storage.RecordCompositeUse(ctx, ref.ID, wasCorrect)
			}
			return nil
		}, p.config.Retry)
		if err != nil {
			return fmt.Errorf("failed to update counters for %s: %w", ref, err)
		}
	}

	return nil
}

// updatePreferences nudges context preferences: the chosen category
// strengthens, and on a correction the superseded pattern's category
// weakens. Preference writes are advisory; failures are logged only.
func (p *Processor) updatePreferences(ctx context.Context, fb Feedback, merchantValue string) {
	if merchantValue == "" {
		return
	}

	delta := p.config.PreferenceDelta
	if fb.Type == model.FeedbackRejection {
		delta = -delta
	}

	if err := p.storage.AdjustPreference(ctx, model.ContextMerchant, merchantValue, fb.CategoryID, delta); err != nil {
		slog.Warn("failed to adjust merchant preference", "error", err)
	}

	if fb.Type == model.FeedbackCorrection && fb.OriginatingRef != nil && fb.OriginatingRef.Kind == model.RefSimple {
		superseded, err := p.storage.GetPattern(ctx, fb.OriginatingRef.ID)
		if err == nil && superseded.CategoryID != fb.CategoryID {
			if err := p.storage.AdjustPreference(ctx, model.ContextMerchant, merchantValue, superseded.CategoryID, -p.config.PreferenceDelta); err != nil {
				slog.Warn("failed to weaken superseded preference", "error", err)
			}
		}
	}
}

// maybeSynthesize creates a user-created merchant pattern once the same
// merchant has been corrected to the same category often enough.
func (p *Processor) maybeSynthesize(ctx context.Context, merchantValue string, categoryID int) error {
	count, err := p.storage.CountCorrections(ctx, merchantValue, categoryID)
	if err != nil {
		return err
	}
	if count < p.config.SynthesisThreshold {
		return nil
	}

	// Don't synthesize a duplicate of an existing rule.
	existing, err := p.storage.GetAllPatterns(ctx)
	if err != nil {
		return err
	}
	for i := range existing {
		if existing[i].Type == model.PatternMerchant &&
			existing[i].Value == merchantValue &&
			existing[i].CategoryID == categoryID {
			if !existing[i].Active {
				// Repeated corrections re-earn a previously disabled rule.
				return p.storage.SetPatternActive(ctx, existing[i].ID, true)
			}
			return nil
		}
	}

	synthesized := &model.Pattern{
		Type:             model.PatternMerchant,
		Value:            merchantValue,
		CategoryID:       categoryID,
		ConfidenceWeight: p.config.InitialWeight,
		Active:           true,
		UserCreated:      true,
		Notes:            fmt.Sprintf("synthesized after %d corrections", count),
	}
	if err := p.storage.CreatePattern(ctx, synthesized); err != nil {
		return err
	}

	slog.Info("synthesized pattern from corrections",
		"pattern_id", synthesized.ID,
		"merchant", merchantValue,
		"category_id", categoryID,
		"corrections", count)

	return nil
}

// Sweep runs the deactivation pass on demand. It is idempotent and safe
// to repeat: batched and incremental recomputation converge on the same
// success rates because the counters are plain sums.
func (p *Processor) Sweep(ctx context.Context) (int64, error) {
	return p.storage.SweepUnderperformingPatterns(ctx, p.config.MinSamples, p.config.SuccessFloor)
}
