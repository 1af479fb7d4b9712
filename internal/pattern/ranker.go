package pattern

import (
	"sort"
	"strings"
	"time"

	"github.com/kestrelfin/sortinghat/internal/model"
)

// Config tunes the ranking engine.
type Config struct {
	Thresholds         Thresholds
	TopN               int
	Ceiling            float64 // Per-category confidence cap under stacking
	PreferenceWeight   float64 // Boost per unit of preference strength
	MaxPreferenceBoost float64 // Cap on the total preference boost per category
}

// DefaultConfig returns the tuned ranking configuration.
func DefaultConfig() Config {
	return Config{
		Thresholds:         DefaultThresholds(),
		TopN:               5,
		Ceiling:            0.99,
		PreferenceWeight:   0.05,
		MaxPreferenceBoost: 0.15,
	}
}

// Ranker aggregates all pattern matches for a transaction into one
// ordered suggestion list. Identical input and snapshot state produce
// byte-identical output: iteration follows stored pattern order and
// every tie-breaker is deterministic.
type Ranker struct {
	matcher *Matcher
	config  Config
}

// NewRanker creates a ranker over an immutable snapshot.
func NewRanker(snapshot *model.Snapshot, config Config) *Ranker {
	if config.TopN <= 0 {
		config.TopN = DefaultConfig().TopN
	}
	if config.Ceiling <= 0 {
		config.Ceiling = DefaultConfig().Ceiling
	}
	return &Ranker{
		matcher: NewMatcher(snapshot, config.Thresholds),
		config:  config,
	}
}

// Matcher exposes the underlying matcher, mainly for tests.
func (r *Ranker) Matcher() *Matcher {
	return r.matcher
}

// categoryScore accumulates match evidence for one category.
type categoryScore struct {
	lastUsed   time.Time
	refs       []model.PatternRef
	reasons    []string
	categoryID int
	sum        float64
	usage      int64
	success    int64
}

// Categorize evaluates every active simple and composite pattern against
// the transaction and returns ordered suggestions. Incomplete input
// yields an empty list with a diagnostic, never an error.
func (r *Ranker) Categorize(txn model.Transaction) (model.Suggestions, string) {
	if !txn.Complete() {
		return model.Suggestions{}, "transaction is missing amount, timestamp, or merchant text"
	}

	in := NewInput(txn)
	snapshot := r.matcher.Snapshot()

	scores := make(map[int]*categoryScore)
	record := func(categoryID int, ref model.PatternRef, res MatchResult, usage, success int64, lastUsed *time.Time) {
		cs, ok := scores[categoryID]
		if !ok {
			cs = &categoryScore{categoryID: categoryID}
			scores[categoryID] = cs
		}
		cs.sum += res.Confidence
		cs.refs = append(cs.refs, ref)
		cs.reasons = append(cs.reasons, res.Reason)
		cs.usage += usage
		cs.success += success
		if lastUsed != nil && lastUsed.After(cs.lastUsed) {
			cs.lastUsed = *lastUsed
		}
	}

	for i := range snapshot.Patterns {
		p := &snapshot.Patterns[i]
		res := r.matcher.Match(in, p)
		if !res.Matched {
			continue
		}
		record(p.CategoryID, model.SimpleRef(p.ID), res, p.UsageCount, p.SuccessCount, p.LastUsedAt)
	}

	for i := range snapshot.Composites {
		c := &snapshot.Composites[i]
		res := r.matcher.EvaluateComposite(in, c)
		if !res.Matched {
			continue
		}
		record(c.CategoryID, model.CompositeRef(c.ID), res, c.UsageCount, c.SuccessCount, nil)
	}

	if len(scores) == 0 {
		return model.Suggestions{}, ""
	}

	boosts := r.preferenceBoosts(in)

	ordered := make([]*categoryScore, 0, len(scores))
	for _, cs := range scores {
		cs.sum += boosts[cs.categoryID]
		if cs.sum > r.config.Ceiling {
			cs.sum = r.config.Ceiling
		}
		ordered = append(ordered, cs)
	}

	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.sum != b.sum {
			return a.sum > b.sum
		}
		if ar, br := a.successRate(), b.successRate(); ar != br {
			return ar > br
		}
		if !a.lastUsed.Equal(b.lastUsed) {
			return a.lastUsed.After(b.lastUsed)
		}
		return a.categoryID < b.categoryID
	})

	// Slice the ordered list directly: Suggestions.TopN re-sorts with
	// confidence and category id only, which would discard the success
	// rate and recency tie-breaks applied above.
	if len(ordered) > r.config.TopN {
		ordered = ordered[:r.config.TopN]
	}

	suggestions := make(model.Suggestions, 0, len(ordered))
	for _, cs := range ordered {
		suggestions = append(suggestions, model.Suggestion{
			CategoryID:       cs.categoryID,
			Category:         snapshot.CategoryName(cs.categoryID),
			Confidence:       clamp01(cs.sum),
			ContributingRefs: cs.refs,
			Reason:           summarizeReasons(cs.reasons),
		})
	}

	return suggestions, ""
}

func (cs *categoryScore) successRate() float64 {
	if cs.usage == 0 {
		return 0
	}
	return float64(cs.success) / float64(cs.usage)
}

// preferenceBoosts computes the additive boost per category from user
// preferences whose context matches the transaction.
func (r *Ranker) preferenceBoosts(in Input) map[int]float64 {
	snapshot := r.matcher.Snapshot()

	merchantKey := in.Merchant
	if alias, ok := snapshot.AliasFor(in.Merchant); ok {
		if m, ok := snapshot.MerchantByID(alias.MerchantID); ok {
			merchantKey = m.Name
		}
	}

	contexts := map[model.ContextType]string{
		model.ContextMerchant:    merchantKey,
		model.ContextTimeOfDay:   string(timeOfDayBucket(in.Txn.Date)),
		model.ContextDayOfWeek:   strings.ToLower(in.Txn.Date.Weekday().String()),
		model.ContextAmountRange: model.AmountBucket(in.Txn.Amount),
	}

	boosts := make(map[int]float64)
	for _, pref := range snapshot.Preferences {
		value, ok := contexts[pref.ContextType]
		if !ok || value != pref.ContextValue {
			continue
		}
		boost := pref.Strength * r.config.PreferenceWeight
		if boost > r.config.MaxPreferenceBoost {
			boost = r.config.MaxPreferenceBoost
		}
		if boost > 0 {
			boosts[pref.CategoryID] += boost
		}
	}

	// The cap applies per category, not per preference row.
	for id, boost := range boosts {
		if boost > r.config.MaxPreferenceBoost {
			boosts[id] = r.config.MaxPreferenceBoost
		}
	}

	return boosts
}

// timeOfDayBucket maps a timestamp to its hour-of-day bucket.
func timeOfDayBucket(t time.Time) model.TimeBucket {
	switch {
	case model.BucketMorning.Contains(t):
		return model.BucketMorning
	case model.BucketAfternoon.Contains(t):
		return model.BucketAfternoon
	case model.BucketEvening.Contains(t):
		return model.BucketEvening
	default:
		return model.BucketNight
	}
}

func summarizeReasons(reasons []string) string {
	if len(reasons) > 3 {
		reasons = reasons[:3]
	}
	return strings.Join(reasons, "; ")
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
