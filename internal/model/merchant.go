package model

import "time"

// CanonicalMerchant is the stable identity that raw merchant variants
// resolve to, increasing pattern reuse across statement noise.
type CanonicalMerchant struct {
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string // Normalized canonical form
	DisplayName string
	ID          int64
}

// MerchantAlias maps one piece of raw merchant text to exactly one
// canonical merchant, with the confidence of that mapping.
type MerchantAlias struct {
	CreatedAt  time.Time
	Alias      string // Normalized raw merchant text
	ID         int64
	MerchantID int64
	Confidence float64
}
