package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Transaction represents a single financial transaction from any source.
type Transaction struct {
	Date         time.Time
	ID           string
	Name         string // Raw transaction description
	MerchantName string // Raw merchant text as it appeared on the statement
	AccountID    string
	Currency     string
	Hash         string
	Amount       float64
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.MerchantName,
		t.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// Complete reports whether the transaction carries the fields the
// categorization hot path requires. Incomplete transactions yield an
// empty suggestion list rather than an error.
func (t *Transaction) Complete() bool {
	return !t.Date.IsZero() && t.Amount != 0 && (t.MerchantName != "" || t.Name != "")
}
