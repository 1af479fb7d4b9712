package model

import (
	"testing"
	"time"
)

func TestTransaction_GenerateHash(t *testing.T) {
	base := Transaction{
		Date:         time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC),
		MerchantName: "STARBUCKS",
		AccountID:    "acc1",
		Amount:       6.50,
	}

	first := base.GenerateHash()
	if first == "" {
		t.Fatal("GenerateHash() returned empty string")
	}
	if again := base.GenerateHash(); again != first {
		t.Error("GenerateHash() is not deterministic")
	}

	// Intraday time changes do not affect the hash; the date does.
	sameDay := base
	sameDay.Date = sameDay.Date.Add(3 * time.Hour)
	if sameDay.GenerateHash() != first {
		t.Error("hash should ignore time of day")
	}

	nextDay := base
	nextDay.Date = nextDay.Date.AddDate(0, 0, 1)
	if nextDay.GenerateHash() == first {
		t.Error("hash should change with the date")
	}

	differentAmount := base
	differentAmount.Amount = 7.50
	if differentAmount.GenerateHash() == first {
		t.Error("hash should change with the amount")
	}
}

func TestTransaction_Complete(t *testing.T) {
	date := time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		txn  Transaction
		want bool
	}{
		{
			name: "complete with merchant",
			txn:  Transaction{Date: date, Amount: 6.50, MerchantName: "STARBUCKS"},
			want: true,
		},
		{
			name: "complete with description only",
			txn:  Transaction{Date: date, Amount: 6.50, Name: "coffee"},
			want: true,
		},
		{
			name: "missing date",
			txn:  Transaction{Amount: 6.50, MerchantName: "STARBUCKS"},
			want: false,
		},
		{
			name: "missing amount",
			txn:  Transaction{Date: date, MerchantName: "STARBUCKS"},
			want: false,
		},
		{
			name: "missing all text",
			txn:  Transaction{Date: date, Amount: 6.50},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.txn.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}
