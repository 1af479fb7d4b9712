package pattern

import (
	"strings"
	"testing"

	"github.com/kestrelfin/sortinghat/internal/model"
)

func TestValidateDefinition(t *testing.T) {
	tests := []struct {
		name    string
		pattern model.Pattern
		wantErr bool
	}{
		{
			name: "valid merchant pattern",
			pattern: model.Pattern{
				Type: model.PatternMerchant, Value: "starbucks",
				CategoryID: 1, ConfidenceWeight: 1.0,
			},
			wantErr: false,
		},
		{
			name: "valid regex",
			pattern: model.Pattern{
				Type: model.PatternRegex, Value: `^uber (trip|eats)`,
				CategoryID: 1, ConfidenceWeight: 1.0,
			},
			wantErr: false,
		},
		{
			name: "regex with unclosed group",
			pattern: model.Pattern{
				Type: model.PatternRegex, Value: `([unclosed`,
				CategoryID: 1, ConfidenceWeight: 1.0,
			},
			wantErr: true,
		},
		{
			name: "regex with bad repetition",
			pattern: model.Pattern{
				Type: model.PatternRegex, Value: `*starbucks`,
				CategoryID: 1, ConfidenceWeight: 1.0,
			},
			wantErr: true,
		},
		{
			name: "oversized regex",
			pattern: model.Pattern{
				Type: model.PatternRegex, Value: strings.Repeat("a|", 300) + "a",
				CategoryID: 1, ConfidenceWeight: 1.0,
			},
			wantErr: true,
		},
		{
			name: "structural failure surfaces",
			pattern: model.Pattern{
				Type: model.PatternMerchant, Value: "",
				CategoryID: 1, ConfidenceWeight: 1.0,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDefinition(&tt.pattern)
			if tt.wantErr && err == nil {
				t.Error("ValidateDefinition() error = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateDefinition() error = %v, want nil", err)
			}
		})
	}
}
