package pattern

import (
	"fmt"
	"regexp"
	"regexp/syntax"

	"github.com/kestrelfin/sortinghat/internal/model"
)

// maxRegexLength bounds the size of stored regex patterns. Together with
// RE2's linear-time guarantee this keeps any single rule from consuming
// the per-transaction time budget.
const maxRegexLength = 512

// ValidateDefinition checks a pattern definition the way creation-time
// validation does: structural validity plus regex safety. Patterns that
// fail are rejected at creation and skipped at match time.
func ValidateDefinition(p *model.Pattern) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if p.Type == model.PatternRegex {
		if len(p.Value) > maxRegexLength {
			return fmt.Errorf("regex exceeds %d bytes", maxRegexLength)
		}
		if _, err := syntax.Parse(p.Value, syntax.Perl); err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		if _, err := regexp.Compile(p.Value); err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
	}

	return nil
}
