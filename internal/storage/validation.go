package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kestrelfin/sortinghat/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidPattern   = errors.New("invalid pattern")
	ErrInvalidComposite = errors.New("invalid composite pattern")
	ErrInvalidFeedback  = errors.New("invalid feedback")
	ErrInvalidMerchant  = errors.New("invalid merchant")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validatePattern validates a pattern before writing it.
func validatePattern(p *model.Pattern) error {
	if p == nil {
		return fmt.Errorf("%w: pattern", ErrNilParameter)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return nil
}

// validateComposite validates a composite pattern before writing it.
func validateComposite(c *model.CompositePattern) error {
	if c == nil {
		return fmt.Errorf("%w: composite", ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidComposite, err)
	}
	return nil
}

// validateFeedback validates feedback before writing it.
func validateFeedback(f *model.PatternFeedback) error {
	if f == nil {
		return fmt.Errorf("%w: feedback", ErrNilParameter)
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFeedback, err)
	}
	return nil
}

// validateMerchant validates a canonical merchant before writing it.
func validateMerchant(m *model.CanonicalMerchant) error {
	if m == nil {
		return fmt.Errorf("%w: merchant", ErrNilParameter)
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidMerchant)
	}
	return nil
}
