package model

import "fmt"

// RefKind distinguishes simple and composite pattern references.
type RefKind string

const (
	// RefSimple references a row in the patterns table.
	RefSimple RefKind = "simple"
	// RefComposite references a row in the composite_patterns table.
	RefComposite RefKind = "composite"
)

// PatternRef identifies either a simple or a composite pattern. Keeping
// the kind explicit avoids string-prefix tagging of shared id spaces.
type PatternRef struct {
	Kind RefKind
	ID   int64
}

// SimpleRef builds a reference to a simple pattern.
func SimpleRef(id int64) PatternRef {
	return PatternRef{Kind: RefSimple, ID: id}
}

// CompositeRef builds a reference to a composite pattern.
func CompositeRef(id int64) PatternRef {
	return PatternRef{Kind: RefComposite, ID: id}
}

// String renders the reference for logs and reasons.
func (r PatternRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}
