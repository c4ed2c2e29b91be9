// Package index orchestrates symbol persistence and queries over the
// engine, applying the boost and penalty scoring policy.
package index

import "strings"

const (
	// penaltyStep is the boost reduction per compiler-generated
	// nesting level.
	penaltyStep = 0.25

	// penaltyFloor keeps boost strictly positive no matter how deeply
	// a name is nested.
	penaltyFloor = 0.05

	// boostStep is the flat increase applied per recorded selection.
	boostStep = 0.25

	// DefaultMaxBoost caps accumulated selection boosts.
	DefaultMaxBoost = 2.0
)

// Penalty computes the boost multiplier for a fully-qualified name.
// Every '$' marks a compiler-generated nesting level and costs a
// quarter of the boost, floored at a small positive value. A single
// trailing '$' is conventional naming, not nesting, and is free:
// "Foo$" scores 1.0 while "Foo$Bar" scores 0.75.
func Penalty(fqn string) float64 {
	n := strings.Count(fqn, "$")
	if strings.HasSuffix(fqn, "$") {
		n--
	}
	if n <= 0 {
		return 1.0
	}

	p := 1.0 - penaltyStep*float64(n)
	if p < penaltyFloor {
		return penaltyFloor
	}
	return p
}
