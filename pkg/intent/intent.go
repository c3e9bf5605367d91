// Package intent defines the closed set of patient intents recognised by the
// classification engine.
//
// The set is fixed at compile time and never extended dynamically: every
// training write and every classification result refers to one of these
// labels (or [Unknown]). Writes against a label outside the set fail with
// [ErrInvalid] rather than silently creating a new intent, because a typo'd
// label would corrupt the training data it was meant to strengthen.
package intent

import (
	"errors"
	"fmt"
)

// ErrInvalid is returned when a caller supplies a label outside the fixed
// intent set on a write path.
var ErrInvalid = errors.New("intent: invalid intent label")

// Intent is one label from the fixed patient-need vocabulary.
type Intent string

const (
	Help      Intent = "HELP"      // general assistance
	Water     Intent = "WATER"     // thirst / hydration
	Yes       Intent = "YES"       // affirmative
	No        Intent = "NO"        // negative
	Pain      Intent = "PAIN"      // discomfort
	Emergency Intent = "EMERGENCY" // urgent medical
	Bathroom  Intent = "BATHROOM"  // toileting
	Tired     Intent = "TIRED"     // rest / sleep
	Cold      Intent = "COLD"      // temperature, cold
	Hot       Intent = "HOT"       // temperature, hot

	// Unknown is the result of a classification that could not resolve to a
	// member of the fixed set. It is never a valid training target.
	Unknown Intent = "UNKNOWN"
)

// all is the canonical enumeration order. Suggestion lists and deterministic
// iteration both depend on this order being stable.
var all = []Intent{Help, Water, Yes, No, Pain, Emergency, Bathroom, Tired, Cold, Hot}

// All returns the fixed intent set in enumeration order. The returned slice
// is a copy; callers may modify it freely.
func All() []Intent {
	out := make([]Intent, len(all))
	copy(out, all)
	return out
}

// IsValid reports whether i is a member of the fixed intent set.
// Unknown is not a valid member.
func (i Intent) IsValid() bool {
	for _, known := range all {
		if i == known {
			return true
		}
	}
	return false
}

// Parse converts a raw label into an [Intent], or returns [ErrInvalid]
// wrapped with the offending label.
func Parse(label string) (Intent, error) {
	i := Intent(label)
	if !i.IsValid() {
		return Unknown, fmt.Errorf("intent: parse %q: %w", label, ErrInvalid)
	}
	return i, nil
}
