// Package decision turns a classified intent and confidence into a concrete
// next step for the caller's interface. The mapping is deterministic: the
// same (intent, confidence) pair always yields the same outcome, so clients
// can be tested against it and caregivers can reason about what the device
// will do.
package decision

import "github.com/verbao/intentd/pkg/intent"

// Status describes how certain the system is about a classification.
type Status string

const (
	// StatusAutoTriggered means the intent fired without confirmation.
	// Reserved for high-confidence emergencies.
	StatusAutoTriggered Status = "auto_triggered"

	// StatusConfirmed means the intent is trusted but the user still gets a
	// lightweight acknowledgement step.
	StatusConfirmed Status = "confirmed"

	// StatusNeedsConfirmation means the guess is plausible and the user must
	// pick from the offered options.
	StatusNeedsConfirmation Status = "needs_confirmation"

	// StatusUncertain means the system could not make a usable guess.
	StatusUncertain Status = "uncertain"
)

// Action names the client behavior associated with a [Status].
type Action string

const (
	ActionTriggerAlert        Action = "trigger_alert"
	ActionAwaitConfirmation   Action = "await_user_confirmation"
	ActionResolveConfirmation Action = "resolve_confirmation"
	ActionShowOptions         Action = "show_options"
	ActionAskRepeat           Action = "ask_repeat"
)

// Confidence thresholds for the decision bands. An emergency above
// emergencyAutoTrigger skips confirmation entirely.
const (
	emergencyAutoTrigger = 0.8
	confirmedThreshold   = 0.75
	optionsThreshold     = 0.4
)

// Outcome is the full decision for one classification: what to do and what
// buttons to show.
type Outcome struct {
	Status  Status
	Action  Action
	Options []string
}

// Decide maps a classification to its [Outcome].
//
// The bands, highest first:
//
//   - EMERGENCY above 0.8 auto-triggers an alert.
//   - 0.75 and above is confirmed. YES and NO resolve a pending
//     confirmation instead of opening a new one.
//   - 0.4 and above asks the user to confirm from the intent's options.
//   - Below 0.4 the system asks the user to repeat.
func Decide(in intent.Intent, confidence float64) Outcome {
	switch {
	case in == intent.Emergency && confidence > emergencyAutoTrigger:
		return Outcome{
			Status:  StatusAutoTriggered,
			Action:  ActionTriggerAlert,
			Options: optionsFor(in),
		}
	case confidence >= confirmedThreshold:
		action := ActionAwaitConfirmation
		if in == intent.Yes || in == intent.No {
			action = ActionResolveConfirmation
		}
		return Outcome{
			Status:  StatusConfirmed,
			Action:  action,
			Options: optionsFor(in),
		}
	case confidence >= optionsThreshold:
		return Outcome{
			Status:  StatusNeedsConfirmation,
			Action:  ActionShowOptions,
			Options: optionsFor(in),
		}
	default:
		return Outcome{
			Status:  StatusUncertain,
			Action:  ActionAskRepeat,
			Options: []string{"Repeat", "Cancel"},
		}
	}
}

// optionsFor returns the button labels shown for a given intent. The slice
// is freshly allocated on every call so callers may mutate it.
func optionsFor(in intent.Intent) []string {
	switch in {
	case intent.Help:
		return []string{"Confirm Help", "Cancel"}
	case intent.Emergency:
		return []string{"Cancel Emergency"}
	case intent.Water:
		return []string{"Confirm Water", "Cancel"}
	case intent.Yes, intent.No:
		return []string{"OK"}
	case intent.Unknown:
		return []string{"Repeat", "Cancel"}
	default:
		return []string{"OK", "Cancel"}
	}
}
