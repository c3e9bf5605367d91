package decision_test

import (
	"slices"
	"testing"

	"github.com/verbao/intentd/internal/decision"
	"github.com/verbao/intentd/pkg/intent"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		intent      intent.Intent
		confidence  float64
		wantStatus  decision.Status
		wantAction  decision.Action
		wantOptions []string
	}{
		{
			name:   "high confidence emergency auto triggers",
			intent: intent.Emergency, confidence: 0.9,
			wantStatus:  decision.StatusAutoTriggered,
			wantAction:  decision.ActionTriggerAlert,
			wantOptions: []string{"Cancel Emergency"},
		},
		{
			name:   "emergency at threshold is only confirmed",
			intent: intent.Emergency, confidence: 0.8,
			wantStatus:  decision.StatusConfirmed,
			wantAction:  decision.ActionAwaitConfirmation,
			wantOptions: []string{"Cancel Emergency"},
		},
		{
			name:   "confirmed help awaits confirmation",
			intent: intent.Help, confidence: 0.8,
			wantStatus:  decision.StatusConfirmed,
			wantAction:  decision.ActionAwaitConfirmation,
			wantOptions: []string{"Confirm Help", "Cancel"},
		},
		{
			name:   "confirmed at exact threshold",
			intent: intent.Water, confidence: 0.75,
			wantStatus:  decision.StatusConfirmed,
			wantAction:  decision.ActionAwaitConfirmation,
			wantOptions: []string{"Confirm Water", "Cancel"},
		},
		{
			name:   "confirmed yes resolves a pending confirmation",
			intent: intent.Yes, confidence: 0.9,
			wantStatus:  decision.StatusConfirmed,
			wantAction:  decision.ActionResolveConfirmation,
			wantOptions: []string{"OK"},
		},
		{
			name:   "confirmed no resolves a pending confirmation",
			intent: intent.No, confidence: 0.8,
			wantStatus:  decision.StatusConfirmed,
			wantAction:  decision.ActionResolveConfirmation,
			wantOptions: []string{"OK"},
		},
		{
			name:   "plausible guess shows options",
			intent: intent.Bathroom, confidence: 0.6,
			wantStatus:  decision.StatusNeedsConfirmation,
			wantAction:  decision.ActionShowOptions,
			wantOptions: []string{"OK", "Cancel"},
		},
		{
			name:   "options band at exact threshold",
			intent: intent.Help, confidence: 0.4,
			wantStatus:  decision.StatusNeedsConfirmation,
			wantAction:  decision.ActionShowOptions,
			wantOptions: []string{"Confirm Help", "Cancel"},
		},
		{
			name:   "low confidence asks to repeat",
			intent: intent.Help, confidence: 0.3,
			wantStatus:  decision.StatusUncertain,
			wantAction:  decision.ActionAskRepeat,
			wantOptions: []string{"Repeat", "Cancel"},
		},
		{
			name:   "unknown always asks to repeat",
			intent: intent.Unknown, confidence: 0.3,
			wantStatus:  decision.StatusUncertain,
			wantAction:  decision.ActionAskRepeat,
			wantOptions: []string{"Repeat", "Cancel"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := decision.Decide(tc.intent, tc.confidence)
			if got.Status != tc.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tc.wantStatus)
			}
			if got.Action != tc.wantAction {
				t.Errorf("Action = %q, want %q", got.Action, tc.wantAction)
			}
			if !slices.Equal(got.Options, tc.wantOptions) {
				t.Errorf("Options = %v, want %v", got.Options, tc.wantOptions)
			}
		})
	}
}

func TestDecide_OptionsAreFresh(t *testing.T) {
	t.Parallel()

	first := decision.Decide(intent.Help, 0.9)
	first.Options[0] = "mutated"

	second := decision.Decide(intent.Help, 0.9)
	if second.Options[0] != "Confirm Help" {
		t.Errorf("Options[0] = %q after mutating a previous result, want %q", second.Options[0], "Confirm Help")
	}
}
