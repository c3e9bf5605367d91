package lexicon

import (
	"regexp"

	"github.com/verbao/intentd/pkg/intent"
)

// keywordEntry maps one dictionary word to an intent. The dictionary is an
// ordered slice, not a map: the substring stage takes the first hit by
// iteration order, so the order must be deterministic.
type keywordEntry struct {
	word   string
	intent intent.Intent
}

// keywords is the exact/substring dictionary. It covers common correct forms
// and mildly garbled forms observed in wav2vec-style transcriptions.
var keywords = []keywordEntry{
	// Help.
	{"help", intent.Help},
	{"please", intent.Help},
	{"need", intent.Help},
	{"assist", intent.Help},
	{"assistance", intent.Help},
	{"nurse", intent.Help},
	{"doctor", intent.Help},
	{"someone", intent.Help},
	{"call", intent.Help},
	{"care", intent.Help},

	// Water.
	{"water", intent.Water},
	{"thirsty", intent.Water},
	{"thirst", intent.Water},
	{"drink", intent.Water},
	{"juice", intent.Water},
	{"tea", intent.Water},
	{"coffee", intent.Water},

	// Yes.
	{"yes", intent.Yes},
	{"yeah", intent.Yes},
	{"yep", intent.Yes},
	{"yup", intent.Yes},
	{"okay", intent.Yes},
	{"ok", intent.Yes},
	{"sure", intent.Yes},
	{"correct", intent.Yes},
	{"right", intent.Yes},
	{"affirmative", intent.Yes},

	// No.
	{"no", intent.No},
	{"nope", intent.No},
	{"nah", intent.No},
	{"cancel", intent.No},
	{"stop", intent.No},
	{"dont", intent.No},
	{"negative", intent.No},

	// Pain.
	{"pain", intent.Pain},
	{"hurt", intent.Pain},
	{"hurts", intent.Pain},
	{"ache", intent.Pain},
	{"sore", intent.Pain},

	// Emergency.
	{"emergency", intent.Emergency},
	{"urgent", intent.Emergency},
	{"danger", intent.Emergency},
	{"fall", intent.Emergency},
	{"fallen", intent.Emergency},
	{"fell", intent.Emergency},
	{"chest", intent.Emergency},
	{"breathe", intent.Emergency},
	{"dying", intent.Emergency},
	{"severe", intent.Emergency},

	// Bathroom.
	{"bathroom", intent.Bathroom},
	{"toilet", intent.Bathroom},
	{"restroom", intent.Bathroom},
	{"potty", intent.Bathroom},
	{"pee", intent.Bathroom},

	// Tired.
	{"tired", intent.Tired},
	{"sleep", intent.Tired},
	{"sleepy", intent.Tired},
	{"rest", intent.Tired},
	{"nap", intent.Tired},

	// Cold.
	{"cold", intent.Cold},
	{"freezing", intent.Cold},
	{"chilly", intent.Cold},
	{"blanket", intent.Cold},

	// Hot.
	{"hot", intent.Hot},
	{"warm", intent.Hot},
	{"burning", intent.Hot},
	{"sweating", intent.Hot},
}

// phrase is a registered pronunciation target for the phonetic stage.
// Variants are aphasia-typical reductions of the canonical word; their
// scores carry a penalty because they are weaker evidence.
type phrase struct {
	text    string
	intent  intent.Intent
	variant bool
	code    string // phonetic code, precomputed in init
}

// phrases is the canonical and aphasia-variant phrase registry.
var phrases = []phrase{
	{text: "help", intent: intent.Help},
	{text: "elp", intent: intent.Help, variant: true},
	{text: "halp", intent: intent.Help, variant: true},
	{text: "hep", intent: intent.Help, variant: true},

	{text: "water", intent: intent.Water},
	{text: "wata", intent: intent.Water, variant: true},
	{text: "wate", intent: intent.Water, variant: true},
	{text: "wat", intent: intent.Water, variant: true},

	{text: "yes", intent: intent.Yes},
	{text: "yesh", intent: intent.Yes, variant: true},
	{text: "yah", intent: intent.Yes, variant: true},

	{text: "no", intent: intent.No},
	{text: "nuh", intent: intent.No, variant: true},
	{text: "naw", intent: intent.No, variant: true},

	{text: "pain", intent: intent.Pain},
	{text: "pane", intent: intent.Pain, variant: true},
	{text: "payn", intent: intent.Pain, variant: true},

	{text: "emergency", intent: intent.Emergency},
	{text: "mergency", intent: intent.Emergency, variant: true},
	{text: "emergen", intent: intent.Emergency, variant: true},

	{text: "bathroom", intent: intent.Bathroom},
	{text: "baffroom", intent: intent.Bathroom, variant: true},
	{text: "bafroom", intent: intent.Bathroom, variant: true},
	{text: "potty", intent: intent.Bathroom, variant: true},
	{text: "pee", intent: intent.Bathroom, variant: true},

	{text: "tired", intent: intent.Tired},
	{text: "tire", intent: intent.Tired, variant: true},
	{text: "tied", intent: intent.Tired, variant: true},

	{text: "cold", intent: intent.Cold},
	{text: "cole", intent: intent.Cold, variant: true},
	{text: "coad", intent: intent.Cold, variant: true},

	{text: "hot", intent: intent.Hot},
	{text: "haht", intent: intent.Hot, variant: true},
	{text: "hawt", intent: intent.Hot, variant: true},
}

func init() {
	for i := range phrases {
		phrases[i].code = phoneticCode(phrases[i].text)
	}
}

// fuzzyRule pairs a compiled regex with the intent and confidence it yields.
type fuzzyRule struct {
	pattern    *regexp.Regexp
	intent     intent.Intent
	confidence float64
}

// fuzzyRules matches common garbled transcriber outputs. Order is priority:
// the first matching rule wins.
var fuzzyRules = []fuzzyRule{
	// "help" frequently surfaces as "ALPE", "ULPE", or isolated "PE" sounds.
	{regexp.MustCompile(`\b(alpe|ulpe|elpe|alp|ulp|elp)\b`), intent.Help, 0.70},
	{regexp.MustCompile(`\b(i\s*pe|il\s*pe|you\s*pe|yo\s*pe)\b`), intent.Help, 0.65},
	{regexp.MustCompile(`\bpe\b.*\bpe\b.*\bpe\b`), intent.Help, 0.60},
	{regexp.MustCompile(`\b(help|elp|halp)\b`), intent.Help, 0.85},

	{regexp.MustCompile(`\b(wawa|wata|wate|wat)\b`), intent.Water, 0.80},
	{regexp.MustCompile(`\b(thirsty|thirst|thirs)\b`), intent.Water, 0.75},

	{regexp.MustCompile(`\b(emergency|emergenc|emergen)\b`), intent.Emergency, 0.85},

	{regexp.MustCompile(`\b(pain|pane|pai)\b`), intent.Pain, 0.70},
	{regexp.MustCompile(`\b(hurt|hurts|hort)\b`), intent.Pain, 0.70},

	{regexp.MustCompile(`^(yes|yeah|yep|yup|ya)$`), intent.Yes, 0.85},
	{regexp.MustCompile(`^(no|nope|nah)$`), intent.No, 0.85},

	{regexp.MustCompile(`\b(baffroom|bafroom|bat?room)\b`), intent.Bathroom, 0.70},
	{regexp.MustCompile(`\b(tire|tied|tird)\b`), intent.Tired, 0.65},
	{regexp.MustCompile(`\b(co+ld|brr+)\b`), intent.Cold, 0.65},
	{regexp.MustCompile(`\bho+t\b`), intent.Hot, 0.65},
}
