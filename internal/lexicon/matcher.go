package lexicon

import (
	"strings"

	"github.com/verbao/intentd/pkg/intent"
)

const (
	// exactKeywordConfidence is the fixed confidence of a stage-1 hit.
	exactKeywordConfidence = 0.90

	// substringConfidence is the fixed confidence of a stage-3 hit.
	substringConfidence = 0.70

	// phoneticAccept is the minimum stage-2 score required to accept a
	// phonetic match.
	phoneticAccept = 0.6

	// Exact string equality against a registered phrase short-circuits the
	// code comparison at these confidences.
	exactCanonicalScore = 0.95
	exactVariantScore   = 0.85

	// variantPenalty discounts code-similarity scores against variant
	// phrases, which are weaker evidence than canonical forms.
	variantPenalty = 0.9

	// Repetition heuristic: when at least half the words are short
	// (≤ repetitionWordLen characters) and at least repetitionShare of those
	// short words share the first short word's phonetic code, the utterance
	// is treated as a garbled "help" attempt.
	repetitionWordLen    = 3
	repetitionShare      = 0.4
	repetitionConfidence = 0.50

	// fallbackConfidence is reported when no stage concludes.
	fallbackConfidence = 0.3
)

// Stage identifies which cascade stage produced a [Result].
type Stage string

const (
	StageKeyword    Stage = "keyword"
	StagePhonetic   Stage = "phonetic"
	StageSubstring  Stage = "substring"
	StageFuzzy      Stage = "fuzzy"
	StageRepetition Stage = "repetition"
	StageNone       Stage = "none"
)

// Result is the outcome of one [Matcher.Match] call.
type Result struct {
	Intent     intent.Intent
	Confidence float64

	// Stage records which cascade stage concluded, so callers can audit or
	// log why a transcription resolved the way it did.
	Stage Stage
}

// Matcher runs the five-stage text cascade. It is read-only after
// construction and safe for concurrent use.
type Matcher struct{}

// NewMatcher returns a Matcher over the built-in vocabulary.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Match classifies a free-form transcription. The cascade stages run in
// order and the first conclusive one wins:
//
//  1. Exact keyword — whole-word dictionary lookup.
//  2. Phonetic — consonant-class code overlap against the canonical and
//     aphasia-variant phrase registry.
//  3. Substring keyword — dictionary word contained anywhere in the text.
//  4. Fuzzy regex — ordered rules for known garbled outputs.
//  5. Repetition heuristic — repeated short syllables read as "help".
//
// Match is total: an empty transcription yields ([intent.Unknown], 0) and an
// inconclusive one ([intent.Unknown], 0.3). It never returns an error.
func (m *Matcher) Match(transcription string) Result {
	text := strings.ToLower(strings.TrimSpace(transcription))
	if text == "" {
		return Result{Intent: intent.Unknown, Confidence: 0, Stage: StageNone}
	}
	words := strings.Fields(text)

	// Stage 1: exact keyword.
	for _, w := range words {
		for _, entry := range keywords {
			if w == entry.word {
				return Result{Intent: entry.intent, Confidence: exactKeywordConfidence, Stage: StageKeyword}
			}
		}
	}

	// Stage 2: phonetic code overlap.
	if r, ok := m.matchPhonetic(words); ok {
		return r
	}

	// Stage 3: substring keyword. First hit by dictionary order wins.
	for _, entry := range keywords {
		if strings.Contains(text, entry.word) {
			return Result{Intent: entry.intent, Confidence: substringConfidence, Stage: StageSubstring}
		}
	}

	// Stage 4: fuzzy regex rules, in priority order.
	for _, rule := range fuzzyRules {
		if rule.pattern.MatchString(text) {
			return Result{Intent: rule.intent, Confidence: rule.confidence, Stage: StageFuzzy}
		}
	}

	// Stage 5: repetition heuristic.
	if r, ok := m.matchRepetition(words); ok {
		return r
	}

	return Result{Intent: intent.Unknown, Confidence: fallbackConfidence, Stage: StageNone}
}

// matchPhonetic scores every word against every registered phrase and
// accepts the best (intent, score) pair when it reaches the acceptance
// threshold. Exact string equality short-circuits the code comparison.
func (m *Matcher) matchPhonetic(words []string) (Result, bool) {
	var (
		bestScore  float64
		bestIntent intent.Intent
	)

	for _, w := range words {
		code := phoneticCode(w)
		for _, p := range phrases {
			var score float64
			switch {
			case w == p.text && !p.variant:
				score = exactCanonicalScore
			case w == p.text && p.variant:
				score = exactVariantScore
			default:
				score = codeSimilarity(code, p.code)
				if p.variant {
					score *= variantPenalty
				}
			}
			if score > bestScore {
				bestScore = score
				bestIntent = p.intent
			}
		}
	}

	if bestScore < phoneticAccept {
		return Result{}, false
	}
	return Result{Intent: bestIntent, Confidence: bestScore, Stage: StagePhonetic}, true
}

// matchRepetition models aphasic syllable repetition: a string of short,
// phonetically identical fragments is most often an attempt at "help".
func (m *Matcher) matchRepetition(words []string) (Result, bool) {
	var short []string
	for _, w := range words {
		if len(w) <= repetitionWordLen {
			short = append(short, w)
		}
	}
	if len(short)*2 < len(words) || len(short) == 0 {
		return Result{}, false
	}

	first := phoneticCode(short[0])
	same := 0
	for _, w := range short {
		if phoneticCode(w) == first {
			same++
		}
	}
	if float64(same) < repetitionShare*float64(len(short)) {
		return Result{}, false
	}
	return Result{Intent: intent.Help, Confidence: repetitionConfidence, Stage: StageRepetition}, true
}
