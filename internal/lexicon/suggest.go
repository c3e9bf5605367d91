package lexicon

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/verbao/intentd/pkg/intent"
)

// suggestThreshold is the minimum Jaro-Winkler score for a keyword to be
// offered as a suggestion when the cascade itself was inconclusive.
const suggestThreshold = 0.70

// Suggest returns up to max intents whose dictionary keywords sound like the
// transcription, ranked by Jaro-Winkler similarity. Keywords are filtered by
// Double Metaphone code overlap first, so a suggestion must both sound alike
// and spell alike. It is meant for low-confidence results where the caller
// wants to present alternatives rather than commit to one intent.
func Suggest(transcription string, max int) []intent.Intent {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(transcription)))
	if len(words) == 0 || max <= 0 {
		return nil
	}

	inputCodes := make(map[string]struct{}, len(words)*2)
	for _, w := range words {
		p, s := matchr.DoubleMetaphone(w)
		if p != "" {
			inputCodes[p] = struct{}{}
		}
		if s != "" {
			inputCodes[s] = struct{}{}
		}
	}

	// Best score per intent across all (word, keyword) pairs.
	scores := make(map[intent.Intent]float64)
	for _, entry := range keywords {
		p, s := matchr.DoubleMetaphone(entry.word)
		_, pOK := inputCodes[p]
		_, sOK := inputCodes[s]
		if !pOK && !sOK {
			continue
		}
		for _, w := range words {
			jw := matchr.JaroWinkler(w, entry.word, false)
			if jw >= suggestThreshold && jw > scores[entry.intent] {
				scores[entry.intent] = jw
			}
		}
	}

	ranked := make([]intent.Intent, 0, len(scores))
	for in := range scores {
		ranked = append(ranked, in)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > max {
		ranked = ranked[:max]
	}
	return ranked
}
