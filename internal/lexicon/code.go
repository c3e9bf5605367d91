// Package lexicon implements text-side intent detection for noisy, possibly
// aphasic transcriptions.
//
// The matcher is a five-stage precision-first cascade ([Matcher.Match]):
// cheap, high-precision checks run before expensive, low-precision ones, and
// the first conclusive stage wins. All linguistic knowledge — the keyword
// dictionary, the canonical and aphasia-variant phrase registry, and the
// fuzzy regex rules — is kept as ordered data rather than nested
// conditionals so each rule is independently testable and the priority
// order is an explicit, inspectable artifact.
package lexicon

import "strings"

// codeLength is the fixed length of a phonetic code.
const codeLength = 4

// consonantClass groups acoustically confusable consonants. Letters in the
// same class are frequently substituted for one another in impaired speech,
// so they collapse to the same digit.
var consonantClass = map[rune]byte{
	// Labials.
	'b': '1', 'f': '1', 'p': '1', 'v': '1',
	// Gutturals and sibilants.
	'c': '2', 'g': '2', 'j': '2', 'k': '2', 'q': '2', 's': '2', 'x': '2', 'z': '2',
	// Dentals.
	'd': '3', 't': '3',
	// Liquids.
	'l': '4', 'r': '4',
	// Nasals.
	'm': '5', 'n': '5',
	// Glides.
	'w': '6', 'h': '6',
	// Palatal.
	'y': '7',
}

// phoneticCode returns the 4-character consonant-class fingerprint of word:
// the first letter verbatim, followed by the class digits of the remaining
// consonants with consecutive same-class letters collapsed (a vowel breaks a
// run), padded with '0' or truncated to exactly 4 characters. Returns the
// empty string when word contains no letters.
func phoneticCode(word string) string {
	letters := make([]rune, 0, len(word))
	for _, r := range strings.ToLower(word) {
		if r >= 'a' && r <= 'z' {
			letters = append(letters, r)
		}
	}
	if len(letters) == 0 {
		return ""
	}

	code := make([]byte, 1, codeLength)
	code[0] = byte(letters[0])

	prev := consonantClass[letters[0]]
	for _, r := range letters[1:] {
		cls, ok := consonantClass[r]
		if !ok {
			// Vowel: contributes no digit but breaks a same-class run.
			prev = 0
			continue
		}
		if cls == prev {
			continue
		}
		code = append(code, cls)
		prev = cls
		if len(code) == codeLength {
			break
		}
	}

	for len(code) < codeLength {
		code = append(code, '0')
	}
	return string(code)
}

// codeSimilarity returns the fraction of positions at which the two phonetic
// codes agree, in [0, 1]. Positions where both codes carry the '0' padding
// hold no information and are excluded, so short words cannot match long
// ones on padding alone. Codes of unexpected length score 0.
func codeSimilarity(a, b string) float64 {
	if len(a) != codeLength || len(b) != codeLength {
		return 0
	}
	matches, compared := 0, 0
	for i := 0; i < codeLength; i++ {
		if a[i] == '0' && b[i] == '0' {
			continue
		}
		compared++
		if a[i] == b[i] {
			matches++
		}
	}
	if compared == 0 {
		return 0
	}
	return float64(matches) / float64(compared)
}
