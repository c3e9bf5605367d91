package classify

import "github.com/verbao/intentd/pkg/intent"

// Modality fusion weights. The embedding side is favoured because acoustic
// similarity survives speech impairment better than transcription does.
const (
	embeddingWeight = 0.6
	textWeight      = 0.4

	// agreementBoost rewards the two modalities naming the same intent.
	agreementBoost = 1.15

	// disagreementPenalty is applied to the winner's own confidence when the
	// modalities name different intents.
	disagreementPenalty = 0.85
)

// Fuse merges an embedding-side and a text-side prediction into one.
//
// A modality that did not run (or resolved to nothing) is represented as
// ([intent.Unknown], 0). When only one side is known it is returned
// unchanged; when both agree the fused confidence is the weighted average
// boosted by [agreementBoost] and capped at 1; when they disagree the side
// with the higher weighted score wins at its own raw confidence scaled by
// [disagreementPenalty].
func Fuse(embIntent intent.Intent, embConf float64, textIntent intent.Intent, textConf float64) (intent.Intent, float64) {
	embKnown := embIntent != intent.Unknown
	textKnown := textIntent != intent.Unknown

	switch {
	case !embKnown && !textKnown:
		return intent.Unknown, 0
	case embKnown && !textKnown:
		return embIntent, embConf
	case !embKnown && textKnown:
		return textIntent, textConf
	}

	if embIntent == textIntent {
		fused := (embeddingWeight*embConf + textWeight*textConf) * agreementBoost
		return embIntent, min(1, fused)
	}

	if embeddingWeight*embConf >= textWeight*textConf {
		return embIntent, embConf * disagreementPenalty
	}
	return textIntent, textConf * disagreementPenalty
}
