package quality

// Blend weights for the final score.
const (
	WeightAI         = 0.5
	WeightValidation = 0.3
	WeightContext    = 0.2
)

// DefaultThreshold is the auto-approve threshold used when none is configured.
const DefaultThreshold = 0.85

// Blender combines sub-scores into the final score.
type Blender struct {
	threshold float64
}

// NewBlender creates a Blender with an auto-approve threshold.
func NewBlender(threshold float64) *Blender {
	return &Blender{threshold: threshold}
}

// Threshold returns the auto-approve threshold.
func (b *Blender) Threshold() float64 {
	return b.threshold
}

// Blend returns 0.5*ai + 0.3*validation + 0.2*context rounded to 2 decimals.
// Inputs are clamped to [0,1] first.
func (b *Blender) Blend(aiScore, validationScore, contextScore float64) float64 {
	return round2(WeightAI*clamp(aiScore) + WeightValidation*clamp(validationScore) + WeightContext*clamp(contextScore))
}

// CanAutoApprove reports whether a final score reaches the threshold (inclusive).
func (b *Blender) CanAutoApprove(finalScore float64) bool {
	return finalScore >= b.threshold
}
