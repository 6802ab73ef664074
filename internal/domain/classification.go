package domain

// ClassificationCategory labels the outcome of intake classification.
type ClassificationCategory string

const (
	CategorySpam      ClassificationCategory = "SPAM"
	CategoryPromotion ClassificationCategory = "PROMOTION"
	CategoryHam       ClassificationCategory = "HAM"
)

// ModelPrediction is the verdict of an optional learned classifier, fused
// with the rule scores during classification.
type ModelPrediction struct {
	IsSpam      bool
	IsPromotion bool
	SpamScore   float64
	Confidence  float64
	Method      string
}

// ClassificationResult is the derived verdict for an inbound message.
// It is consumed immediately by the intake pipeline and never persisted,
// except optionally as a filtered-message audit entry.
type ClassificationResult struct {
	IsSpam          bool
	IsPromotion     bool
	IsHam           bool
	SpamScore       float64
	PromotionScore  float64
	Confidence      float64
	Reasons         []string
	Category        ClassificationCategory
	ModelUsed       bool
	ModelConfidence float64
}
