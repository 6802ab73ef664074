package dto

import "github.com/spec-kit/helpdesk/internal/domain"

// IntakeResponse reports what happened to an ingested message.
type IntakeResponse struct {
	Outcome        string                  `json:"outcome"`
	TicketID       string                  `json:"ticket_id,omitempty"`
	Filtered       bool                    `json:"filtered"`
	Classification *ClassificationResponse `json:"classification,omitempty"`
}

// ClassificationResponse mirrors the classifier verdict.
type ClassificationResponse struct {
	Category       domain.ClassificationCategory `json:"category"`
	SpamScore      float64                       `json:"spam_score"`
	PromotionScore float64                       `json:"promotion_score"`
	Confidence     float64                       `json:"confidence"`
	Reasons        []string                      `json:"reasons"`
}

// NewClassificationResponse maps a classifier verdict.
func NewClassificationResponse(result *domain.ClassificationResult) *ClassificationResponse {
	if result == nil {
		return nil
	}
	return &ClassificationResponse{
		Category:       result.Category,
		SpamScore:      result.SpamScore,
		PromotionScore: result.PromotionScore,
		Confidence:     result.Confidence,
		Reasons:        result.Reasons,
	}
}
