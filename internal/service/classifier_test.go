package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
)

type stubModel struct {
	prediction *domain.ModelPrediction
	err        error
}

func (m *stubModel) Predict(context.Context, *domain.InboundMessage) (*domain.ModelPrediction, error) {
	return m.prediction, m.err
}

type stubResolver struct {
	known map[string]bool
}

func (r *stubResolver) KnownMessageID(_ context.Context, messageID string) (bool, error) {
	return r.known[messageID], nil
}

func newClassifier(t *testing.T, deps ClassifierDependencies) *ClassifierService {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return NewClassifierService(deps)
}

func TestClassifySpamKeywordsInSubject(t *testing.T) {
	classifier := newClassifier(t, ClassifierDependencies{})

	result := classifier.Classify(context.Background(), &domain.InboundMessage{
		Subject:     "Congratulations you won a prize",
		FromAddress: "stranger@example.com",
		BodyText:    "Claim your winnings today by replying to this message right away.",
	})

	assert.True(t, result.IsSpam)
	assert.False(t, result.IsPromotion)
	assert.Equal(t, domain.CategorySpam, result.Category)
	assert.GreaterOrEqual(t, result.SpamScore, 0.5)
	assert.NotEmpty(t, result.Reasons)
}

func TestClassifyHam(t *testing.T) {
	classifier := newClassifier(t, ClassifierDependencies{})

	result := classifier.Classify(context.Background(), &domain.InboundMessage{
		Subject:     "Cannot log in to my account",
		FromAddress: "jordan@customer.example.com",
		BodyText:    "Since this morning my password is rejected even after a reset. Could you take a look at my account please?",
	})

	assert.True(t, result.IsHam)
	assert.Equal(t, domain.CategoryHam, result.Category)
	assert.Less(t, result.SpamScore, 0.5)
	assert.Less(t, result.PromotionScore, 0.5)
}

func TestClassifySpamScoreMonotoneInKeywordCount(t *testing.T) {
	classifier := newClassifier(t, ClassifierDependencies{})

	keywords := []string{"lottery", "inheritance", "sweepstakes", "rolex", "viagra"}
	base := "I wanted to follow up on the earlier conversation about our service contract renewal."

	previous := -1.0
	for i := 0; i <= len(keywords); i++ {
		body := base
		if i > 0 {
			body += " " + strings.Join(keywords[:i], " ")
		}
		result := classifier.Classify(context.Background(), &domain.InboundMessage{
			Subject:     "Question about my invoice",
			FromAddress: "jordan@customer.example.com",
			BodyText:    body,
		})
		assert.GreaterOrEqual(t, result.SpamScore, previous,
			"score dropped after adding keyword %d", i)
		previous = result.SpamScore
	}
}

func TestClassifySpamTakesPrecedenceOverPromotion(t *testing.T) {
	classifier := newClassifier(t, ClassifierDependencies{})

	result := classifier.Classify(context.Background(), &domain.InboundMessage{
		Subject:     "Congratulations winner special offer inside",
		FromAddress: "stranger@example.com",
		BodyText:    "You have been selected. To stop receiving these messages, unsubscribe using the link at the bottom.",
		Headers:     map[string]string{"list-unsubscribe": "<mailto:leave@example.com>"},
	})

	// Both scores clear the threshold; ties resolve to spam.
	require.GreaterOrEqual(t, result.SpamScore, 0.5)
	require.GreaterOrEqual(t, result.PromotionScore, 0.5)
	assert.True(t, result.IsSpam)
	assert.False(t, result.IsPromotion)
	assert.Equal(t, domain.CategorySpam, result.Category)
}

func TestClassifyPromotionViaListUnsubscribe(t *testing.T) {
	classifier := newClassifier(t, ClassifierDependencies{})

	result := classifier.Classify(context.Background(), &domain.InboundMessage{
		Subject:     "Your weekly newsletter",
		FromAddress: "news@updates.example.com",
		BodyText:    "Here is what happened this week. To stop receiving these, unsubscribe below.",
		Headers:     map[string]string{"list-unsubscribe": "<mailto:leave@example.com>"},
	})

	assert.True(t, result.IsPromotion)
	assert.False(t, result.IsSpam)
	assert.Equal(t, domain.CategoryPromotion, result.Category)
	assert.GreaterOrEqual(t, result.PromotionScore, 0.5)
}

func TestClassifyAllCapsSubject(t *testing.T) {
	classifier := newClassifier(t, ClassifierDependencies{})

	result := classifier.Classify(context.Background(), &domain.InboundMessage{
		Subject:     "URGENT ACTION REQUIRED NOW",
		FromAddress: "stranger@example.com",
		BodyText:    "You must respond immediately or your account will be closed forever, act now.",
	})

	assert.True(t, result.IsSpam)
}

func TestClassifyShortBodyWithoutReplyHeader(t *testing.T) {
	classifier := newClassifier(t, ClassifierDependencies{})

	short := classifier.Classify(context.Background(), &domain.InboundMessage{
		Subject:     "hello",
		FromAddress: "someone@example.com",
		BodyText:    "hi",
	})
	reply := classifier.Classify(context.Background(), &domain.InboundMessage{
		Subject:     "hello",
		FromAddress: "someone@example.com",
		BodyText:    "hi",
		InReplyTo:   "<prior@example.com>",
	})

	// The short-body penalty only applies when the message is not a reply.
	assert.Greater(t, short.SpamScore, reply.SpamScore)
}

func TestClassifyReplyToKnownThreadIsNeverFiltered(t *testing.T) {
	resolver := &stubResolver{known: map[string]bool{"<ticket-thread@example.com>": true}}
	classifier := newClassifier(t, ClassifierDependencies{Resolver: resolver})

	result := classifier.Classify(context.Background(), &domain.InboundMessage{
		Subject:     "Congratulations you won a prize",
		FromAddress: "stranger@example.com",
		BodyText:    "claim your prize",
		InReplyTo:   "<ticket-thread@example.com>",
	})

	assert.False(t, result.IsSpam)
	assert.False(t, result.IsPromotion)
	assert.True(t, result.IsHam)
	assert.Contains(t, result.Reasons, "Reply to existing ticket (legitimate)")
}

func TestClassifyModelFusion(t *testing.T) {
	model := &stubModel{prediction: &domain.ModelPrediction{
		IsSpam:     true,
		SpamScore:  1.0,
		Confidence: 0.9,
		Method:     "naive_bayes",
	}}
	classifier := newClassifier(t, ClassifierDependencies{
		Model:  model,
		Config: config.IntakeConfig{ModelEnabled: true},
	})

	// A message the rules alone would pass.
	result := classifier.Classify(context.Background(), &domain.InboundMessage{
		Subject:     "Quick question about my invoice",
		FromAddress: "jordan@customer.example.com",
		BodyText:    "I noticed a line item I do not recognize on last month's invoice, can you explain it?",
	})

	require.True(t, result.ModelUsed)
	// Model weight 0.6 alone is enough to cross the spam threshold.
	assert.True(t, result.IsSpam)
	assert.GreaterOrEqual(t, result.SpamScore, 0.6)
	// The model's confidence wins when it exceeds the rule-derived one.
	assert.InDelta(t, 0.9, result.Confidence, 0.0001)
}

func TestClassifyModelConfidenceFloor(t *testing.T) {
	model := &stubModel{prediction: &domain.ModelPrediction{
		IsPromotion: true,
		Confidence:  0.8,
		Method:      "naive_bayes",
	}}
	classifier := newClassifier(t, ClassifierDependencies{
		Model:  model,
		Config: config.IntakeConfig{ModelEnabled: true},
	})

	result := classifier.Classify(context.Background(), &domain.InboundMessage{
		Subject:     "Quick question about my invoice",
		FromAddress: "jordan@customer.example.com",
		BodyText:    "I noticed a line item I do not recognize on last month's invoice, can you explain it?",
	})

	require.True(t, result.ModelUsed)
	assert.True(t, result.IsPromotion)
	assert.GreaterOrEqual(t, result.PromotionScore, 0.7)
}

func TestClassifyModelErrorDegradesSilently(t *testing.T) {
	model := &stubModel{err: errors.New("model backend down")}
	classifier := newClassifier(t, ClassifierDependencies{
		Model:  model,
		Config: config.IntakeConfig{ModelEnabled: true},
	})

	result := classifier.Classify(context.Background(), &domain.InboundMessage{
		Subject:     "Cannot log in to my account",
		FromAddress: "jordan@customer.example.com",
		BodyText:    "Since this morning my password is rejected even after a reset. Could you take a look please?",
	})

	assert.False(t, result.ModelUsed)
	assert.True(t, result.IsHam)
}

func TestClassifyModelDisabledSkipsPredictor(t *testing.T) {
	model := &stubModel{prediction: &domain.ModelPrediction{IsSpam: true, SpamScore: 1.0, Confidence: 1.0}}
	classifier := newClassifier(t, ClassifierDependencies{
		Model:  model,
		Config: config.IntakeConfig{ModelEnabled: false},
	})

	result := classifier.Classify(context.Background(), &domain.InboundMessage{
		Subject:     "Cannot log in to my account",
		FromAddress: "jordan@customer.example.com",
		BodyText:    "Since this morning my password is rejected even after a reset. Could you take a look please?",
	})

	assert.False(t, result.ModelUsed)
	assert.True(t, result.IsHam)
}

func TestShouldFilterPromotionGating(t *testing.T) {
	msg := &domain.InboundMessage{
		Subject:     "Your weekly newsletter",
		FromAddress: "news@updates.example.com",
		BodyText:    "Here is what happened this week. To stop receiving these, unsubscribe below.",
		Headers:     map[string]string{"list-unsubscribe": "<mailto:leave@example.com>"},
	}

	keepPromos := newClassifier(t, ClassifierDependencies{Config: config.IntakeConfig{FilterPromotions: false}})
	filtered, result := keepPromos.ShouldFilter(context.Background(), msg)
	require.True(t, result.IsPromotion)
	assert.False(t, filtered)

	dropPromos := newClassifier(t, ClassifierDependencies{Config: config.IntakeConfig{FilterPromotions: true}})
	filtered, _ = dropPromos.ShouldFilter(context.Background(), msg)
	assert.True(t, filtered)
}

func TestShouldFilterAlwaysDropsSpam(t *testing.T) {
	classifier := newClassifier(t, ClassifierDependencies{Config: config.IntakeConfig{FilterPromotions: false}})

	filtered, result := classifier.ShouldFilter(context.Background(), &domain.InboundMessage{
		Subject:     "Congratulations you won a prize",
		FromAddress: "stranger@example.com",
		BodyText:    "claim your prize",
	})

	assert.True(t, filtered)
	assert.True(t, result.IsSpam)
}

func TestSubjectAllCaps(t *testing.T) {
	tests := []struct {
		subject string
		want    bool
	}{
		{"URGENT ACTION REQUIRED", true},
		{"SHORT", false},                     // too short to count
		{"Mixed Case Subject Line", false},   // has lowercase
		{"1234567890 12345", false},          // no letters at all
		{"ACT NOW!!! LIMITED TIME!!!", true}, // punctuation does not matter
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			assert.Equal(t, tt.want, subjectAllCaps(tt.subject))
		})
	}
}
