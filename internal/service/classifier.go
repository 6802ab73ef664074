package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// ModelPredictor is an optional learned classifier consulted alongside the
// rule engine. Implementations must be safe for concurrent use.
type ModelPredictor interface {
	Predict(ctx context.Context, msg *domain.InboundMessage) (*domain.ModelPrediction, error)
}

// ReplyResolver reports whether an In-Reply-To message id belongs to a
// message this system has already ingested. Replies into known threads are
// never filtered.
type ReplyResolver interface {
	KnownMessageID(ctx context.Context, messageID string) (bool, error)
}

var spamKeywords = []string{
	"unsubscribe", "click here", "limited time", "act now", "urgent action",
	"winner", "congratulations", "free money", "claim your prize", "you won",
	"viagra", "cialis", "pharmacy", "pills", "medication",
	"nigerian prince", "inheritance", "lottery", "sweepstakes",
	"debt relief", "consolidate debt", "credit repair",
	"work from home", "make money", "get rich", "earn $",
	"meet singles", "dating", "find love",
	"enlarge", "weight loss", "lose weight fast",
	"rolex", "replica", "cheap watches",
	"bitcoin", "cryptocurrency investment", "crypto trading",
	"loan approval", "pre-approved", "guaranteed approval",
}

var promotionKeywords = []string{
	"promotion", "special offer", "limited offer", "exclusive deal",
	"discount", "sale", "clearance", "save up to", "percent off",
	"coupon", "voucher", "promo code", "use code",
	"subscribe", "newsletter", "marketing", "advertisement",
	"sponsored", "ad", "commercial", "promotional",
	"unsubscribe from", "manage preferences", "email preferences",
	"view in browser", "view online", "web version",
	"this email was sent to", "you are receiving this",
	"update your preferences", "change email settings",
}

var spamSubjectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:free|win|winner|prize|congratulations|urgent|act now)\b`),
	regexp.MustCompile(`(?i)\b(?:viagra|cialis|pills|medication|pharmacy)\b`),
	regexp.MustCompile(`(?i)\b(?:click here|click now|visit now)\b`),
	regexp.MustCompile(`\$\d+`),
	regexp.MustCompile(`(?i)\d+% (?:off|discount|sale)`),
	regexp.MustCompile(`(?i)(?:re:?|fwd?:?)\s*(?:fwd?:?|re:?)\s*(?:fwd?:?|re:?)`),
}

var promotionSubjectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:sale|discount|offer|deal|promotion|clearance)\b`),
	regexp.MustCompile(`(?i)\d+% (?:off|discount)`),
	regexp.MustCompile(`(?i)free shipping`),
	regexp.MustCompile(`(?i)limited time`),
	regexp.MustCompile(`(?i)buy now`),
}

var suspiciousSenderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^[a-z0-9._%+-]+@(?:noreply|no-reply|donotreply|do-not-reply|mailer|marketing|promo|sales|offers|deals)`),
	regexp.MustCompile(`(?i)@(?:mail|email|send|promo|deal|offer|sale|discount|marketing|ad|advert)\.`),
}

var linkPattern = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\\(\\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)

// ClassifierDependencies wires the classifier service.
type ClassifierDependencies struct {
	Model    ModelPredictor // optional
	Resolver ReplyResolver  // optional
	Config   config.IntakeConfig
	Logger   *zap.Logger
}

// ClassifierService scores inbound messages as spam, promotion or ham with a
// weighted rule engine, fused with an optional model prediction.
type ClassifierService struct {
	model    ModelPredictor
	resolver ReplyResolver
	cfg      config.IntakeConfig
	logger   *zap.Logger
}

// NewClassifierService instantiates the classifier.
func NewClassifierService(deps ClassifierDependencies) *ClassifierService {
	return &ClassifierService{
		model:    deps.Model,
		resolver: deps.Resolver,
		cfg:      deps.Config,
		logger:   deps.Logger,
	}
}

// Classify scores a message. It never returns an error: when the model is
// unavailable or slow the rule scores stand alone.
func (s *ClassifierService) Classify(ctx context.Context, msg *domain.InboundMessage) domain.ClassificationResult {
	subject := strings.ToLower(msg.Subject)
	fromEmail := strings.ToLower(msg.FromAddress)
	bodyText := strings.ToLower(msg.BodyText)
	bodyHTML := strings.ToLower(msg.BodyHTML)
	fullText := subject + " " + bodyText + " " + bodyHTML

	var reasons []string
	var spamScore, promotionScore float64

	if msg.Header("List-Unsubscribe") != "" || msg.Header("List-Unsubscribe-Post") != "" {
		promotionScore += 0.3
		reasons = append(reasons, "Has List-Unsubscribe header (marketing email)")
	}

	if matches := countKeywords(spamKeywords, subject); matches > 0 {
		spamScore += 0.4
		reasons = append(reasons, fmt.Sprintf("Spam keywords in subject (%d matches)", matches))
	}
	if matches := countKeywords(spamKeywords, fullText); matches > 2 {
		spamScore += 0.3
		reasons = append(reasons, fmt.Sprintf("Multiple spam keywords in body (%d matches)", matches))
	}
	for _, pattern := range spamSubjectPatterns {
		if pattern.MatchString(subject) {
			spamScore += 0.2
			reasons = append(reasons, "Spam pattern in subject: "+pattern.String())
			break
		}
	}

	if matches := countKeywords(promotionKeywords, subject); matches > 0 {
		promotionScore += 0.3
		reasons = append(reasons, fmt.Sprintf("Promotion keywords in subject (%d matches)", matches))
	}
	if matches := countKeywords(promotionKeywords, fullText); matches > 3 {
		promotionScore += 0.4
		reasons = append(reasons, fmt.Sprintf("Multiple promotion keywords in body (%d matches)", matches))
	}
	for _, pattern := range promotionSubjectPatterns {
		if pattern.MatchString(subject) {
			promotionScore += 0.2
			reasons = append(reasons, "Promotion pattern in subject: "+pattern.String())
			break
		}
	}

	for _, pattern := range suspiciousSenderPatterns {
		if pattern.MatchString(fromEmail) {
			spamScore += 0.2
			promotionScore += 0.1
			reasons = append(reasons, "Suspicious sender pattern: "+pattern.String())
			break
		}
	}

	if links := len(linkPattern.FindAllString(fullText, -1)); links > 5 {
		spamScore += 0.15
		reasons = append(reasons, fmt.Sprintf("Excessive links (%d links)", links))
	}
	if strings.Contains(fullText, "unsubscribe") {
		promotionScore += 0.2
		reasons = append(reasons, "Contains unsubscribe link")
	}
	if len(strings.TrimSpace(bodyText)) < 50 && msg.InReplyTo == "" {
		spamScore += 0.1
		reasons = append(reasons, "Very short email body")
	}
	if subjectAllCaps(msg.Subject) {
		spamScore += 0.15
		reasons = append(reasons, "Subject in all caps")
	}

	spamScore = clampScore(spamScore)
	promotionScore = clampScore(promotionScore)

	prediction, modelUsed := s.predict(ctx, msg)
	var modelConfidence float64
	if modelUsed {
		modelConfidence = prediction.Confidence
		// Weighted fusion: model 0.6, rules 0.4.
		spamScore = 0.6*prediction.SpamScore + 0.4*spamScore
		if prediction.IsPromotion {
			promotionScore = maxFloat(promotionScore, prediction.Confidence)
		}
		reasons = append(reasons, fmt.Sprintf("Model prediction: %s (confidence: %.2f)", prediction.Method, prediction.Confidence))
		if prediction.Confidence > 0.7 {
			if prediction.IsSpam {
				spamScore = maxFloat(spamScore, 0.7)
			} else if prediction.IsPromotion {
				promotionScore = maxFloat(promotionScore, 0.7)
			}
		}
	}

	isSpam := spamScore >= 0.5
	isPromotion := promotionScore >= 0.5 && !isSpam

	if msg.InReplyTo != "" && s.knownReply(ctx, msg.InReplyTo) {
		isSpam = false
		isPromotion = false
		reasons = append(reasons, "Reply to existing ticket (legitimate)")
	}

	category := domain.CategoryHam
	if isSpam {
		category = domain.CategorySpam
	} else if isPromotion {
		category = domain.CategoryPromotion
	}

	confidence := 1.0 - maxFloat(spamScore, promotionScore)
	if isSpam || isPromotion {
		confidence = maxFloat(spamScore, promotionScore)
	}
	if modelUsed && modelConfidence > confidence {
		confidence = modelConfidence
	}

	return domain.ClassificationResult{
		IsSpam:          isSpam,
		IsPromotion:     isPromotion,
		IsHam:           !isSpam && !isPromotion,
		SpamScore:       spamScore,
		PromotionScore:  promotionScore,
		Confidence:      confidence,
		Reasons:         reasons,
		Category:        category,
		ModelUsed:       modelUsed,
		ModelConfidence: modelConfidence,
	}
}

// ShouldFilter reports whether a message must be kept out of the ticket
// pipeline. Spam is always filtered; promotions only when configured.
func (s *ClassifierService) ShouldFilter(ctx context.Context, msg *domain.InboundMessage) (bool, domain.ClassificationResult) {
	result := s.Classify(ctx, msg)
	if result.IsSpam {
		s.logger.Info("filtering spam email",
			zap.String("from", msg.FromAddress),
			zap.Strings("reasons", result.Reasons))
		return true, result
	}
	if s.cfg.FilterPromotions && result.IsPromotion {
		s.logger.Info("filtering promotion email",
			zap.String("from", msg.FromAddress),
			zap.Strings("reasons", result.Reasons))
		return true, result
	}
	return false, result
}

func (s *ClassifierService) predict(ctx context.Context, msg *domain.InboundMessage) (*domain.ModelPrediction, bool) {
	if s.model == nil || !s.cfg.ModelEnabled {
		return nil, false
	}
	timeout := s.cfg.ModelTimeout()
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	predictCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prediction, err := s.model.Predict(predictCtx, msg)
	if err != nil {
		s.logger.Warn("model prediction failed", zap.Error(err))
		return nil, false
	}
	return prediction, true
}

func (s *ClassifierService) knownReply(ctx context.Context, messageID string) bool {
	if s.resolver == nil {
		return false
	}
	known, err := s.resolver.KnownMessageID(ctx, messageID)
	if err != nil {
		s.logger.Warn("reply lookup failed", zap.Error(err))
		return false
	}
	return known
}

func countKeywords(keywords []string, text string) int {
	count := 0
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			count++
		}
	}
	return count
}

func subjectAllCaps(subject string) bool {
	if len(subject) <= 10 {
		return false
	}
	hasLetter := false
	for _, r := range subject {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}

func clampScore(score float64) float64 {
	if score > 1.0 {
		return 1.0
	}
	if score < 0 {
		return 0
	}
	return score
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
