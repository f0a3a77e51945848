package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/fx"

	domainErrors "github.com/polkiloo/refundstatus/internal/domain/errors"
	"github.com/polkiloo/refundstatus/internal/domain/model"
	"github.com/polkiloo/refundstatus/internal/metrics"
)

// IntentResult is the outcome of classifying a question.
type IntentResult struct {
	Intent     model.AssistantIntent
	Confidence float64
	Model      string
}

// KeywordClassifier assigns intents by keyword. Rules are tried in order and the first match wins.
type KeywordClassifier struct{}

var intentRules = []struct {
	intent   model.AssistantIntent
	keywords []string
}{
	{model.IntentRefundStatus, []string{"status", "where is my refund", "latest"}},
	{model.IntentRefundETA, []string{"eta", "when", "how long", "available"}},
	{model.IntentWhyDelayed, []string{"why", "delayed", "stuck", "processing"}},
	{model.IntentNextSteps, []string{"next step", "what should i do", "action"}},
}

// Classify returns the intent of question.
func (KeywordClassifier) Classify(question string) IntentResult {
	q := strings.ToLower(question)
	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(q, kw) {
				return IntentResult{Intent: rule.intent, Confidence: 0.5, Model: "keyword"}
			}
		}
	}
	return IntentResult{Intent: model.IntentUnknown, Confidence: 0.5, Model: "keyword"}
}

// PrivacyFilter reduces a refund view to the facts an answer may use.
func PrivacyFilter(view *model.RefundView) model.AssistantFacts {
	facts := model.AssistantFacts{
		TaxYear:              view.TaxYear,
		Status:               view.Status,
		LastUpdatedAt:        view.LastUpdatedAt,
		ExpectedAmountBucket: BucketAmount(view.ExpectedAmount),
	}
	if view.AvailableAtEstimated != nil {
		at := *view.AvailableAtEstimated
		facts.EstimatedAvailableAt = &at
	}
	return facts
}

// BucketAmount replaces an exact refund amount with a coarse range.
func BucketAmount(amount *float64) string {
	if amount == nil {
		return "unknown"
	}
	switch a := *amount; {
	case a < 500:
		return "<$500"
	case a < 1000:
		return "$500-$1k"
	case a < 2000:
		return "$1k-$2k"
	case a < 5000:
		return "$2k-$5k"
	case a < 10000:
		return "$5k-$10k"
	default:
		return ">$10k"
	}
}

var statusGuidance = map[model.RefundStatus]string{
	model.RefundStatusNotFound:   "No return has been found for this tax year yet.",
	model.RefundStatusReceived:   "Your return has been received and is waiting to be processed.",
	model.RefundStatusProcessing: "Your return is being reviewed. Most refunds leave processing within 21 days.",
	model.RefundStatusApproved:   "Your refund is approved and scheduled to be sent.",
	model.RefundStatusSent:       "Your refund has been sent to your bank or by mail.",
	model.RefundStatusAvailable:  "Your refund should now be available.",
	model.RefundStatusRejected:   "Your return was rejected. Contact support to find out what needs to change.",
}

// RefundReader is the part of RefundUseCase the assistant answers from.
type RefundReader interface {
	Latest(ctx context.Context, userID int64, taxYear int, requestID string) (*model.RefundView, error)
}

// AssistantUseCase answers taxpayer questions from their latest refund status.
type AssistantUseCase struct {
	refunds    RefundReader
	classifier KeywordClassifier
	metrics    metrics.Recorder
	logger     *slog.Logger
}

// AssistantParams lists AssistantUseCase dependencies.
type AssistantParams struct {
	fx.In

	Refunds *RefundUseCase
	Metrics metrics.Recorder
	Logger  *slog.Logger
}

// NewAssistantUseCase constructs AssistantUseCase.
func NewAssistantUseCase(p AssistantParams) *AssistantUseCase {
	return newAssistantUseCase(p.Refunds, p.Metrics, p.Logger)
}

func newAssistantUseCase(refunds RefundReader, recorder metrics.Recorder, logger *slog.Logger) *AssistantUseCase {
	return &AssistantUseCase{refunds: refunds, metrics: recorder, logger: logger}
}

// Answer classifies question and answers it from the user's most recent refund.
func (u *AssistantUseCase) Answer(ctx context.Context, userID int64, question, requestID string) (*model.AssistantAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" || utf8.RuneCountInString(question) > model.MaxQuestionLength {
		return nil, domainErrors.ErrInvalidQuestion
	}

	start := time.Now()
	intent := u.classifier.Classify(question)
	u.logger.Info("assistant_intent",
		slog.Int64("user_id", userID),
		slog.String("intent", string(intent.Intent)),
		slog.Float64("confidence", intent.Confidence),
		slog.String("model", intent.Model),
		slog.String("request_id", requestID),
	)

	view, err := u.refunds.Latest(ctx, userID, 0, requestID)
	u.metrics.Observe(ctx, "assistant_answer", err == nil, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("load refund for assistant: %w", err)
	}

	facts := PrivacyFilter(view)
	return &model.AssistantAnswer{
		Intent:         intent.Intent,
		AnswerMarkdown: composeAnswer(question, intent.Intent, facts),
		Actions:        actionsFor(view),
		Confidence:     confidenceFor(facts),
	}, nil
}

func composeAnswer(question string, intent model.AssistantIntent, facts model.AssistantFacts) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Your question:** %s\n\n", question)
	fmt.Fprintf(&sb, "**Latest refund status:** %s\n", facts.Status)
	fmt.Fprintf(&sb, "**Tax year:** %d\n", facts.TaxYear)
	fmt.Fprintf(&sb, "**Last updated:** %s\n", facts.LastUpdatedAt.UTC().Format(time.RFC3339))
	if facts.ExpectedAmountBucket != "unknown" {
		fmt.Fprintf(&sb, "**Expected amount:** %s\n", facts.ExpectedAmountBucket)
	}
	if facts.EstimatedAvailableAt != nil && facts.Status != model.RefundStatusAvailable {
		fmt.Fprintf(&sb, "**Estimated availability:** %s\n", facts.EstimatedAvailableAt.UTC().Format(time.DateOnly))
	}

	switch intent {
	case model.IntentRefundETA:
		if facts.EstimatedAvailableAt == nil && facts.Status != model.RefundStatusAvailable {
			sb.WriteString("\nThere is no availability estimate for this status yet.\n")
		}
	case model.IntentUnknown:
		sb.WriteString("\nI can help with your refund status, timing, delays and next steps.\n")
	}
	if guidance, ok := statusGuidance[facts.Status]; ok && intent != model.IntentUnknown {
		fmt.Fprintf(&sb, "\n%s\n", guidance)
	}
	return sb.String()
}

func actionsFor(view *model.RefundView) []model.AssistantAction {
	actions := []model.AssistantAction{{Type: model.ActionRefresh, Label: "Refresh status"}}
	if view.TrackingID != nil && strings.TrimSpace(*view.TrackingID) != "" {
		actions = append(actions, model.AssistantAction{Type: model.ActionShowTracking, Label: "Show tracking details"})
	}
	switch view.Status {
	case model.RefundStatusRejected:
		actions = append(actions, model.AssistantAction{Type: model.ActionContactSupport, Label: "Contact support"})
	case model.RefundStatusProcessing:
		actions = append(actions, model.AssistantAction{Type: model.ActionContactSupport, Label: "Contact support if no update in 21 days"})
	}
	return actions
}

func confidenceFor(facts model.AssistantFacts) model.AssistantConfidence {
	switch {
	case facts.Status == model.RefundStatusAvailable:
		return model.ConfidenceHigh
	case facts.EstimatedAvailableAt != nil:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}
