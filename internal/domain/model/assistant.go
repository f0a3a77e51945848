package model

import "time"

// MaxQuestionLength bounds assistant questions in runes.
const MaxQuestionLength = 1000

// AssistantIntent is what a taxpayer asks the refund assistant about.
type AssistantIntent string

const (
	IntentRefundStatus AssistantIntent = "REFUND_STATUS"
	IntentRefundETA    AssistantIntent = "REFUND_ETA"
	IntentWhyDelayed   AssistantIntent = "WHY_DELAYED"
	IntentNextSteps    AssistantIntent = "NEXT_STEPS"
	IntentUnknown      AssistantIntent = "UNKNOWN"
)

// AssistantActionType identifies a follow-up the client can offer next to an answer.
type AssistantActionType string

const (
	ActionRefresh        AssistantActionType = "REFRESH"
	ActionContactSupport AssistantActionType = "CONTACT_SUPPORT"
	ActionShowTracking   AssistantActionType = "SHOW_TRACKING"
)

// AssistantConfidence grades how well the answer is backed by refund data.
type AssistantConfidence string

const (
	ConfidenceLow    AssistantConfidence = "LOW"
	ConfidenceMedium AssistantConfidence = "MEDIUM"
	ConfidenceHigh   AssistantConfidence = "HIGH"
)

type AssistantAction struct {
	Type  AssistantActionType
	Label string
}

// AssistantAnswer is the reply to one assistant question.
type AssistantAnswer struct {
	Intent         AssistantIntent
	AnswerMarkdown string
	Actions        []AssistantAction
	Confidence     AssistantConfidence
}

// AssistantFacts is the refund data an answer may be composed from.
// Tracking ids and exact amounts never appear here.
type AssistantFacts struct {
	TaxYear              int
	Status               RefundStatus
	LastUpdatedAt        time.Time
	ExpectedAmountBucket string
	EstimatedAvailableAt *time.Time
}
