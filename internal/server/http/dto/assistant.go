package dto

import "github.com/polkiloo/refundstatus/internal/domain/model"

// AssistantChatRequest is the POST /api/assistant/chat payload.
type AssistantChatRequest struct {
	Question string `json:"question"`
}

type AssistantActionResponse struct {
	Type  string `json:"type"`
	Label string `json:"label"`
}

// AssistantChatResponse is the assistant reply.
type AssistantChatResponse struct {
	Intent         string                    `json:"intent"`
	AnswerMarkdown string                    `json:"answerMarkdown"`
	Actions        []AssistantActionResponse `json:"actions"`
	Confidence     string                    `json:"confidence"`
}

// NewAssistantChatResponse maps an answer to its wire form.
func NewAssistantChatResponse(answer *model.AssistantAnswer) AssistantChatResponse {
	resp := AssistantChatResponse{
		Intent:         string(answer.Intent),
		AnswerMarkdown: answer.AnswerMarkdown,
		Actions:        make([]AssistantActionResponse, 0, len(answer.Actions)),
		Confidence:     string(answer.Confidence),
	}
	for _, a := range answer.Actions {
		resp.Actions = append(resp.Actions, AssistantActionResponse{Type: string(a.Type), Label: a.Label})
	}
	return resp
}
