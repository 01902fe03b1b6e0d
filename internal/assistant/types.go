// Package assistant is the boundary to the conversational assistant: text and
// a context bundle go out, speech and an optional typed action come back.
package assistant

import (
	"context"

	"stealthcompany.com/clinicportal/internal/views"
)

// ActionType names what the assistant wants the portal to do.
type ActionType string

const (
	ActionNavigate        ActionType = "NAVIGATE"
	ActionCreateCondition ActionType = "CREATE_CONDITION"
	ActionBookAppointment ActionType = "BOOK_APPOINTMENT"
)

// Action is the optional structured half of a response.
type Action struct {
	Type ActionType `json:"type"`
	// Path is the screen for NAVIGATE.
	Path string `json:"path,omitempty"`
	// Condition is the free-text condition for CREATE_CONDITION.
	Condition string `json:"condition,omitempty"`
	// PractitionerID, Date and Reason describe a BOOK_APPOINTMENT.
	PractitionerID string `json:"practitionerId,omitempty"`
	Date           string `json:"date,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// Request is what the assistant receives.
type Request struct {
	Text    string                 `json:"text"`
	Context views.AssistantContext `json:"context"`
}

// Response is what the assistant answers.
type Response struct {
	Speech string  `json:"speech"`
	Action *Action `json:"action,omitempty"`
}

// Service talks to the assistant.
type Service interface {
	Converse(ctx context.Context, req Request) (Response, error)
}
