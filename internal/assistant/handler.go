package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"stealthcompany.com/clinicportal/internal/booking"
	"stealthcompany.com/clinicportal/internal/fhir"
	"stealthcompany.com/clinicportal/internal/views"
)

// ContextBuilder assembles the bundle sent with each turn.
type ContextBuilder interface {
	AssistantContext(ctx context.Context, patientID string, now time.Time) (views.AssistantContext, error)
}

// Booker books appointments on the patient's behalf.
type Booker interface {
	Book(ctx context.Context, req booking.Request) (fhir.Resource, error)
}

// Outcome is the result of one conversational turn.
type Outcome struct {
	Speech string  `json:"speech"`
	Action *Action `json:"action,omitempty"`
	// Appointment is set when a BOOK_APPOINTMENT action was carried out.
	Appointment *fhir.Resource `json:"appointment,omitempty"`
	// Rejected holds the reason a BOOK_APPOINTMENT action was refused.
	Rejected string `json:"rejected,omitempty"`
}

// Handler runs a turn: context, assistant call, then the action when it
// writes. Only BOOK_APPOINTMENT reaches the store; other actions are handed
// back to the caller as they came.
type Handler struct {
	service Service
	views   ContextBuilder
	booker  Booker
	now     func() time.Time
	log     zerolog.Logger
}

// NewHandler creates a Handler.
func NewHandler(service Service, views ContextBuilder, booker Booker, logger zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		views:   views,
		booker:  booker,
		now:     time.Now,
		log:     logger.With().Str("component", "assistant").Logger(),
	}
}

// Handle processes text sent by patientID.
func (h *Handler) Handle(ctx context.Context, patientID, text string) (Outcome, error) {
	now := h.now()
	bundle, err := h.views.AssistantContext(ctx, patientID, now)
	if err != nil {
		return Outcome{}, fmt.Errorf("build assistant context: %w", err)
	}

	resp, err := h.service.Converse(ctx, Request{Text: text, Context: bundle})
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Speech: resp.Speech, Action: resp.Action}
	if resp.Action == nil || resp.Action.Type != ActionBookAppointment {
		return out, nil
	}

	appt, err := h.book(ctx, patientID, *resp.Action)
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		out.Rejected = verr.Reason
		h.log.Info().Str("patient_id", patientID).Str("reason", verr.Reason).Msg("Assistant booking rejected")
		return out, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	out.Appointment = &appt
	return out, nil
}

func (h *Handler) book(ctx context.Context, patientID string, action Action) (fhir.Resource, error) {
	start := fhir.ParseTimestamp(action.Date)
	if start.IsZero() {
		return fhir.Resource{}, &booking.ValidationError{Field: "date", Reason: fmt.Sprintf("unreadable appointment date %q", action.Date)}
	}
	return h.booker.Book(ctx, booking.Request{
		PatientID:      patientID,
		PractitionerID: action.PractitionerID,
		Start:          start,
		Description:    action.Reason,
	})
}
