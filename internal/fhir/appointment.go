package fhir

import "time"

// Appointment statuses used by the portal.
const (
	StatusBooked     = "booked"
	StatusArrived    = "arrived"
	StatusFulfilled  = "fulfilled"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusNoShow     = "noshow"
	StatusProposed   = "proposed"
	StatusPending    = "pending"
	StatusCheckedIn  = "checked-in"
	StatusWaitlist   = "waitlist"
	StatusEnteredErr = "entered-in-error"
)

// Participant statuses.
const (
	ParticipantAccepted    = "accepted"
	ParticipantNeedsAction = "needs-action"
	ParticipantDeclined    = "declined"
	ParticipantTentative   = "tentative"
)

// AppointmentStatuses is the set accepted on status updates.
var AppointmentStatuses = map[string]bool{
	StatusProposed:   true,
	StatusPending:    true,
	StatusBooked:     true,
	StatusArrived:    true,
	StatusFulfilled:  true,
	StatusCompleted:  true,
	StatusCancelled:  true,
	StatusNoShow:     true,
	StatusCheckedIn:  true,
	StatusWaitlist:   true,
	StatusEnteredErr: true,
}

// Participant is one entry of Appointment.participant.
type Participant struct {
	Actor  string `json:"actor"`
	Status string `json:"status"`
}

// Appointment is the typed read view of an Appointment resource.
type Appointment struct {
	ID           string        `json:"id"`
	Status       string        `json:"status"`
	Start        string        `json:"start"`
	End          string        `json:"end,omitempty"`
	Description  string        `json:"description,omitempty"`
	Participants []Participant `json:"participants"`
}

// AppointmentFrom reads the appointment fields out of r. Absent fields are "".
func AppointmentFrom(r Resource) Appointment {
	a := Appointment{
		ID:          r.ID,
		Status:      r.String("status"),
		Start:       r.String("start"),
		End:         r.String("end"),
		Description: r.String("description"),
	}
	for _, raw := range r.List("participant") {
		p, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		part := Participant{}
		if actor, ok := p["actor"].(map[string]any); ok {
			part.Actor, _ = actor["reference"].(string)
		}
		part.Status, _ = p["status"].(string)
		a.Participants = append(a.Participants, part)
	}
	return a
}

// HasParticipant reports whether any participant references ref exactly.
func (a Appointment) HasParticipant(ref string) bool {
	for _, p := range a.Participants {
		if p.Actor == ref {
			return true
		}
	}
	return false
}

// StartTime parses Start; the zero time is returned when it is absent or unparsable.
func (a Appointment) StartTime() time.Time {
	return ParseTimestamp(a.Start)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp accepts the ISO-8601 shapes found in stored payloads.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
