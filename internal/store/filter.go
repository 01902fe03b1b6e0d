package store

import (
	"strings"

	"stealthcompany.com/clinicportal/internal/fhir"
)

// Filter selects resources during a Search.
type Filter interface {
	Match(r fhir.Resource) bool
}

// FilterFunc adapts a plain function to Filter.
type FilterFunc func(r fhir.Resource) bool

func (f FilterFunc) Match(r fhir.Resource) bool { return f(r) }

type matchAll struct{}

func (matchAll) Match(fhir.Resource) bool { return true }

// All matches every resource.
func All() Filter { return matchAll{} }

type and []Filter

func (a and) Match(r fhir.Resource) bool {
	for _, f := range a {
		if !f.Match(r) {
			return false
		}
	}
	return true
}

// And matches when every filter matches. An empty And matches everything.
func And(filters ...Filter) Filter { return and(filters) }

// AppointmentFilter selects appointments. Zero-valued fields are not applied.
type AppointmentFilter struct {
	// Participant is a reference that must appear among the participants.
	Participant string
	Status      string
	// StartPrefix is matched against the raw start string, e.g. "2024-01-05".
	StartPrefix string
	ExcludeID   string
}

func (f AppointmentFilter) Match(r fhir.Resource) bool {
	a := fhir.AppointmentFrom(r)
	if f.Participant != "" && !a.HasParticipant(f.Participant) {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.StartPrefix != "" && !strings.HasPrefix(a.Start, f.StartPrefix) {
		return false
	}
	if f.ExcludeID != "" && a.ID == f.ExcludeID {
		return false
	}
	return true
}

// MedicationRequestFilter selects prescriptions by subject, requester and status.
type MedicationRequestFilter struct {
	Subject   string
	Requester string
	Status    string
}

func (f MedicationRequestFilter) Match(r fhir.Resource) bool {
	m := fhir.MedicationRequestFrom(r)
	if f.Subject != "" && m.Subject != f.Subject {
		return false
	}
	if f.Requester != "" && m.Requester != f.Requester {
		return false
	}
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	return true
}

// DiagnosticReportFilter selects reports by subject and performer.
type DiagnosticReportFilter struct {
	Subject   string
	Performer string
}

func (f DiagnosticReportFilter) Match(r fhir.Resource) bool {
	d := fhir.DiagnosticReportFrom(r)
	if f.Subject != "" && d.Subject != f.Subject {
		return false
	}
	if f.Performer != "" {
		found := false
		for _, p := range d.Performers {
			if p == f.Performer {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
