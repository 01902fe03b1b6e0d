package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"stealthcompany.com/clinicportal/internal/booking"
)

type statusUpdate struct {
	Status string `json:"status"`
}

type assistantMessage struct {
	Text string `json:"text"`
}

// getAppointmentHandler returns one appointment with its participants resolved
func (s *Server) getAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	appt, err := s.views.GetAppointment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// bookAppointmentHandler books a new appointment for a patient
func (s *Server) bookAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	var req booking.Request
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.booking.Book(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/appointments/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

// updateAppointmentStatusHandler moves an appointment to a new status
func (s *Server) updateAppointmentStatusHandler(w http.ResponseWriter, r *http.Request) {
	var body statusUpdate
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.booking.UpdateStatus(r.Context(), mux.Vars(r)["id"], strings.TrimSpace(body.Status))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) patientAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.views.ListAppointmentsForPatient(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) patientPrescriptionsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.views.ListPrescriptionsForPatient(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) patientReportsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.views.ListReportsForPatient(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// assistantHandler forwards a patient's message to the conversational service
func (s *Server) assistantHandler(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "assistant not configured"})
		return
	}

	var msg assistantMessage
	if err := decodeBody(r, &msg); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(msg.Text) == "" {
		s.writeError(w, r, &badRequest{msg: "text is required"})
		return
	}

	outcome, err := s.assistant.Handle(r.Context(), mux.Vars(r)["id"], msg.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// practitionerAppointmentsHandler lists a practitioner's appointments,
// optionally restricted to one day with ?date=YYYY-MM-DD
func (s *Server) practitionerAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.views.ListAppointmentsForPractitioner(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("date"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) practitionerPrescriptionsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.views.ListPrescriptionsForPractitioner(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) rosterHandler(w http.ResponseWriter, r *http.Request) {
	roster, err := s.views.SynthesizePatientRoster(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

// dashboardHandler returns the day's counters. ?today= overrides the server date.
func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	today := r.URL.Query().Get("today")
	if today == "" {
		today = s.now().Format(time.DateOnly)
	}

	stats, err := s.views.DashboardStats(r.Context(), mux.Vars(r)["id"], today)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) attendanceHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	bundle, err := s.views.AttendanceContext(r.Context(), vars["appointmentId"], vars["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}
