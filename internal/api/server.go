package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"stealthcompany.com/clinicportal/internal/assistant"
	"stealthcompany.com/clinicportal/internal/booking"
	"stealthcompany.com/clinicportal/internal/metrics"
	"stealthcompany.com/clinicportal/internal/store"
	"stealthcompany.com/clinicportal/internal/views"
)

// Pinger reports whether the durable backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the HTTP surface exposes.
type Deps struct {
	Store   *store.Store
	Views   *views.Synthesizer
	Booking *booking.Service
	// Assistant is optional; its route answers 503 when nil.
	Assistant *assistant.Handler
	// Health is optional; without it /health only reports the process is up.
	Health         Pinger
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

// Server holds the handlers of the portal API.
type Server struct {
	store     *store.Store
	views     *views.Synthesizer
	booking   *booking.Service
	assistant *assistant.Handler
	health    Pinger
	timeout   time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewServer creates a Server from its dependencies.
func NewServer(d Deps) *Server {
	return &Server{
		store:     d.Store,
		views:     d.Views,
		booking:   d.Booking,
		assistant: d.Assistant,
		health:    d.Health,
		timeout:   d.RequestTimeout,
		now:       time.Now,
		log:       d.Logger.With().Str("component", "api").Logger(),
	}
}

// SetupRoutes configures and returns the HTTP router
func (s *Server) SetupRoutes() *mux.Router {
	r := mux.NewRouter()

	// Add middleware to all routes
	r.Use(metrics.Middleware)
	r.Use(s.requestLogger)
	r.Use(s.timeoutMiddleware)

	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// Raw resource endpoints
	r.HandleFunc("/fhir/{type:[A-Z][A-Za-z]+}", s.createResourceHandler).Methods(http.MethodPost)
	r.HandleFunc("/fhir/{type:[A-Z][A-Za-z]+}/{id}", s.getResourceHandler).Methods(http.MethodGet)
	r.HandleFunc("/fhir/{type:[A-Z][A-Za-z]+}/{id}", s.updateResourceHandler).Methods(http.MethodPut)

	// Appointments
	r.HandleFunc("/appointments", s.bookAppointmentHandler).Methods(http.MethodPost)
	r.HandleFunc("/appointments/{id}", s.getAppointmentHandler).Methods(http.MethodGet)
	r.HandleFunc("/appointments/{id}/status", s.updateAppointmentStatusHandler).Methods(http.MethodPut)

	// Patient screens
	r.HandleFunc("/patients/{id}/appointments", s.patientAppointmentsHandler).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}/prescriptions", s.patientPrescriptionsHandler).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}/reports", s.patientReportsHandler).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}/assistant", s.assistantHandler).Methods(http.MethodPost)

	// Practitioner screens
	r.HandleFunc("/practitioners/{id}/appointments", s.practitionerAppointmentsHandler).Methods(http.MethodGet)
	r.HandleFunc("/practitioners/{id}/prescriptions", s.practitionerPrescriptionsHandler).Methods(http.MethodGet)
	r.HandleFunc("/practitioners/{id}/roster", s.rosterHandler).Methods(http.MethodGet)
	r.HandleFunc("/practitioners/{id}/dashboard", s.dashboardHandler).Methods(http.MethodGet)
	r.HandleFunc("/practitioners/{id}/attendance/{appointmentId}", s.attendanceHandler).Methods(http.MethodGet)

	return r
}

// healthHandler reports liveness and, when configured, backend reachability
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
