package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"brightward.com/patients-api/internal/metrics"
)

// SetupRoutes configures the HTTP router with the metrics middleware and
// a CORS policy restricted to the configured frontend origin.
func SetupRoutes(h *Handlers, frontendURL string) http.Handler {
	r := mux.NewRouter()

	r.Use(metrics.Middleware)

	r.HandleFunc("/", h.Index).Methods("GET")
	r.HandleFunc("/about", h.About).Methods("GET")
	r.HandleFunc("/health", h.Health).Methods("GET")

	r.HandleFunc("/view", h.View).Methods("GET")
	r.HandleFunc("/patient/id/{pid}", h.PatientByID).Methods("GET")
	r.HandleFunc("/patients/name", h.PatientsByName).Methods("GET")
	r.HandleFunc("/patients/sort", h.SortPatients).Methods("GET")

	r.HandleFunc("/new-patient", h.NewPatient).Methods("POST")
	r.HandleFunc("/update-patient", h.UpdatePatient).Methods("PUT")
	r.HandleFunc("/delete-patient/{pid}", h.DeletePatient).Methods("DELETE")

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{frontendURL}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.AllowCredentials(),
	)
	return cors(r)
}
