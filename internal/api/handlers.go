package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"brightward.com/patients-api/internal/dal"
	"brightward.com/patients-api/internal/metrics"
	"brightward.com/patients-api/internal/model"
)

// Handlers holds the access layer and timezone injected at startup.
// Each request is handled independently; the only shared state is the
// store handle inside the Directory, which is never reassigned.
type Handlers struct {
	dir dal.Directory
	loc *time.Location
}

// NewHandlers wires the HTTP boundary to an access layer.
func NewHandlers(dir dal.Directory, loc *time.Location) *Handlers {
	return &Handlers{dir: dir, loc: loc}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Index returns the service banner.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Patient Management System 🏥"})
}

// About describes the service.
func (h *Handlers) About(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "This is a microservice for managing patient records."})
}

// Health reports liveness and the current time in the configured zone.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "Healthy",
		Time:   time.Now().In(h.loc).Format(time.RFC3339),
	})
}

// View lists every record, with a trailing count marker.
func (h *Handlers) View(w http.ResponseWriter, r *http.Request) {
	docs, err := h.dir.All(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch patient records")
		metrics.RecordPatientOp("view", "store_error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch patient records."})
		return
	}

	if len(docs) == 0 {
		writeJSON(w, http.StatusOK, messageResponse{Message: "No patient records found."})
		return
	}

	payload := make([]any, 0, len(docs)+1)
	for _, doc := range docs {
		payload = append(payload, doc)
	}
	payload = append(payload, map[string]int{"Number of patients": len(docs)})

	metrics.RecordPatientOp("view", "success")
	writeJSON(w, http.StatusOK, payload)
}

// PatientByID looks up a single record by pid.
func (h *Handlers) PatientByID(w http.ResponseWriter, r *http.Request) {
	pid := mux.Vars(r)["pid"]

	doc, err := h.dir.ByID(r.Context(), pid)
	if errors.Is(err, dal.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("Patient with ID : '%s' not found.", pid)})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("pid", pid).Msg("Failed to fetch patient record")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch patient record."})
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// PatientsByName looks up records by exact name match; names are not
// unique, so the result is always an array.
func (h *Handlers) PatientsByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("patient_name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing 'patient_name' query parameter."})
		return
	}

	docs, err := h.dir.ByName(r.Context(), name)
	if err != nil {
		log.Error().Err(err).Str("name", name).Msg("Failed to fetch patient records by name")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch patient record(s)."})
		return
	}

	if len(docs) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("Patient(s) with name : '%s' not found.", name)})
		return
	}

	writeJSON(w, http.StatusOK, docs)
}

// SortPatients returns all records ordered by one of the sortable
// fields.
func (h *Handlers) SortPatients(w http.ResponseWriter, r *http.Request) {
	sortBy := r.URL.Query().Get("sort_by")
	if !isSortable(sortBy) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid sorting field. Select from height, weight, bmi."})
		return
	}

	order := r.URL.Query().Get("order")
	if order == "" {
		order = "asc"
	}
	if order != "asc" && order != "desc" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid sorting order. Select either 'asc' or 'desc'."})
		return
	}

	docs, err := h.dir.SortBy(r.Context(), sortBy, order == "desc")
	if err != nil {
		log.Error().Err(err).Str("sort_by", sortBy).Msg("Failed to fetch sorted patient records")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch patient records."})
		return
	}

	if len(docs) == 0 {
		writeJSON(w, http.StatusOK, messageResponse{Message: "No patient records found."})
		return
	}

	writeJSON(w, http.StatusOK, docs)
}

// NewPatient allocates the next pid, validates the record and inserts
// it.
func (h *Handlers) NewPatient(w http.ResponseWriter, r *http.Request) {
	npid, err := h.dir.NextID(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to allocate patient id")
		metrics.RecordPatientOp("create", "store_error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Could not generate a new patient ID."})
		return
	}

	var in model.PatientInput
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		metrics.RecordPatientOp("create", "validation_failed")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON format."})
		return
	}
	in.PID = npid.String()

	patient, err := model.NewPatient(in, time.Now().In(h.loc))
	if err != nil {
		metrics.RecordPatientOp("create", "validation_failed")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("Error : %v", err)})
		return
	}

	if _, err := h.dir.Create(r.Context(), patient); err != nil {
		if errors.Is(err, dal.ErrDuplicateID) {
			// Lost the allocation race to a concurrent create.
			metrics.RecordPatientOp("create", "duplicate_id")
		} else {
			metrics.RecordPatientOp("create", "store_error")
		}
		log.Error().Err(err).Str("pid", patient.PID).Msg("Failed to add patient record")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to add patient record."})
		return
	}

	log.Info().Str("pid", patient.PID).Msg("Patient record added")
	metrics.RecordPatientOp("create", "success")
	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Patient record added successfully. [PID : %s]", patient.PID)})
}

// UpdatePatient applies a sparse patch to the record matching the pid in
// the request body. A patch that changes nothing still succeeds and
// returns the unchanged record.
func (h *Handlers) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: fmt.Sprintf("Error : %v", err)})
		return
	}

	pid, patch, err := model.ParsePatch(body)
	if err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			metrics.RecordPatientOp("update", "validation_failed")
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("Error : %v", ve)})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON format."})
		return
	}

	if pid == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing 'pid' value in request."})
		return
	}

	doc, err := h.dir.Update(r.Context(), pid, patch)
	switch {
	case errors.Is(err, dal.ErrNotFound):
		metrics.RecordPatientOp("update", "not_found")
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("Patient with ID : '%s' not found.", pid)})
		return
	case errors.Is(err, dal.ErrNoOpUpdate):
		metrics.RecordPatientOp("update", "noop")
	case err != nil:
		log.Error().Err(err).Str("pid", pid).Msg("Failed to update patient record")
		metrics.RecordPatientOp("update", "store_error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to update patient record."})
		return
	default:
		metrics.RecordPatientOp("update", "success")
	}

	log.Info().Str("pid", pid).Msg("Patient record updated")
	writeJSON(w, http.StatusOK, updateResponse{
		Message:       fmt.Sprintf("Patient record [%s] updated.", pid),
		UpdatedRecord: doc,
	})
}

// DeletePatient removes the record matching pid.
func (h *Handlers) DeletePatient(w http.ResponseWriter, r *http.Request) {
	pid := mux.Vars(r)["pid"]

	err := h.dir.Delete(r.Context(), pid)
	if errors.Is(err, dal.ErrNotFound) {
		metrics.RecordPatientOp("delete", "not_found")
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("Patient with ID : '%s' not found.", pid)})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("pid", pid).Msg("Failed to delete patient record")
		metrics.RecordPatientOp("delete", "store_error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to delete patient record."})
		return
	}

	log.Info().Str("pid", pid).Msg("Patient record deleted")
	metrics.RecordPatientOp("delete", "success")
	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Patient record [%s] has been deleted.", pid)})
}
