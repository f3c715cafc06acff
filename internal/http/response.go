package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"budgetboard/internal/core"
	"budgetboard/internal/log"
	"budgetboard/internal/middleware/trace"
	"budgetboard/internal/service"
	"budgetboard/internal/view"
)

// dashboardResponse is the chart-ready view plus the snapshot it came from.
type dashboardResponse struct {
	view.Dashboard
	Generation uint64    `json:"generation"`
	ComputedAt time.Time `json:"computed_at"`
	// LastError is set when the latest recomputation failed and the figures
	// are from an older snapshot.
	LastError string `json:"last_error,omitempty"`
}

type errorResponse struct {
	Error     string        `json:"error"`
	RequestID string        `json:"request_id,omitempty"`
	Record    *recordDetail `json:"record,omitempty"`
}

type recordDetail struct {
	Row   int    `json:"row"`
	Field string `json:"field"`
	Value string `json:"value"`
}

func newDashboardResponse(snap service.Snapshot, lastErr error) dashboardResponse {
	resp := dashboardResponse{
		Dashboard:  view.FromBundle(snap.Bundle),
		Generation: snap.Generation,
		ComputedAt: snap.ComputedAt.UTC(),
	}
	if lastErr != nil {
		resp.LastError = lastErr.Error()
	}
	return resp
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response", log.FieldError, err.Error())
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg, RequestID: trace.GetRequestID(r.Context())})
}

// writeRecordError reports which record and field failed validation.
func writeRecordError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error(), RequestID: trace.GetRequestID(r.Context())}
	var rerr *core.RecordError
	if errors.As(err, &rerr) {
		resp.Record = &recordDetail{Row: rerr.Row, Field: rerr.Field, Value: rerr.Value}
	}
	writeJSON(w, r, http.StatusUnprocessableEntity, resp)
}
