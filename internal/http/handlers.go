package http

import (
	"errors"
	"net/http"

	"budgetboard/internal/core"
	"budgetboard/internal/ledger"
	"budgetboard/internal/ledger/csvfile"
	"budgetboard/internal/log"
	"budgetboard/internal/service"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once a bundle has been published.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.dashboard.Current(); !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.dashboard.Current()
	if !ok {
		s.writeNotReady(w, r)
		return
	}
	writeJSON(w, r, http.StatusOK, newDashboardResponse(snap, s.dashboard.LastError()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.dashboard.Refresh(r.Context(), service.TriggerHTTP)
	if err != nil {
		logger := log.FromContext(r.Context())
		switch {
		case errors.Is(err, core.ErrMalformedRecord):
			logger.WarnContext(r.Context(), "Refresh rejected malformed ledger", log.FieldError, err.Error())
			writeRecordError(w, r, err)
		case r.Context().Err() != nil:
			// Client went away; nothing useful to send.
		default:
			logger.ErrorContext(r.Context(), "Refresh failed",
				log.NewFields().WithOperation(log.OpRefresh).WithError(err).ToSlice()...)
			writeError(w, r, http.StatusServiceUnavailable, "ledger unavailable: "+err.Error())
		}
		return
	}
	writeJSON(w, r, http.StatusOK, newDashboardResponse(snap, nil))
}

func (s *Server) handleWhatIf(w http.ResponseWriter, r *http.Request) {
	budget, err := parseBudget(r, s.dashboard.Budget())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.dashboard.WhatIf(r.Context(), budget)
	switch {
	case errors.Is(err, service.ErrNotReady):
		s.writeNotReady(w, r)
		return
	case errors.Is(err, core.ErrInvalidBudgetConfig):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "What-if computation failed",
			log.NewFields().WithOperation(log.OpWhatIf).WithBudget(budget.Ideal, budget.Max).WithError(err).ToSlice()...)
		writeError(w, r, http.StatusInternalServerError, "what-if computation failed")
		return
	}

	writeJSON(w, r, http.StatusOK, newDashboardResponse(snap, nil))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if !s.dashboard.Writable() {
		writeReadOnly(w, r)
		return
	}
	req, err := decodeTransaction(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ref, err := s.dashboard.Add(r.Context(), req.record())
	switch {
	case errors.Is(err, core.ErrMalformedRecord):
		writeRecordError(w, r, err)
		return
	case errors.Is(err, ledger.ErrReadOnly):
		writeReadOnly(w, r)
		return
	case err != nil:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Transaction append failed",
			log.NewFields().WithOperation(log.OpAppend).WithError(err).ToSlice()...)
		writeError(w, r, http.StatusBadGateway, "failed to store transaction")
		return
	}

	snap, _ := s.dashboard.Current()
	writeJSON(w, r, http.StatusCreated, map[string]any{
		"ref":        ref,
		"generation": snap.Generation,
	})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if !s.dashboard.Writable() {
		writeReadOnly(w, r)
		return
	}
	if !isCSV(r) {
		writeError(w, r, http.StatusUnsupportedMediaType, "expected text/csv body")
		return
	}

	records, err := csvfile.Read(r.Context(), importBody(w, r))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(records) == 0 {
		writeError(w, r, http.StatusBadRequest, "no transactions in upload")
		return
	}

	n, err := s.dashboard.Import(r.Context(), records)
	switch {
	case errors.Is(err, core.ErrMalformedRecord):
		writeRecordError(w, r, err)
		return
	case errors.Is(err, ledger.ErrReadOnly):
		writeReadOnly(w, r)
		return
	case err != nil:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Transaction import failed",
			log.NewFields().WithOperation(log.OpImport).WithError(err).ToSlice()...)
		writeError(w, r, http.StatusBadGateway, "failed to import transactions")
		return
	}

	snap, _ := s.dashboard.Current()
	writeJSON(w, r, http.StatusCreated, map[string]any{
		"imported":   n,
		"generation": snap.Generation,
	})
}

func (s *Server) writeNotReady(w http.ResponseWriter, r *http.Request) {
	msg := service.ErrNotReady.Error()
	if err := s.dashboard.LastError(); err != nil {
		msg += ": " + err.Error()
	}
	w.Header().Set("Retry-After", "5")
	writeError(w, r, http.StatusServiceUnavailable, msg)
}

func writeReadOnly(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET, HEAD")
	writeError(w, r, http.StatusMethodNotAllowed, ledger.ErrReadOnly.Error())
}
