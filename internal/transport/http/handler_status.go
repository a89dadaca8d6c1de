package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"broadside/internal/app/status"
)

type StatusHandlers struct {
	svc *status.Service
}

func NewStatusHandlers(svc *status.Service) *StatusHandlers {
	return &StatusHandlers{svc: svc}
}

func (h *StatusHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		metricHealthChecks.Add(1)
		writeJSON(w, http.StatusOK, h.svc.Health())
	}
}

func (h *StatusHandlers) DebugState() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp, err := h.svc.DebugState()
		if errors.Is(err, status.ErrDebugDisabled) {
			WriteHTTPError(w, http.StatusNotFound, "not_found")
			return
		}
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
