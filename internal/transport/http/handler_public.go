package httptransport

import (
	"errors"
	"net/http"

	apppublic "broadside/internal/app/public"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type PublicHandlers struct {
	svc *apppublic.Service
}

func NewPublicHandlers(svc *apppublic.Service) *PublicHandlers {
	return &PublicHandlers{svc: svc}
}

func (h *PublicHandlers) Matches() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricHistoryQueries.Add(1)
		resp, err := h.svc.Matches(r.Context(), ParseLimit(r, 0))
		if err != nil {
			writeHistoryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *PublicHandlers) Match() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricHistoryQueries.Add(1)
		resp, err := h.svc.Match(r.Context(), chi.URLParam(r, "match_id"))
		if err != nil {
			writeHistoryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeHistoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apppublic.ErrInvalidRequest):
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, apppublic.ErrMatchNotFound):
		WriteHTTPError(w, http.StatusNotFound, "match_not_found")
	case errors.Is(err, apppublic.ErrHistoryUnavailable):
		WriteHTTPError(w, http.StatusServiceUnavailable, "history_unavailable")
	default:
		metricHistoryErrors.Add(1)
		log.Error().Err(err).Msg("history_query_failed")
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}
