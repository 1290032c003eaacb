package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
)

func (rt *Router) createPrediction(w http.ResponseWriter, r *http.Request) {
	var p domain.Prediction
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	id, err := rt.deps.Predictions.Create(r.Context(), identityFromContext(r.Context()), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (rt *Router) batchCreatePredictions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Predictions []domain.Prediction `json:"predictions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ids, err := rt.deps.Predictions.BatchCreate(r.Context(), identityFromContext(r.Context()), req.Predictions)
	if err != nil {
		payload := map[string]any{"error": err.Error()}
		if len(ids) > 0 {
			payload["ids"] = ids
		}
		writeJSON(w, mapErrorToHTTPStatus(err), payload)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ids": ids})
}

func (rt *Router) listPredictions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	out, err := rt.deps.Predictions.List(r.Context(), identityFromContext(r.Context()), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (rt *Router) predictionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.deps.Stats.Stats(r.Context(), identityFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) latestModelMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := rt.deps.ModelMetrics.Latest(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (rt *Router) listModelMetrics(w http.ResponseWriter, r *http.Request) {
	out, err := rt.deps.ModelMetrics.All(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// recordModelMetrics is restricted to authenticated callers.
func (rt *Router) recordModelMetrics(w http.ResponseWriter, r *http.Request) {
	if identityFromContext(r.Context()) == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	var m domain.ModelMetrics
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	id, err := rt.deps.ModelMetrics.Record(r.Context(), m)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}
