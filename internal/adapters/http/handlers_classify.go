package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
	"github.com/kirillkom/exoplanet-triage/internal/infrastructure/extractor/tabular"
)

const sessionHeader = "X-Session-Id"

// resolveSession returns the caller's session, creating one when the header is
// missing, unknown, or belongs to another identity.
func (rt *Router) resolveSession(w http.ResponseWriter, r *http.Request) *domain.Session {
	identity := identityFromContext(r.Context())
	id := strings.TrimSpace(r.Header.Get(sessionHeader))
	if id != "" {
		if session, ok := rt.deps.Sessions.Get(id); ok && session.Identity == identity {
			w.Header().Set(sessionHeader, session.ID)
			return session
		}
	}
	session := rt.deps.Sessions.Create(identity)
	w.Header().Set(sessionHeader, session.ID)
	return session
}

func (rt *Router) createSession(w http.ResponseWriter, r *http.Request) {
	session := rt.deps.Sessions.Create(identityFromContext(r.Context()))
	w.Header().Set(sessionHeader, session.ID)
	writeJSON(w, http.StatusCreated, map[string]string{"id": session.ID})
}

type classifyRequest struct {
	Features *domain.FeatureRecord `json:"features"`
	Form     string                `json:"form"`
	Manual   map[string]string     `json:"manual"`
}

func (req classifyRequest) record() (domain.FeatureRecord, error) {
	switch {
	case req.Features != nil && req.Manual != nil:
		return domain.FeatureRecord{}, domain.WrapError(domain.ErrInvalidInput, "classify request", errors.New("send either features or manual, not both"))
	case req.Features != nil:
		return *req.Features, nil
	case req.Manual != nil:
		return tabular.ManualRecord(tabular.FormByName(req.Form), req.Manual), nil
	default:
		return domain.FeatureRecord{}, domain.WrapError(domain.ErrInvalidInput, "classify request", errors.New("features or manual is required"))
	}
}

func (rt *Router) classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	record, err := req.record()
	if err != nil {
		writeError(w, err)
		return
	}

	session := rt.resolveSession(w, r)
	entry, err := rt.deps.Classifier.Classify(r.Context(), session, record)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (rt *Router) history(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.Header.Get(sessionHeader))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "X-Session-Id header is required"})
		return
	}
	session, ok := rt.deps.Sessions.Get(id)
	if !ok || session.Identity != identityFromContext(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": session.ID,
		"entries":    session.Ledger.Entries(),
	})
}
