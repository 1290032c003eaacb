package httpadapter

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
)

func (rt *Router) uploadBatch(w http.ResponseWriter, r *http.Request) {
	if rt.cfg.UploadMaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.UploadMaxBytes)
	}
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		if status := mapErrorToHTTPStatus(err); status == http.StatusRequestEntityTooLarge {
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	query := r.URL.Query()
	source := domain.DataSource(strings.ToUpper(strings.TrimSpace(query.Get("source"))))
	if source != "" && !source.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "source must be KEPLER, K2 or TESS"})
		return
	}
	identity := identityFromContext(r.Context())

	if flag(query.Get("async")) {
		if rt.deps.Scheduler == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "async batches are not enabled"})
			return
		}
		job, err := rt.deps.Scheduler.Schedule(r.Context(), identity, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file, source)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"job_id": job.ID, "status": job.Status})
		return
	}

	session := rt.resolveSession(w, r)
	opts := domain.BatchOptions{Persist: flag(query.Get("persist")), Source: source}
	report, err := rt.deps.Batches.IngestUpload(r.Context(), session, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file, opts)
	if err != nil {
		if report != nil {
			writeJSON(w, mapErrorToHTTPStatus(err), map[string]any{"error": err.Error(), "report": report})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) getBatchJob(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Scheduler == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "batch job not found"})
		return
	}
	id := mux.Vars(r)["id"]
	job, err := rt.deps.Scheduler.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if job.UserID != "" && job.UserID != identityFromContext(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "batch job not found"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func flag(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}
