package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/billing/internal/billing"
	"github.com/JonMunkholm/billing/internal/core"
)

// maxJSONBody bounds create and update payloads.
const maxJSONBody = 1 << 20

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Directory().Users())
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Directory().Projects())
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	recs, err := s.service.List(r.Context(), opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, toRecordResponses(recs))
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	in, err := req.toNewRecord()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rec, err := s.service.CreateManual(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, toRecordResponse(rec))
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, toRecordResponse(rec))
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := req.toPatch()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rec, err := s.service.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, toRecordResponse(rec))
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNotice(w http.ResponseWriter, r *http.Request) {
	text, err := s.service.Notice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"notice": text})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// listOptions reads status, userId, projectId, startDate, endDate and
// search from the query string.
func listOptions(r *http.Request) (core.ListOptions, error) {
	q := r.URL.Query()
	opts := core.ListOptions{
		Filter: billing.Filter{
			UserID:    q.Get("userId"),
			ProjectID: q.Get("projectId"),
			StartDate: q.Get("startDate"),
			EndDate:   q.Get("endDate"),
		},
		Search: q.Get("search"),
	}
	if v := q.Get("status"); v != "" {
		st, ok := billing.ParseStatus(v)
		if !ok {
			return core.ListOptions{}, invalidStatus(v)
		}
		opts.Filter.Status = st
	}
	return opts, nil
}
