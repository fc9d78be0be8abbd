package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/maskstack/pkg/buildinfo"
	"github.com/matzehuels/maskstack/pkg/cohort"
	pkgerrors "github.com/matzehuels/maskstack/pkg/errors"
	"github.com/matzehuels/maskstack/pkg/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			s.respondError(w, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "limit %q is not a positive integer", q))
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	s.respondJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.store.GetRun(r.Context(), chi.URLParam(r, "run"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, rep)
}

func (s *Server) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	rep, err := s.store.GetRun(r.Context(), chi.URLParam(r, "run"))
	if err != nil {
		s.respondError(w, err)
		return
	}

	id := chi.URLParam(r, "patient")
	for _, p := range rep.Patients {
		if p.ID == id {
			s.respondJSON(w, http.StatusOK, p)
			return
		}
	}
	s.respondError(w, pkgerrors.New(pkgerrors.ErrCodeNotFound, "patient %s not in run %s", id, rep.RunID))
}

// compareResponse wraps a combine result with the identity of its inputs.
type compareResponse struct {
	Left   string                `json:"left"`
	Right  string                `json:"right"`
	Op     string                `json:"op"`
	Result *cohort.CombineResult `json:"result"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	left, right := q.Get("left"), q.Get("right")
	if left == "" || right == "" {
		s.respondError(w, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "left and right run parameters are required"))
		return
	}

	opName := q.Get("op")
	if opName == "" {
		opName = "absdiff"
	}
	var op cohort.CombineFunc
	switch opName {
	case "absdiff":
		op = cohort.AbsDiff
	case "ratio":
		op = cohort.Ratio
	default:
		s.respondError(w, pkgerrors.New(pkgerrors.ErrCodeUnsupported, "unknown op %q", opName))
		return
	}

	var opts cohort.CombineOptions
	if zm := q.Get("zeromissing"); zm != "" {
		b, err := strconv.ParseBool(zm)
		if err != nil {
			s.respondError(w, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "zeromissing %q is not a boolean", zm))
			return
		}
		opts.ZeroMissingRight = b
	}

	lrep, err := s.store.GetRun(r.Context(), left)
	if err != nil {
		s.respondError(w, err)
		return
	}
	rrep, err := s.store.GetRun(r.Context(), right)
	if err != nil {
		s.respondError(w, err)
		return
	}

	res := cohort.Combine(lrep.Volumes(), rrep.Volumes(), op, opts)
	s.respondJSON(w, http.StatusOK, compareResponse{Left: left, Right: right, Op: opName, Result: res})
}
