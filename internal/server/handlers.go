package server

import (
	"errors"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"ghostbuild/internal/build"
	"ghostbuild/internal/data"
	"ghostbuild/internal/db"
	"ghostbuild/internal/loader"
	"ghostbuild/internal/pipeline"
)

// maxBodyBytes caps inline table uploads
const maxBodyBytes = 8 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps pipeline errors to HTTP codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrEmptyWinning), errors.Is(err, pipeline.ErrEmptySets):
		return http.StatusUnprocessableEntity
	case errors.Is(err, data.ErrSnapshotNotFound), errors.Is(err, db.ErrNoStats), errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) options(r *http.Request) pipeline.Options {
	opts := s.cfg.Options
	if v := r.URL.Query().Get("explain"); v != "" {
		opts.Engine.Explain, _ = strconv.ParseBool(v)
	}
	return opts
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Snapshots == nil {
		writeJSON(w, http.StatusOK, []data.SnapshotInfo{})
		return
	}
	list, err := s.cfg.Snapshots.ListSnapshots(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []data.SnapshotInfo{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	key := s.key(chi.URLParam(r, "champion"), r)
	rec, err := pipeline.Run(r.Context(), s.cfg.Source, key, s.options(r))
	if err != nil {
		s.log.Warn().Err(err).Str("key", key.Base()).Msg("build request failed")
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// inlineRequest carries both tables in the body
type inlineRequest struct {
	Champion string              `json:"champion"`
	Mode     string              `json:"mode"`
	Tier     string              `json:"tier"`
	Window   string              `json:"window"`
	Explain  bool                `json:"explain"`
	Winning  []build.WinningItem `json:"winning"`
	Sets     []build.BuiltSet    `json:"sets"`
}

type inlineResponse struct {
	*pipeline.Record
	Reports loader.Reports `json:"reports"`
}

func (s *Server) handleInlineBuild(w http.ResponseWriter, r *http.Request) {
	var req inlineRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	key := pipeline.Key{Champion: req.Champion, Mode: s.cfg.Mode, Tier: s.cfg.Tier, Window: s.cfg.Window}
	if req.Mode != "" {
		key.Mode = req.Mode
	}
	if req.Tier != "" {
		key.Tier = req.Tier
	}
	if req.Window != "" {
		key.Window = req.Window
	}

	winning, sets, reports := s.loader.Clean(req.Winning, req.Sets)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordReports(reports)
	}

	opts := s.options(r)
	opts.Engine.Explain = opts.Engine.Explain || req.Explain
	rec, err := pipeline.Recommend(key, pipeline.Tables{Winning: winning, Sets: sets, Source: "inline"}, opts)
	if err != nil {
		writeJSON(w, statusFor(err), struct {
			errorResponse
			Reports loader.Reports `json:"reports"`
		}{errorResponse{err.Error()}, reports})
		return
	}
	writeJSON(w, http.StatusOK, inlineResponse{Record: rec, Reports: reports})
}
