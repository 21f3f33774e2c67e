package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dgallion1/docdiff/internal/marksync"
	"github.com/dgallion1/docdiff/internal/patch"
	"github.com/dgallion1/docdiff/internal/treediff"
)

type diffRequest struct {
	From              string   `json:"from"`
	To                string   `json:"to"`
	IgnoredAttributes []string `json:"ignored_attributes,omitempty"`
}

type diffResponse struct {
	Patches   []patch.View `json:"patches"`
	Truncated bool         `json:"truncated"`
}

type syncRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.cfg.MaxUploadBytes)

	var req diffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}

	opts := s.orchestrator.Options()
	if len(req.IgnoredAttributes) > 0 {
		opts = opts.Merge(req.IgnoredAttributes...)
	}

	start := time.Now()
	res, err := treediff.DiffMarkup(req.From, req.To, opts)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if window := s.orchestrator.Stats(); window != nil {
		window.Record(time.Since(start), len(res.Patches))
	}
	if res.Truncated {
		s.log.Warn("diff truncated", "max_depth", opts.MaxDepth)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(diffResponse{
		Patches:   patch.Encode(res.Patches),
		Truncated: res.Truncated,
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.cfg.MaxUploadBytes)

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := marksync.Sync(req.Source, req.Destination)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"result": result})
}
