package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docdiff/internal/parser"
	"github.com/dgallion1/docdiff/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// upload is one file read from a multipart form.
type upload struct {
	filename string
	data     []byte
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	// Limit total request size: two files plus 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	from, status, err := s.readUpload(r, "from")
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}
	to, status, err := s.readUpload(r, "to")
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}

	job := pipeline.NewJob(from.filename, from.data, to.filename, to.data)
	for _, name := range strings.Split(r.FormValue("ignored_attributes"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			job.IgnoredAttributes = append(job.IgnoredAttributes, name)
		}
	}

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/diff/jobs/%s", job.ID),
	})
}

// readUpload reads the named form file, returning an HTTP status alongside any error.
func (s *Server) readUpload(r *http.Request, field string) (upload, int, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return upload{}, http.StatusBadRequest, fmt.Errorf("%s file is required: %w", field, err)
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		return upload{}, http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return upload{}, http.StatusInternalServerError, fmt.Errorf("failed to read %s file", field)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return upload{}, http.StatusRequestEntityTooLarge, fmt.Errorf("%s file exceeds max size (%d bytes)", field, s.cfg.MaxUploadBytes)
	}
	return upload{filename: filename, data: data}, 0, nil
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
