package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/docdiff/internal/patch"
	"github.com/google/uuid"
)

// JobStatus represents the state of a diff job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusParsing   JobStatus = "parsing"
	StatusDiffing   JobStatus = "diffing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Document is one side of a diff job.
type Document struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Hash     string `json:"content_hash,omitempty"`

	data []byte
}

// Job tracks the state of a single two-document diff.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	From Document `json:"from"`
	To   Document `json:"to"`

	IgnoredAttributes []string `json:"ignored_attributes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	patches   []patch.View
	truncated bool
	errors    []string
}

// NewJob creates a queued job comparing from with to.
func NewJob(fromName string, fromData []byte, toName string, toData []byte) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		From:      Document{Filename: fromName, data: fromData},
		To:        Document{Filename: toName, data: toData},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetTitles records the titles the parsers found.
func (j *Job) SetTitles(from, to string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.From.Title = from
	j.To.Title = to
	j.UpdatedAt = time.Now()
}

// SetResult stores the encoded patches of a finished diff.
func (j *Job) SetResult(patches []patch.View, truncated bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.patches = patches
	j.truncated = truncated
	j.UpdatedAt = time.Now()
}

// Data returns the raw bytes of both documents.
func (j *Job) Data() (from, to []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.From.data, j.To.data
}

// ReleaseData drops the uploaded bytes once they are no longer needed, recording
// their content hashes first.
func (j *Job) ReleaseData() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.From.data != nil {
		j.From.Hash = ContentHashHex(j.From.data)
	}
	if j.To.data != nil {
		j.To.Hash = ContentHashHex(j.To.data)
	}
	j.From.data = nil
	j.To.data = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string       `json:"job_id"`
	Status    JobStatus    `json:"status"`
	Phase     string       `json:"phase"`
	From      Document     `json:"from"`
	To        Document     `json:"to"`
	Patches   []patch.View `json:"patches"`
	Truncated bool         `json:"truncated"`
	Errors    []string     `json:"errors"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.errors...)
	patches := append([]patch.View{}, j.patches...)
	return JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Phase:     j.Phase,
		From:      j.From,
		To:        j.To,
		Patches:   patches,
		Truncated: j.truncated,
		Errors:    errs,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
