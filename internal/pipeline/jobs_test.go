package pipeline

import (
	"testing"
	"time"

	"github.com/dgallion1/docdiff/internal/patch"
	"github.com/google/uuid"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_EmptyInput(t *testing.T) {
	h := ContentHashHex([]byte{})
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if h != want {
		t.Errorf("expected hash %q, got %q", want, h)
	}
}

func TestNewJob(t *testing.T) {
	job := NewJob("a.html", []byte("<p>a</p>"), "b.md", []byte("b"))
	if _, err := uuid.Parse(job.ID); err != nil {
		t.Errorf("expected uuid job id, got %q: %v", job.ID, err)
	}
	if job.Status != StatusQueued || job.Phase != "queued" {
		t.Errorf("expected queued job, got %s/%s", job.Status, job.Phase)
	}
	from, to := job.Data()
	if string(from) != "<p>a</p>" || string(to) != "b" {
		t.Errorf("unexpected data %q %q", from, to)
	}

	other := NewJob("a.html", nil, "b.html", nil)
	if other.ID == job.ID {
		t.Error("expected distinct job ids")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob("a.html", nil, "b.html", nil)

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing"},
		{StatusDiffing, "diffing"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("parse a.pdf: broken")
	job.AddError("second")

	snap := job.Snapshot()
	if len(snap.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Errors))
	}
	if snap.Errors[0] != "parse a.pdf: broken" {
		t.Errorf("unexpected first error %q", snap.Errors[0])
	}
}

func TestJob_SnapshotSlicesNotNil(t *testing.T) {
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Errors == nil || snap.Patches == nil {
		t.Error("expected non-nil slices in snapshot")
	}
}

func TestJob_SetResult(t *testing.T) {
	job := &Job{ID: "result-test"}
	job.SetResult([]patch.View{{Action: patch.AddElement, Path: []int{0}}}, true)

	snap := job.Snapshot()
	if len(snap.Patches) != 1 || snap.Patches[0].Action != patch.AddElement {
		t.Errorf("unexpected patches %+v", snap.Patches)
	}
	if !snap.Truncated {
		t.Error("expected truncated flag")
	}
}

func TestJob_ReleaseDataRecordsHashes(t *testing.T) {
	job := NewJob("a.txt", []byte("hello world"), "b.txt", []byte{})
	job.ReleaseData()

	from, to := job.Data()
	if from != nil || to != nil {
		t.Error("expected data to be released")
	}
	snap := job.Snapshot()
	if snap.From.Hash != "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" {
		t.Errorf("unexpected from hash %q", snap.From.Hash)
	}
	if snap.To.Hash != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("unexpected to hash %q", snap.To.Hash)
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 job, got %d", store.Len())
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(time.Minute)

	store.Put(&Job{ID: "old", UpdatedAt: time.Now().Add(-time.Hour)})
	store.Put(&Job{ID: "new", UpdatedAt: time.Now()})

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}
