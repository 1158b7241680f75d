package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cwbudde/bfgsmin/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	st, err := store.NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	return NewServer(":0", dir, st)
}

// waitForState polls until the job reaches a terminal state or the
// deadline expires.
func waitForState(t *testing.T, s *Server, jobID string, want JobState) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, exists := s.jobManager.GetJob(jobID)
		if exists && job.State == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Job %s did not reach state %s", jobID, want)
	return nil
}

func TestServerCreateJob(t *testing.T) {
	s := newTestServer(t)

	config := RunConfig{Problem: "parabola", MaxIter: 50}
	body, _ := json.Marshal(config)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()

	s.handleCreateJob(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var job Job
	if err := json.NewDecoder(w.Body).Decode(&job); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}

	done := waitForState(t, s, job.ID, StateCompleted)
	if done.StatusText != "Converged" {
		t.Errorf("StatusText = %q, want Converged", done.StatusText)
	}
}

func TestServerCreateJobValidation(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", "{"},
		{"missing problem", `{}`},
		{"unknown problem", `{"problem":"nope"}`},
		{"negative maxiter", `{"problem":"sphere","maxiter":-1}`},
		{"problem and quadratic", `{"problem":"sphere","quadratic":{"a":[[1]],"b":[1]}}`},
		{"ragged quadratic", `{"quadratic":{"a":[[1,0]],"b":[1,2]}}`},
		{"asymmetric quadratic", `{"quadratic":{"a":[[1,2],[0,1]],"b":[1,2]}}`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader([]byte(tc.body)))
		w := httptest.NewRecorder()
		s.handleCreateJob(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, w.Code)
		}
	}
}

func TestServerCreateInlineQuadraticJob(t *testing.T) {
	s := newTestServer(t)

	config := RunConfig{
		Quadratic: &store.QuadraticSpec{
			A: [][]float64{{2, 0}, {0, 2}},
			B: []float64{4, -2},
		},
		MaxIter: 100,
	}
	body, _ := json.Marshal(config)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.handleCreateJob(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var job Job
	json.NewDecoder(w.Body).Decode(&job)
	done := waitForState(t, s, job.ID, StateCompleted)
	if done.StatusText != "Converged" {
		t.Errorf("StatusText = %q, want Converged", done.StatusText)
	}
	// 2x = (4,-2) has the minimizer (2,-1).
	want := []float64{2, -1}
	for i, wv := range want {
		if done.X[i] < wv-1e-4 || done.X[i] > wv+1e-4 {
			t.Errorf("x[%d] = %v, want approximately %v", i, done.X[i], wv)
		}
	}
}

func TestServerListJobs(t *testing.T) {
	s := newTestServer(t)

	s.jobManager.CreateJob(RunConfig{Problem: "sphere"})
	s.jobManager.CreateJob(RunConfig{Problem: "rosenbrock"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()
	s.handleListJobs(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var jobs []Job
	if err := json.NewDecoder(w.Body).Decode(&jobs); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("Expected 2 jobs, got %d", len(jobs))
	}
}

func TestServerJobStatus(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	config := RunConfig{Problem: "quadratic", MaxIter: 100}
	body, _ := json.Marshal(config)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var job Job
	json.NewDecoder(w.Body).Decode(&job)
	waitForState(t, s, job.ID, StateCompleted)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/status", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var status map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if status["statusText"] != "Converged" {
		t.Errorf("statusText = %v, want Converged", status["statusText"])
	}
	x, ok := status["x"].([]interface{})
	if !ok || len(x) != 2 {
		t.Fatalf("x = %v, want 2-vector", status["x"])
	}
}

func TestServerJobNotFound(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	for _, path := range []string{
		"/api/v1/jobs/missing",
		"/api/v1/jobs/missing/status",
		"/api/v1/jobs/missing/trace",
		"/api/v1/jobs/missing/stream",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, w.Code)
		}
	}
}

func TestServerJobTrace(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	config := RunConfig{Problem: "parabola", MaxIter: 50}
	body, _ := json.Marshal(config)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var job Job
	json.NewDecoder(w.Body).Decode(&job)
	done := waitForState(t, s, job.ID, StateCompleted)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/trace", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var entries []store.TraceEntry
	if err := json.NewDecoder(w.Body).Decode(&entries); err != nil {
		t.Fatalf("Failed to decode trace: %v", err)
	}
	if len(entries) != done.Iterations+1 {
		t.Errorf("Trace has %d entries, want %d", len(entries), done.Iterations+1)
	}
	if entries[0].ValueChange != nil {
		t.Error("Initial trace entry should have no value change")
	}
}

func TestServerCancelUnknownJob(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/missing", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestServerCancelFinishedJob(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	config := RunConfig{Problem: "sphere", MaxIter: 100}
	body, _ := json.Marshal(config)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var job Job
	json.NewDecoder(w.Body).Decode(&job)
	waitForState(t, s, job.ID, StateCompleted)

	// The worker released its cancel function on completion.
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/"+job.ID, nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for finished job, got %d", w.Code)
	}
}

func TestServerProblems(t *testing.T) {
	s := newTestServer(t)
	handler := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/problems", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var names []string
	if err := json.NewDecoder(w.Body).Decode(&names); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(names) == 0 {
		t.Error("Expected at least one problem")
	}
}

func TestEventBroadcaster(t *testing.T) {
	eb := NewEventBroadcaster()

	ch := eb.Subscribe("job-1")
	eb.Broadcast(ProgressEvent{JobID: "job-1", Iteration: 1, Value: 0.5})

	select {
	case event := <-ch:
		if event.Iteration != 1 || event.Value != 0.5 {
			t.Errorf("Unexpected event: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("No event received")
	}

	// A late subscriber gets the last event replayed.
	late := eb.Subscribe("job-1")
	select {
	case event := <-late:
		if event.Iteration != 1 {
			t.Errorf("Replayed event iteration = %d, want 1", event.Iteration)
		}
	case <-time.After(time.Second):
		t.Fatal("No replayed event")
	}

	eb.Unsubscribe("job-1", ch)
	eb.Unsubscribe("job-1", late)
	eb.CleanupJob("job-1")
}
