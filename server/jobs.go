package server

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"catalot/lotworker/internal/lot"
)

// Job lifecycle states.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// maxJobs bounds the in-memory job history. Old finished jobs are
// evicted first.
const maxJobs = 512

// Job tracks one async scrape request from submission to completion.
type Job struct {
	ID          string       `json:"job_id"`
	Status      string       `json:"status"`
	URL         string       `json:"url,omitempty"`
	URLs        []string     `json:"urls,omitempty"`
	Result      *lot.Record  `json:"result,omitempty"`
	Results     []lot.Record `json:"results,omitempty"`
	Processed   int          `json:"processed,omitempty"`
	Total       int          `json:"total,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   string       `json:"created_at"`
	CompletedAt string       `json:"completed_at,omitempty"`
}

// snapshot returns a detached copy of the job. Handlers marshal jobs
// outside the store lock while the background runners keep mutating
// them, so readers only ever see snapshots.
func (j *Job) snapshot() *Job {
	c := *j
	if j.URLs != nil {
		c.URLs = append([]string(nil), j.URLs...)
	}
	if j.Results != nil {
		c.Results = append([]lot.Record(nil), j.Results...)
	}
	if j.Result != nil {
		r := *j.Result
		c.Result = &r
	}
	return &c
}

// jobStore is a bounded, concurrency-safe job registry. The LRU cap
// keeps a long-running server from accumulating job history without
// bound.
type jobStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *Job]
}

func newJobStore() *jobStore {
	cache, _ := lru.New[string, *Job](maxJobs)
	return &jobStore{cache: cache}
}

func (s *jobStore) add(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(job.ID, job)
}

func (s *jobStore) get(id string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	return job.snapshot(), true
}

func (s *jobStore) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Remove(id)
}

// list returns jobs filtered by status (empty matches all), newest
// capped at limit.
func (s *jobStore) list(status string, limit int) []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Job
	// Values returns oldest first; walk backwards for newest first.
	values := s.cache.Values()
	for i := len(values) - 1; i >= 0; i-- {
		job := values[i]
		if status != "" && job.Status != status {
			continue
		}
		out = append(out, job.snapshot())
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// countRunning reports how many jobs are currently running.
func (s *jobStore) countRunning() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, job := range s.cache.Values() {
		if job.Status == JobRunning {
			n++
		}
	}
	return n
}

// update applies fn to the job under the store lock.
func (s *jobStore) update(id string, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.cache.Get(id); ok {
		fn(job)
	}
}

func nowStamp() string {
	return time.Now().Format(time.RFC3339)
}
