// Package server exposes the scraper over HTTP for workflow engines.
// Jobs submitted through the async endpoints run in the background and
// are polled through /job/{id}.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"catalot/lotworker/internal/crawl"
	"catalot/lotworker/internal/fetch"
	"catalot/lotworker/internal/lot"
	"catalot/lotworker/internal/metrics"
	"catalot/lotworker/logger"
	"catalot/lotworker/pipeline"
)

// batchLimit caps the number of URLs accepted in one batch request.
const batchLimit = 100

// Server wires the assembler and job store behind an HTTP API.
type Server struct {
	assembler crawl.Assembler
	metrics   *metrics.Metrics
	jobs      *jobStore
	itemDelay time.Duration
	outputDir string
	log       *logger.Logger
}

// New creates a server around the given assembler.
func New(assembler crawl.Assembler, m *metrics.Metrics, itemDelay time.Duration, outputDir string) *Server {
	return &Server{
		assembler: assembler,
		metrics:   m,
		jobs:      newJobStore(),
		itemDelay: itemDelay,
		outputDir: outputDir,
		log:       logger.ForServer(),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /scrape", s.handleScrape)
	mux.HandleFunc("POST /scrape-async", s.handleScrapeAsync)
	mux.HandleFunc("POST /scrape-batch", s.handleScrapeBatch)
	mux.HandleFunc("GET /job/{id}", s.handleJobStatus)
	mux.HandleFunc("GET /jobs", s.handleListJobs)
	mux.HandleFunc("DELETE /job/{id}", s.handleDeleteJob)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}
	return mux
}

// ListenAndServe blocks serving the API until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("port", port).Msg("API server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

type scrapeRequest struct {
	URL     string `json:"url"`
	SaveCSV bool   `json:"save_csv"`
}

type batchScrapeRequest struct {
	URLs    []string `json:"urls"`
	SaveCSV bool     `json:"save_csv"`
}

type scrapeResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	JobID   string      `json:"job_id,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "lotworker",
		"status":  "running",
		"endpoints": map[string]string{
			"scrape":       "POST /scrape",
			"scrape_async": "POST /scrape-async",
			"scrape_batch": "POST /scrape-batch",
			"job_status":   "GET /job/{job_id}",
			"jobs":         "GET /jobs",
			"health":       "GET /health",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"timestamp":   nowStamp(),
		"active_jobs": s.jobs.countRunning(),
	})
}

// handleScrape scrapes one lot synchronously and returns the record.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := decodeScrapeRequest(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, scrapeResponse{Success: false, Error: err.Error()})
		return
	}

	rec, err := s.assembler.Assemble(r.Context(), req.URL)
	if err != nil {
		writeJSON(w, http.StatusOK, scrapeResponse{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, scrapeResponse{Success: true, Data: rec})
}

// handleScrapeAsync queues one lot scrape and returns the job id.
func (s *Server) handleScrapeAsync(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := decodeScrapeRequest(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, scrapeResponse{Success: false, Error: err.Error()})
		return
	}

	job := &Job{
		ID:        uuid.NewString(),
		Status:    JobPending,
		URL:       req.URL,
		CreatedAt: nowStamp(),
	}
	s.jobs.add(job)
	go s.runScrapeJob(job.ID, req.URL)

	writeJSON(w, http.StatusOK, scrapeResponse{
		Success: true,
		JobID:   job.ID,
		Data:    map[string]string{"message": "Job started", "check_status_at": "/job/" + job.ID},
	})
}

// handleScrapeBatch queues a batch of lot scrapes under one job.
func (s *Server) handleScrapeBatch(w http.ResponseWriter, r *http.Request) {
	var req batchScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, scrapeResponse{Success: false, Error: "invalid request body"})
		return
	}
	if len(req.URLs) == 0 {
		writeJSON(w, http.StatusBadRequest, scrapeResponse{Success: false, Error: "urls is required"})
		return
	}
	if len(req.URLs) > batchLimit {
		writeJSON(w, http.StatusBadRequest, scrapeResponse{
			Success: false,
			Error:   fmt.Sprintf("batch limited to %d urls", batchLimit),
		})
		return
	}

	job := &Job{
		ID:        uuid.NewString(),
		Status:    JobPending,
		URLs:      req.URLs,
		Total:     len(req.URLs),
		CreatedAt: nowStamp(),
	}
	s.jobs.add(job)
	go s.runBatchJob(job.ID, req.URLs, req.SaveCSV)

	writeJSON(w, http.StatusOK, scrapeResponse{
		Success: true,
		JobID:   job.ID,
		Data: map[string]interface{}{
			"message":         "Batch job started",
			"total_urls":      len(req.URLs),
			"check_status_at": "/job/" + job.ID,
		},
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, scrapeResponse{Success: false, Error: "Job not found"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}

	jobs := s.jobs.list(status, limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total": len(jobs),
		"jobs":  jobs,
	})
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.jobs.delete(id) {
		writeJSON(w, http.StatusNotFound, scrapeResponse{Success: false, Error: "Job not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Job deleted", "job_id": id})
}

// runScrapeJob executes one queued scrape in the background.
func (s *Server) runScrapeJob(jobID, url string) {
	s.jobs.update(jobID, func(j *Job) { j.Status = JobRunning })

	rec, err := s.assembler.Assemble(context.Background(), url)
	s.jobs.update(jobID, func(j *Job) {
		j.CompletedAt = nowStamp()
		if err != nil {
			j.Status = JobFailed
			j.Error = err.Error()
			return
		}
		j.Status = JobCompleted
		j.Result = rec
	})
	if err != nil {
		s.log.Warn().Err(err).Str("job_id", jobID).Str("url", url).Msg("Scrape job failed")
	}
}

// runBatchJob scrapes every URL serially with the configured delay,
// tracking progress on the job as it goes.
func (s *Server) runBatchJob(jobID string, urls []string, saveCSV bool) {
	s.jobs.update(jobID, func(j *Job) { j.Status = JobRunning })

	var records []lot.Record
	for i, u := range urls {
		if i > 0 {
			fetch.Sleep(context.Background(), s.itemDelay)
		}
		rec, err := s.assembler.Assemble(context.Background(), u)
		if err != nil {
			s.log.Warn().Err(err).Str("job_id", jobID).Str("url", u).Msg("Batch item failed")
		} else {
			records = append(records, *rec)
		}
		processed := i + 1
		s.jobs.update(jobID, func(j *Job) { j.Processed = processed })
	}

	var saveErr error
	if saveCSV && len(records) > 0 {
		saveErr = s.saveBatch(jobID, records)
	}

	s.jobs.update(jobID, func(j *Job) {
		j.CompletedAt = nowStamp()
		if len(records) == 0 {
			j.Status = JobFailed
			j.Error = "No successful scrapes"
			return
		}
		j.Status = JobCompleted
		j.Results = records
		if saveErr != nil {
			j.Error = saveErr.Error()
		}
	})
}

// saveBatch persists a batch result to paired CSV and JSONL files
// named after the job.
func (s *Server) saveBatch(jobID string, records []lot.Record) error {
	base := filepath.Join(s.outputDir, "batch_"+jobID)
	writer, err := pipeline.NewDualWriter(base+".csv", base+".jsonl")
	if err != nil {
		return err
	}
	defer writer.Close()
	return writer.Write(records)
}

func decodeScrapeRequest(r *http.Request, req *scrapeRequest) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return fmt.Errorf("invalid request body")
	}
	if req.URL == "" {
		return fmt.Errorf("url is required")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
