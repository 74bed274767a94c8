package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalot/lotworker/internal/lot"
	"catalot/lotworker/internal/metrics"
)

type stubAssembler struct {
	failing map[string]bool
}

func (s *stubAssembler) Assemble(ctx context.Context, url string) (*lot.Record, error) {
	if s.failing[url] {
		return nil, fmt.Errorf("listing error (%s): no title extracted", url)
	}
	return &lot.Record{
		Title:     "Lot from " + url,
		URL:       url,
		ScrapedAt: time.Now(),
	}, nil
}

func newTestServer(t *testing.T, failing map[string]bool) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(&stubAssembler{failing: failing}, metrics.New(), 0, t.TempDir())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	decode(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
}

func TestScrapeSync(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/scrape", scrapeRequest{URL: "https://www.catawiki.com/en/l/1-lot"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body scrapeResponse
	decode(t, resp, &body)
	assert.True(t, body.Success)
	assert.NotNil(t, body.Data)
}

func TestScrapeSyncFailure(t *testing.T) {
	_, ts := newTestServer(t, map[string]bool{"https://www.catawiki.com/en/l/9-bad": true})

	resp := postJSON(t, ts.URL+"/scrape", scrapeRequest{URL: "https://www.catawiki.com/en/l/9-bad"})
	var body scrapeResponse
	decode(t, resp, &body)
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "no title extracted")
}

func TestScrapeMissingURL(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/scrape", scrapeRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestScrapeAsyncLifecycle(t *testing.T) {
	srv, ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/scrape-async", scrapeRequest{URL: "https://www.catawiki.com/en/l/5-lot"})
	var body scrapeResponse
	decode(t, resp, &body)
	require.True(t, body.Success)
	require.NotEmpty(t, body.JobID)

	assert.Eventually(t, func() bool {
		job, ok := srv.jobs.get(body.JobID)
		return ok && job.Status == JobCompleted
	}, 2*time.Second, 10*time.Millisecond)

	statusResp, err := http.Get(ts.URL + "/job/" + body.JobID)
	require.NoError(t, err)
	var job Job
	decode(t, statusResp, &job)
	assert.Equal(t, JobCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, "https://www.catawiki.com/en/l/5-lot", job.Result.URL)
}

func TestScrapeBatchTracksProgress(t *testing.T) {
	srv, ts := newTestServer(t, map[string]bool{"https://www.catawiki.com/en/l/2-bad": true})

	resp := postJSON(t, ts.URL+"/scrape-batch", batchScrapeRequest{URLs: []string{
		"https://www.catawiki.com/en/l/1-lot",
		"https://www.catawiki.com/en/l/2-bad",
		"https://www.catawiki.com/en/l/3-lot",
	}})
	var body scrapeResponse
	decode(t, resp, &body)
	require.True(t, body.Success)

	assert.Eventually(t, func() bool {
		job, ok := srv.jobs.get(body.JobID)
		return ok && job.Status == JobCompleted
	}, 2*time.Second, 10*time.Millisecond)

	job, _ := srv.jobs.get(body.JobID)
	assert.Equal(t, 3, job.Processed)
	assert.Equal(t, 3, job.Total)
	assert.Len(t, job.Results, 2)
}

func TestScrapeBatchRejectsOversized(t *testing.T) {
	_, ts := newTestServer(t, nil)

	urls := make([]string, batchLimit+1)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://www.catawiki.com/en/l/%d-lot", i)
	}
	resp := postJSON(t, ts.URL+"/scrape-batch", batchScrapeRequest{URLs: urls})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestJobNotFound(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/job/no-such-id")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestDeleteJob(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	srv.jobs.add(&Job{ID: "victim", Status: JobCompleted, CreatedAt: nowStamp()})

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/job/victim", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	_, ok := srv.jobs.get("victim")
	assert.False(t, ok)
}

func TestListJobsFiltersByStatus(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	srv.jobs.add(&Job{ID: "a", Status: JobCompleted, CreatedAt: nowStamp()})
	srv.jobs.add(&Job{ID: "b", Status: JobFailed, CreatedAt: nowStamp()})
	srv.jobs.add(&Job{ID: "c", Status: JobCompleted, CreatedAt: nowStamp()})

	resp, err := http.Get(ts.URL + "/jobs?status=completed")
	require.NoError(t, err)
	var body struct {
		Total int   `json:"total"`
		Jobs  []Job `json:"jobs"`
	}
	decode(t, resp, &body)
	assert.Equal(t, 2, body.Total)
	for _, j := range body.Jobs {
		assert.Equal(t, JobCompleted, j.Status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

type slowAssembler struct {
	delay time.Duration
}

func (s *slowAssembler) Assemble(ctx context.Context, url string) (*lot.Record, error) {
	time.Sleep(s.delay)
	return &lot.Record{
		Title:     "Lot from " + url,
		URL:       url,
		ScrapedAt: time.Now(),
	}, nil
}

func TestJobStatusPollingDuringBatch(t *testing.T) {
	srv := New(&slowAssembler{delay: 5 * time.Millisecond}, metrics.New(), 0, t.TempDir())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	urls := make([]string, 20)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://www.catawiki.com/en/l/%d-lot", i)
	}
	resp := postJSON(t, ts.URL+"/scrape-batch", batchScrapeRequest{URLs: urls})
	var body scrapeResponse
	decode(t, resp, &body)
	require.True(t, body.Success)

	// Poll while the batch runs; every response must decode to a
	// consistent snapshot even though the runner keeps mutating the job.
	deadline := time.Now().Add(5 * time.Second)
	for {
		statusResp, err := http.Get(ts.URL + "/job/" + body.JobID)
		require.NoError(t, err)
		var job Job
		decode(t, statusResp, &job)
		assert.LessOrEqual(t, job.Processed, job.Total)
		if job.Status == JobCompleted {
			assert.Equal(t, len(urls), job.Processed)
			assert.Len(t, job.Results, len(urls))
			break
		}
		require.True(t, time.Now().Before(deadline), "batch job did not finish")
	}
}

func TestJobStoreReadsAreDetached(t *testing.T) {
	store := newJobStore()
	store.add(&Job{ID: "a", Status: JobRunning, URLs: []string{"u1"}})

	got, ok := store.get("a")
	require.True(t, ok)
	got.Status = JobFailed
	got.URLs[0] = "mutated"

	stored, _ := store.get("a")
	assert.Equal(t, JobRunning, stored.Status)
	assert.Equal(t, "u1", stored.URLs[0])

	listed := store.list("", 0)
	require.Len(t, listed, 1)
	listed[0].Status = JobFailed
	stored, _ = store.get("a")
	assert.Equal(t, JobRunning, stored.Status)
}

func TestJobStoreEvictsOldest(t *testing.T) {
	store := newJobStore()
	for i := 0; i <= maxJobs; i++ {
		store.add(&Job{ID: fmt.Sprintf("job-%d", i), Status: JobCompleted})
	}

	_, ok := store.get("job-0")
	assert.False(t, ok)
	_, ok = store.get(fmt.Sprintf("job-%d", maxJobs))
	assert.True(t, ok)
}
