package metrics

import (
	"fmt"
	"sync"
	"time"
)

// Tally is the success/failure count of crawled pages.
type Tally struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// Total is the number of pages processed so far
func (t Tally) Total() int {
	return t.Success + t.Failed
}

// Metrics is a point-in-time copy of the run statistics
type Metrics struct {
	StartTime        time.Time `json:"start_time"`
	PagesFetched     int       `json:"pages_fetched"`
	PagesFailed      int       `json:"pages_failed"`
	BatchesCompleted int       `json:"batches_completed"`
	SitemapsResolved int       `json:"sitemaps_resolved"`
	SitemapsFailed   int       `json:"sitemaps_failed"`
	TotalFetchTimeMs int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs   int64     `json:"avg_fetch_time_ms"`
	ElapsedMs        int64     `json:"elapsed_ms"`
}

// Tracker holds and manages crawl metrics
type Tracker struct {
	mu               sync.Mutex
	data             Metrics
	totalFetchTimeMs int64
	fetchCount       int
}

// NewTracker creates a new metrics tracker
func NewTracker() *Tracker {
	return &Tracker{
		data: Metrics{
			StartTime: time.Now(),
		},
	}
}

// RecordBatch adds the outcome of one settled batch to the tally
func (t *Tracker) RecordBatch(success, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFetched += success
	t.data.PagesFailed += failed
	t.data.BatchesCompleted++
}

// IncrementSitemapsResolved counts a sitemap that was fetched and parsed
func (t *Tracker) IncrementSitemapsResolved() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.SitemapsResolved++
}

// IncrementSitemapsFailed counts a sitemap that could not be fetched or parsed
func (t *Tracker) IncrementSitemapsFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.SitemapsFailed++
}

// RecordFetchTime records a page fetch duration
func (t *Tracker) RecordFetchTime(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalFetchTimeMs += duration.Milliseconds()
	t.fetchCount++
}

// Tally returns the current page counts
func (t *Tracker) Tally() Tally {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Tally{Success: t.data.PagesFetched, Failed: t.data.PagesFailed}
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.data
	snapshot.TotalFetchTimeMs = t.totalFetchTimeMs
	snapshot.ElapsedMs = time.Since(t.data.StartTime).Milliseconds()

	// Calculate average fetch time
	if t.fetchCount > 0 {
		snapshot.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}

	return snapshot
}

// LogProgress renders the current metrics as a single log line
func (t *Tracker) LogProgress() string {
	s := t.GetSnapshot()
	return fmt.Sprintf("Sitemaps: %d resolved, %d failed | Pages: %d fetched, %d failed in %d batches | Avg fetch: %dms",
		s.SitemapsResolved,
		s.SitemapsFailed,
		s.PagesFetched,
		s.PagesFailed,
		s.BatchesCompleted,
		s.AvgFetchTimeMs,
	)
}
