package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/buscador-adesoes/pkg/ata"
	"github.com/Sternrassler/buscador-adesoes/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrFirstPage wraps the failure of the first request. Without page 1 the
// total page count is unknown, so the search cannot proceed.
var ErrFirstPage = errors.New("first page fetch failed")

// Prometheus metrics for paginated fetches.
var (
	arpPagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arp_pages_fetched_total",
		Help: "Total ARP pages fetched and merged",
	})

	arpPageFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arp_page_failures_total",
		Help: "Total ARP page fetch failures by error class",
	}, []string{"error_class"})

	arpRecordsEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arp_records_emitted_total",
		Help: "Total records delivered to sinks after filtering and deduplication",
	})

	arpPagesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arp_pages_in_flight",
		Help: "Page requests currently in flight",
	})
)

// Config holds fetcher configuration.
type Config struct {
	// MaxConcurrency is the maximum number of page requests in flight.
	// The ARP API is rate sensitive; keep this small.
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
}

// DefaultConfig returns the default fetcher configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

// PageFetcher fetches a single page of a query.
type PageFetcher interface {
	FetchPage(ctx context.Context, q ata.Query, page int) (*ata.Page, error)
}

// PageResult represents the outcome of fetching a single page.
type PageResult struct {
	PageNumber int
	Page       *ata.Page
	Error      error
}

// Fetcher retrieves all pages of a query.
type Fetcher struct {
	source PageFetcher
	config Config
	logger zerolog.Logger
}

// NewFetcher creates a new fetcher. Non-positive config values fall back to
// the defaults.
func NewFetcher(source PageFetcher, config Config) *Fetcher {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &Fetcher{
		source: source,
		config: config,
		logger: log.With().Str("component", "pagination").Logger(),
	}
}

// FetchAll fetches every page of q, pushing records to sink as pages
// complete, and returns the accepted raw records.
//
// A failure on page 1 returns an error wrapping ErrFirstPage and no records.
// Failures on later pages are reported through sink.PageFailed and leave the
// search partial. If ctx is cancelled the records merged so far are returned
// together with the context error.
func (f *Fetcher) FetchAll(ctx context.Context, q ata.Query, filter Filter, sink Sink) ([]ata.RawRecord, error) {
	start := time.Now()

	first, err := f.fetch(ctx, q, 1)
	if err != nil {
		f.logger.Error().
			Err(err).
			Str("query", q.String()).
			Str("error_class", string(client.Class(err))).
			Msg("First page fetch failed")
		return nil, fmt.Errorf("%w: %w", ErrFirstPage, err)
	}
	arpPagesFetchedTotal.Inc()

	totalPages := 1 + first.RemainingPages
	state := NewState()
	f.merge(state, first, filter, sink)

	f.logger.Info().
		Str("query", q.String()).
		Int("total_pages", totalPages).
		Int("max_concurrency", f.config.MaxConcurrency).
		Msg("Starting parallel page fetch")

	if totalPages == 1 {
		f.logger.Info().
			Int("pages", 1).
			Int("records", state.Len()).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return state.Records(), nil
	}

	workers := f.config.MaxConcurrency
	if workers > totalPages-1 {
		workers = totalPages - 1
	}

	// Channel sizes depend on the worker count only; the page count comes
	// from the server and is not trusted for allocation.
	pageQueue := make(chan int, workers)
	pageResults := make(chan PageResult, workers)

	go func() {
		defer close(pageQueue)
		for page := 2; page <= totalPages; page++ {
			select {
			case pageQueue <- page:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go f.worker(ctx, q, pageQueue, pageResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
	}()

	// Results are merged here, one at a time, in completion order.
	processed := 1
	failed := 0
	for result := range pageResults {
		processed++

		if result.Error != nil {
			failed++
			arpPageFailuresTotal.WithLabelValues(failureClass(result.Error)).Inc()
			f.logger.Warn().
				Err(result.Error).
				Int("page", result.PageNumber).
				Bool("timeout", client.IsTimeout(result.Error)).
				Msg("Page fetch failed")
			if sink != nil {
				sink.PageFailed(result.PageNumber, result.Error)
			}
			continue
		}

		arpPagesFetchedTotal.Inc()
		f.merge(state, result.Page, filter, sink)
		if sink != nil {
			sink.Progress(processed, totalPages)
		}

		f.logger.Debug().
			Int("page", result.PageNumber).
			Int("processed", processed).
			Int("total", totalPages).
			Msg("Page merged")
	}

	if err := ctx.Err(); err != nil {
		f.logger.Warn().
			Err(err).
			Int("processed", processed).
			Int("total_pages", totalPages).
			Msg("Fetch cancelled - returning partial results")
		return state.Records(), fmt.Errorf("fetch cancelled (partial data: %d/%d pages): %w", processed, totalPages, err)
	}

	f.logger.Info().
		Int("pages", processed-failed).
		Int("failed", failed).
		Int("total", totalPages).
		Int("records", state.Len()).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return state.Records(), nil
}

func (f *Fetcher) merge(state *State, page *ata.Page, filter Filter, sink Sink) {
	n := state.Merge(page, filter, sink)
	arpRecordsEmittedTotal.Add(float64(n))
}

// fetch runs one page request under the per-page timeout.
func (f *Fetcher) fetch(ctx context.Context, q ata.Query, pageNum int) (*ata.Page, error) {
	arpPagesInFlight.Inc()
	defer arpPagesInFlight.Dec()

	pageCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	return f.source.FetchPage(pageCtx, q, pageNum)
}

// worker processes pages from the queue until it is drained or ctx ends.
func (f *Fetcher) worker(ctx context.Context, q ata.Query, pageQueue <-chan int, results chan<- PageResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for pageNum := range pageQueue {
		select {
		case <-ctx.Done():
			f.logger.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		page, err := f.fetch(ctx, q, pageNum)
		results <- PageResult{
			PageNumber: pageNum,
			Page:       page,
			Error:      err,
		}
		pagesProcessed++
	}

	f.logger.Debug().
		Int("worker_id", workerID).
		Int("pages_processed", pagesProcessed).
		Msg("Worker completed")
}

func failureClass(err error) string {
	if class := client.Class(err); class != "" {
		return string(class)
	}
	return "unknown"
}
