// Package pagination fetches every page of an ARP query with bounded
// concurrency and delivers records incrementally.
//
// The API reports "paginasRestantes" on each page, so the total page count is
// only known after the first request. The fetcher:
//   - Fetches page 1 and derives the total (1 + paginasRestantes)
//   - Merges page 1 into a fresh State and emits its records right away
//   - Starts a worker pool (default 4 workers) for pages 2..total
//   - Merges each page in completion order, not page order
//   - Reports a failed page to the sink and keeps going (no retry)
//
// Example usage:
//
//	fetcher := pagination.NewFetcher(arpClient, pagination.DefaultConfig())
//	records, err := fetcher.FetchAll(ctx, query, filter, sink)
//	if errors.Is(err, pagination.ErrFirstPage) {
//		// nothing was fetched
//	}
//
// Sink methods are called only from the goroutine running FetchAll, so a
// Sink needs no locking of its own.
package pagination
