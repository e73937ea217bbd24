// Package metrics exposes the Prometheus metrics of the search tool.
// Metrics are defined with promauto in the packages that own them (client,
// pagination, catalog); this package serves them and documents them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registry every package registers into via promauto.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer paired with Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// ARP client (pkg/client):
//   - arp_requests_total{kind, status} (Counter): requests by item kind and HTTP status
//   - arp_request_duration_seconds{kind} (Histogram): request duration
//   - arp_errors_total{class} (Counter): errors by class (client, rate_limit, server, network, decode)
//
// Pagination (pkg/pagination):
//   - arp_pages_fetched_total (Counter): pages fetched and merged
//   - arp_page_failures_total{error_class} (Counter): pages dropped after a failure
//   - arp_records_emitted_total (Counter): records delivered after filtering and dedup
//   - arp_pages_in_flight (Gauge): page requests currently running
//
// Catalog (pkg/catalog):
//   - catalog_cache_hits_total{catalog} (Counter): mappings served from Redis
//   - catalog_cache_misses_total{catalog} (Counter): mappings loaded from files
//   - catalog_cache_errors_total{operation} (Counter): Redis errors
//
// Example Prometheus Queries:
//
//   # Page failure ratio
//   sum(rate(arp_page_failures_total[5m])) /
//   (sum(rate(arp_page_failures_total[5m])) + rate(arp_pages_fetched_total[5m]))
//
//   # P95 ARP latency
//   histogram_quantile(0.95, rate(arp_request_duration_seconds_bucket[5m]))
