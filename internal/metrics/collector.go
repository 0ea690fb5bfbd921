package metrics

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// StatusCounter reports how many stored anime have each airing status.
type StatusCounter interface {
	CountByStatus() (map[string]int, error)
}

// StoreCollector implements prometheus.Collector for the anime store.
// It queries the store lazily on each scrape rather than tracking counts.
type StoreCollector struct {
	store StatusCounter

	animeStored *prometheus.Desc
	scrapeError *prometheus.Desc
}

// NewStoreCollector creates a collector that counts stored anime on demand.
func NewStoreCollector(store StatusCounter) *StoreCollector {
	return &StoreCollector{
		store: store,
		animeStored: prometheus.NewDesc(
			namespace+"_store_anime",
			"Number of anime in the store, by airing status.",
			[]string{"status"}, nil,
		),
		scrapeError: prometheus.NewDesc(
			namespace+"_store_scrape_error",
			"1 if the last store scrape failed, 0 otherwise.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.animeStored
	ch <- c.scrapeError
}

// Collect implements prometheus.Collector.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	counts, err := c.store.CountByStatus()
	if err != nil {
		slog.Warn("Failed to count stored anime", "error", err)
		ch <- prometheus.MustNewConstMetric(c.scrapeError, prometheus.GaugeValue, 1)
		return
	}

	for status, n := range counts {
		ch <- prometheus.MustNewConstMetric(c.animeStored, prometheus.GaugeValue, float64(n), status)
	}
	ch <- prometheus.MustNewConstMetric(c.scrapeError, prometheus.GaugeValue, 0)
}
