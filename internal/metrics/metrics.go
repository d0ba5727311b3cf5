// ABOUTME: Prometheus metrics for the audio pipeline
// ABOUTME: Exposes player statistics through a collector and an HTTP handler
package metrics

import (
	"net/http"

	"github.com/camview/liveaudio/pkg/liveaudio"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "liveaudio"

// StatsSource is satisfied by *liveaudio.Player.
type StatsSource interface {
	Stats() liveaudio.Stats
}

// Collector reads player statistics at scrape time.
type Collector struct {
	source StatsSource

	received     *prometheus.Desc
	played       *prometheus.Desc
	late         *prometheus.Desc
	dropped      *prometheus.Desc
	reordered    *prometheus.Desc
	stalls       *prometheus.Desc
	decodeErrors *prometheus.Desc
	violations   *prometheus.Desc
	streamErrors *prometheus.Desc
	bufferedMs   *prometheus.Desc
}

// NewCollector creates a collector over source.
func NewCollector(source StatsSource) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil)
	}
	return &Collector{
		source:       source,
		received:     desc("units_received_total", "Decoded units offered to the scheduler."),
		played:       desc("units_played_total", "Units that finished playing."),
		late:         desc("units_late_total", "Units that arrived after the clock passed their slot."),
		dropped:      desc("units_dropped_total", "Units dropped because the buffer was full."),
		reordered:    desc("units_reordered_total", "Decode results that completed ahead of a predecessor."),
		stalls:       desc("decoder_stalls_total", "Declared decoder stalls."),
		decodeErrors: desc("decode_errors_total", "Payloads that failed to decode."),
		violations:   desc("sequence_violations_total", "Decode results with an index already released."),
		streamErrors: desc("stream_errors_total", "Feed protocol errors."),
		bufferedMs:   desc("buffered_milliseconds", "Audio queued ahead of the output clock."),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.received, c.played, c.late, c.dropped, c.reordered,
		c.stalls, c.decodeErrors, c.violations, c.streamErrors, c.bufferedMs,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()
	count := func(d *prometheus.Desc, v int64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	count(c.received, s.Received)
	count(c.played, s.Played)
	count(c.late, s.Late)
	count(c.dropped, s.Dropped)
	count(c.reordered, s.Reordered)
	count(c.stalls, s.Stalls)
	count(c.decodeErrors, s.DecodeErrors)
	count(c.violations, s.Violations)
	count(c.streamErrors, s.StreamErrors)
	ch <- prometheus.MustNewConstMetric(c.bufferedMs, prometheus.GaugeValue, s.BufferedMs)
}

// NewRegistry returns a registry holding only the player collector.
func NewRegistry(source StatsSource) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(source))
	return reg
}

// Handler serves g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
