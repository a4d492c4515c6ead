// Package prom exports cache counters and latency quantiles to Prometheus.
package prom

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/cachekit"
	"github.com/unkn0wn-root/cachekit/metrics"
)

// StatsSource is satisfied by every cachekit.Cache.
type StatsSource interface {
	Stats() cachekit.Stats
}

var quantiles = []float64{0.5, 0.9, 0.95, 0.99}

// Collector reads a cache's counters on every scrape. Nothing is copied or
// cached between scrapes, so it is cheap to register once and forget.
type Collector struct {
	src     StatsSource
	latency *metrics.LatencyTracker

	reads      *prometheus.Desc
	writes     *prometheus.Desc
	execs      *prometheus.Desc
	readBytes  *prometheus.Desc
	writeBytes *prometheus.Desc
	opLatency  *prometheus.Desc
	opCount    *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector describes metrics as <namespace>_cache_*; name becomes the
// constant "cache" label so several caches can share one registry.
// latency may be nil.
func NewCollector(namespace, name string, src StatsSource, latency *metrics.LatencyTracker) *Collector {
	labels := prometheus.Labels{"cache": name}
	desc := func(metric, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", metric),
			help, variable, labels,
		)
	}
	return &Collector{
		src:        src,
		latency:    latency,
		reads:      desc("reads_total", "Successful cache reads (hits)"),
		writes:     desc("writes_total", "Successful cache writes"),
		execs:      desc("ops_total", "Successful reads and writes"),
		readBytes:  desc("read_kilobytes_total", "Kilobytes of payload returned by reads"),
		writeBytes: desc("write_kilobytes_total", "Kilobytes of payload accepted by writes"),
		opLatency:  desc("op_latency_milliseconds", "Operation latency quantiles", "op", "quantile"),
		opCount:    desc("op_observations_total", "Latency observations per operation", "op"),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.reads
	ch <- c.writes
	ch <- c.execs
	ch <- c.readBytes
	ch <- c.writeBytes
	ch <- c.opLatency
	ch <- c.opCount
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.reads, prometheus.CounterValue, float64(st.ReadTimes))
	ch <- prometheus.MustNewConstMetric(c.writes, prometheus.CounterValue, float64(st.WriteTimes))
	ch <- prometheus.MustNewConstMetric(c.execs, prometheus.CounterValue, float64(st.ExecTimes))
	ch <- prometheus.MustNewConstMetric(c.readBytes, prometheus.CounterValue, st.ReadSize)
	ch <- prometheus.MustNewConstMetric(c.writeBytes, prometheus.CounterValue, st.WriteSize)

	if c.latency == nil {
		return
	}
	for _, s := range c.latency.AllStats() {
		ch <- prometheus.MustNewConstMetric(c.opCount, prometheus.CounterValue, float64(s.Count), s.Operation)
		if s.Count == 0 {
			continue
		}
		for _, q := range quantiles {
			v, err := c.latency.Quantile(s.Operation, q)
			if err != nil {
				continue
			}
			ch <- prometheus.MustNewConstMetric(c.opLatency, prometheus.GaugeValue, v,
				s.Operation, strconv.FormatFloat(q, 'f', -1, 64))
		}
	}
}
