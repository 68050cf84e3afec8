package obs

import (
	"accord/internal/model/enum"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gateway"

type counterDesc struct {
	desc  *prometheus.Desc
	value func(Snapshot) uint64
}

// Collector exposes a Metrics snapshot to prometheus on every scrape.
type Collector struct {
	metrics   *Metrics
	counters  []counterDesc
	events    *prometheus.Desc
	hbLatency *prometheus.Desc
	hbCount   *prometheus.Desc
}

// NewCollector wraps metrics. constLabels are attached to every series.
func NewCollector(metrics *Metrics, constLabels prometheus.Labels) *Collector {
	counter := func(name, help string, value func(Snapshot) uint64) counterDesc {
		return counterDesc{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, constLabels),
			value: value,
		}
	}
	return &Collector{
		metrics: metrics,
		counters: []counterDesc{
			counter("dial_attempts_total", "Transport dial attempts.", func(s Snapshot) uint64 { return s.DialAttempts }),
			counter("dial_failures_total", "Failed transport dials.", func(s Snapshot) uint64 { return s.DialFailures }),
			counter("opens_total", "Connections opened.", func(s Snapshot) uint64 { return s.Opens }),
			counter("frames_in_total", "Inbound transport messages.", func(s Snapshot) uint64 { return s.FramesIn }),
			counter("bytes_in_total", "Inbound transport bytes.", func(s Snapshot) uint64 { return s.BytesIn }),
			counter("frames_out_total", "Outbound control frames.", func(s Snapshot) uint64 { return s.FramesOut }),
			counter("decode_errors_total", "Frames dropped by the schema decoder.", func(s Snapshot) uint64 { return s.DecodeErrors }),
			counter("inflate_errors_total", "Zlib stream failures.", func(s Snapshot) uint64 { return s.InflateErrors }),
			counter("heartbeats_sent_total", "Heartbeats sent.", func(s Snapshot) uint64 { return s.HeartbeatsSent }),
			counter("heartbeats_acked_total", "Heartbeat acks received.", func(s Snapshot) uint64 { return s.HeartbeatsAcked }),
			counter("stale_connections_total", "Connections dropped for a missing heartbeat ack.", func(s Snapshot) uint64 { return s.StaleConnections }),
			counter("reconnects_total", "Backoff reconnects scheduled.", func(s Snapshot) uint64 { return s.Reconnects }),
			counter("server_reconnects_total", "Reconnects requested by the server.", func(s Snapshot) uint64 { return s.ServerReconnects }),
			counter("invalid_sessions_total", "Invalid session notices.", func(s Snapshot) uint64 { return s.InvalidSessions }),
			counter("compression_toggles_total", "Compression mode switches.", func(s Snapshot) uint64 { return s.CompressionToggles }),
			counter("give_ups_total", "Sessions that exhausted their retries.", func(s Snapshot) uint64 { return s.GiveUps }),
		},
		events: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "events_published_total"),
			"Domain events published, by kind.",
			[]string{"kind"}, constLabels,
		),
		hbLatency: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "heartbeat", "rtt_seconds"),
			"Heartbeat round trip, by statistic.",
			[]string{"stat"}, constLabels,
		),
		hbCount: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "heartbeat", "rtt_samples_total"),
			"Heartbeat round trip samples.",
			nil, constLabels,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, counter := range c.counters {
		ch <- counter.desc
	}
	ch <- c.events
	ch <- c.hbLatency
	ch <- c.hbCount
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.metrics.Snapshot()
	for _, counter := range c.counters {
		ch <- prometheus.MustNewConstMetric(counter.desc, prometheus.CounterValue, float64(counter.value(snap)))
	}
	for _, kind := range enum.EventKinds() {
		ch <- prometheus.MustNewConstMetric(c.events, prometheus.CounterValue, float64(snap.EventCounts[kind]), kind.String())
	}
	lat := snap.HeartbeatLatency
	ch <- prometheus.MustNewConstMetric(c.hbCount, prometheus.CounterValue, float64(lat.Count))
	ch <- prometheus.MustNewConstMetric(c.hbLatency, prometheus.GaugeValue, lat.Min.Seconds(), "min")
	ch <- prometheus.MustNewConstMetric(c.hbLatency, prometheus.GaugeValue, lat.Max.Seconds(), "max")
	ch <- prometheus.MustNewConstMetric(c.hbLatency, prometheus.GaugeValue, lat.Avg.Seconds(), "avg")
}
