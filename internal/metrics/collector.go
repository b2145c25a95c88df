package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mrzor/gazeshm/internal/acquisition"
)

const namespace = "gazeshm"

// Source is what the Collector scrapes. *acquisition.Loop satisfies it.
type Source interface {
	Stats() acquisition.Stats
	State() acquisition.State
}

var states = []acquisition.State{
	acquisition.StateUninitialized,
	acquisition.StateSessionActive,
	acquisition.StateGazePermissionDenied,
	acquisition.StateGazeReady,
	acquisition.StatePublishing,
	acquisition.StateStopped,
	acquisition.StateFailed,
}

// Collector turns a Source into Prometheus metrics.
type Collector struct {
	source Source

	polls           *prometheus.Desc
	published       *prometheus.Desc
	noData          *prometheus.Desc
	lastFrame       *prometheus.Desc
	lastCaptureTime *prometheus.Desc
	state           *prometheus.Desc
}

// NewCollector returns a collector labelled with the provider and region
// names.
func NewCollector(source Source, provider, region string) *Collector {
	labels := prometheus.Labels{"provider": provider, "region": region}
	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, variable, labels)
	}

	return &Collector{
		source:          source,
		polls:           desc("polls_total", "Total number of device polls"),
		published:       desc("frames_published_total", "Total number of frames written to the shared region"),
		noData:          desc("no_data_polls_total", "Total number of polls that found no new frame"),
		lastFrame:       desc("last_frame_number", "Frame number of the most recently published frame"),
		lastCaptureTime: desc("last_capture_time_seconds", "Device capture time of the most recently published frame"),
		state:           desc("state", "Current lifecycle state, 1 for the active state", "state"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.polls
	ch <- c.published
	ch <- c.noData
	ch <- c.lastFrame
	ch <- c.lastCaptureTime
	ch <- c.state
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()
	current := c.source.State()

	ch <- prometheus.MustNewConstMetric(c.polls, prometheus.CounterValue, float64(stats.Polls))
	ch <- prometheus.MustNewConstMetric(c.published, prometheus.CounterValue, float64(stats.Published))
	ch <- prometheus.MustNewConstMetric(c.noData, prometheus.CounterValue, float64(stats.NoData))
	ch <- prometheus.MustNewConstMetric(c.lastFrame, prometheus.GaugeValue, float64(stats.LastFrame))
	ch <- prometheus.MustNewConstMetric(c.lastCaptureTime, prometheus.GaugeValue, float64(stats.LastCaptureTime)/1e9)

	for _, s := range states {
		v := 0.0
		if s == current {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, v, s.String())
	}
}
