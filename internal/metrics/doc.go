// Package metrics exposes acquisition counters in the Prometheus text
// format.
//
// The Collector reads Loop.Stats and Loop.State at scrape time, so the
// publishing cycle never touches a Prometheus type. The Exporter serves
// the registry over HTTP at /metrics, with a /health route beside it.
package metrics
