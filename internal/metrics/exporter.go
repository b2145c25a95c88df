package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readHeaderTimeout = 10 * time.Second

// Exporter serves a Prometheus registry over HTTP.
type Exporter struct {
	addr     string
	registry *prometheus.Registry

	mu     sync.Mutex
	server *http.Server
	closed bool
}

// NewExporter returns an exporter for addr with the Go runtime and
// process collectors registered.
func NewExporter(addr string) *Exporter {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewExporterWithRegistry(addr, reg)
}

// NewExporterWithRegistry returns an exporter serving reg.
func NewExporterWithRegistry(addr string, reg *prometheus.Registry) *Exporter {
	return &Exporter{addr: addr, registry: reg}
}

// Register adds c to the registry.
func (e *Exporter) Register(c prometheus.Collector) error {
	return e.registry.Register(c)
}

// Handler returns the /metrics and /health routes.
func (e *Exporter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok")) //nolint:errcheck // Client may be gone
	})
	return mux
}

// Listen binds the exporter address. Serve must follow.
func (e *Exporter) Listen() (net.Listener, error) {
	return net.Listen("tcp", e.addr)
}

// Serve handles requests on ln until Shutdown. It returns nil after a
// graceful shutdown.
func (e *Exporter) Serve(ln net.Listener) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ln.Close()
	}
	if e.server != nil {
		e.mu.Unlock()
		return errors.New("metrics exporter already serving")
	}
	e.server = &http.Server{
		Handler:           e.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	srv := e.server
	e.mu.Unlock()

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the exporter. A later Serve returns at once.
func (e *Exporter) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	srv := e.server
	e.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
