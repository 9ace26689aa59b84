// Package metrics exposes pipeline counters to Prometheus.
//
// Metrics live on a private registry so embedding programs don't get the
// default Go runtime collectors unless they ask for them.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
)

const defaultNamespace = "wakfulog"

// Option configures a Recorder.
type Option func(*Recorder)

// WithNamespace sets the namespace prefix of every metric.
func WithNamespace(ns string) Option {
	return func(r *Recorder) {
		if ns != "" {
			r.namespace = ns
		}
	}
}

// WithRegistry registers the metrics on reg instead of a new private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(r *Recorder) {
		if reg != nil {
			r.registry = reg
		}
	}
}

// Recorder counts lines, events and combos. It implements
// wakfulog.MetricsRecorder.
type Recorder struct {
	namespace string
	registry  *prometheus.Registry

	linesRead      prometheus.Counter
	duplicates     prometheus.Counter
	events         *prometheus.CounterVec
	combosComplete *prometheus.CounterVec
	logAvailable   prometheus.Gauge
}

// New creates a Recorder and registers its metrics.
func New(opts ...Option) *Recorder {
	r := &Recorder{namespace: defaultNamespace}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(r.registry)
	r.linesRead = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "lines_read_total",
		Help:      "Log lines read from the source.",
	})
	r.duplicates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "duplicate_lines_total",
		Help:      "Recognized lines dropped as duplicates.",
	})
	r.events = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "events_total",
		Help:      "State events applied, by kind and class.",
	}, []string{"kind", "class"})
	r.combosComplete = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "combos_completed_total",
		Help:      "Completed combos, by combo id.",
	}, []string{"combo"})
	r.logAvailable = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "log_available",
		Help:      "1 if the last poll could read the log file, 0 otherwise.",
	})
	return r
}

// Registry returns the registry the metrics are registered on.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// LinesRead adds n read lines.
func (r *Recorder) LinesRead(n int) {
	if n > 0 {
		r.linesRead.Add(float64(n))
	}
}

// Duplicates adds n dropped duplicates.
func (r *Recorder) Duplicates(n int) {
	if n > 0 {
		r.duplicates.Add(float64(n))
	}
}

// EventsApplied counts events by kind and class, and completed combos.
func (r *Recorder) EventsApplied(evs []event.Event) {
	for _, ev := range evs {
		r.events.WithLabelValues(string(ev.Kind), string(ev.Class)).Inc()
		if ev.Kind == event.ComboComplete {
			r.combosComplete.WithLabelValues(ev.ComboID).Inc()
		}
	}
}

// LogAvailable records whether the last poll succeeded.
func (r *Recorder) LogAvailable(ok bool) {
	if ok {
		r.logAvailable.Set(1)
	} else {
		r.logAvailable.Set(0)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
