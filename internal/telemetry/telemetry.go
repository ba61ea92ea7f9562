// Package telemetry installs the OpenTelemetry meter provider and serves
// its readings in the Prometheus exposition format.
package telemetry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/dgnsrekt/narrator/tts"
)

// ServiceName is reported as the service.name resource attribute.
const ServiceName = "narrator"

// Telemetry owns the meter provider and the metrics endpoint.
type Telemetry struct {
	addr     string
	log      *log.Logger
	provider *sdkmetric.MeterProvider
	registry *promclient.Registry

	mu    sync.Mutex
	bound net.Addr
}

// Setup builds a meter provider exporting to a private Prometheus registry
// and installs it as the global provider. Instruments created through
// otel.Meter before Setup are forwarded to it.
func Setup(ctx context.Context, cfg tts.MetricsConfig, version string, logger *log.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = log.Default()
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", ServiceName),
			attribute.String("service.version", version),
		),
	)
	if err != nil {
		return nil, err
	}

	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	logger = logger.WithPrefix("telemetry")
	logger.Debug("meter provider installed", "exporter", "prometheus")
	return &Telemetry{
		addr:     cfg.Addr,
		log:      logger,
		provider: provider,
		registry: registry,
	}, nil
}

// Handler serves the registry.
func (t *Telemetry) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{}))
	return mux
}

// Addr returns the bound address once Serve is listening.
func (t *Telemetry) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bound
}

// Serve exposes /metrics until ctx is done.
func (t *Telemetry) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", t.addr)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.bound = ln.Addr()
	t.mu.Unlock()

	srv := &http.Server{Handler: t.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	t.log.Info("serving metrics", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown flushes and stops the meter provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}
