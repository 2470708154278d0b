package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/meshlink-planner/core"
	"github.com/signalsfoundry/meshlink-planner/internal/api"
	"github.com/signalsfoundry/meshlink-planner/internal/config"
	"github.com/signalsfoundry/meshlink-planner/internal/logging"
	"github.com/signalsfoundry/meshlink-planner/internal/observability"
	"github.com/signalsfoundry/meshlink-planner/radio"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	grpcAddr := flag.String("grpc-addr", "", "TCP address the estimation gRPC server listens on")
	httpAddr := flag.String("http-addr", "", "HTTP address for the REST API (empty keeps the configured value)")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics")
	catalogPath := flag.String("catalog", "", "Path to a YAML radio catalog merged over the built-in variants")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.NewFromEnv().Error(context.Background(), "failed to load configuration", logging.Err(err))
		os.Exit(1)
	}

	// Only flags given on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "grpc-addr":
			cfg.Server.GRPCAddr = *grpcAddr
		case "http-addr":
			cfg.Server.HTTPAddr = *httpAddr
		case "metrics-addr":
			cfg.Server.MetricsAddr = *metricsAddr
		case "catalog":
			cfg.Catalog.Path = *catalogPath
		}
	})

	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.Server.GRPCAddr), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, *cfg, log, lis); err != nil {
		log.Error(ctx, "link server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves the estimation API on lis until ctx is cancelled.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis net.Listener) error {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	transport, err := observability.NewTransportCollector(reg)
	if err != nil {
		return err
	}
	estimator, err := observability.NewEstimatorCollector(reg)
	if err != nil {
		return err
	}

	catalog, err := radio.LoadCatalogFile(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	cache, err := api.NewResultCache(cfg.Cache.Size)
	if err != nil {
		return err
	}

	svc := api.NewService(core.NewEngine(catalog), api.ServiceOptions{
		Cache:   cache,
		Metrics: estimator,
		Log:     log,
	})
	log.Info(ctx, "radio catalog loaded",
		logging.String("path", cfg.Catalog.Path),
		logging.Int("variants", len(catalog.IDs())),
	)

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			api.RequestIDUnaryServerInterceptor(log),
			api.TracingUnaryServerInterceptor(),
			transport.UnaryServerInterceptor(),
		),
	)
	api.RegisterEstimationServer(server, api.NewGRPCServer(svc, log))

	var httpServers []*http.Server
	if cfg.Server.HTTPAddr != "" {
		rest := &http.Server{
			Addr: cfg.Server.HTTPAddr,
			Handler: api.NewRESTHandler(svc, api.RESTOptions{
				AllowedOrigins: cfg.CORS.AllowedOrigins,
				Timeout:        cfg.Server.RequestTimeout,
				Metrics:        transport,
				Log:            log,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		serveHTTP(ctx, rest, "REST API", log)
		httpServers = append(httpServers, rest)
	}
	if srv := serveMetrics(ctx, cfg.Server.MetricsAddr, transport, log); srv != nil {
		httpServers = append(httpServers, srv)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting estimation gRPC server", logging.String("addr", lis.Addr().String()))
		errCh <- server.Serve(lis)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			shutdownHTTP(httpServers, cfg.Server.ShutdownTimeout, log)
			return err
		}
	}

	log.Info(context.Background(), "shutting down link server")
	gracefulStop(server, cfg.Server.ShutdownTimeout)
	shutdownHTTP(httpServers, cfg.Server.ShutdownTimeout, log)
	return nil
}

func serveMetrics(ctx context.Context, addr string, collector *observability.TransportCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveHTTP(ctx, srv, "Prometheus metrics", log)
	return srv
}

func serveHTTP(ctx context.Context, srv *http.Server, what string, log logging.Logger) {
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), what+" server exited", logging.Err(err))
		}
	}()
	log.Info(ctx, "serving "+what, logging.String("addr", srv.Addr))
}

// gracefulStop drains in-flight RPCs, falling back to a hard stop after
// timeout.
func gracefulStop(server *grpc.Server, timeout time.Duration) {
	if timeout <= 0 {
		server.Stop()
		return
	}
	done := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		server.Stop()
	}
}

func shutdownHTTP(servers []*http.Server, timeout time.Duration, log logging.Logger) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn(ctx, "http shutdown failed", logging.String("addr", srv.Addr), logging.Err(err))
		}
	}
}
