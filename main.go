package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"people/cache"
	"people/config"
	"people/db"
	"people/http"
	"people/logger"
	"people/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("service exited with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DB, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}

	c, err := cache.New(ctx, cfg.Cache, log)
	if err != nil {
		return err
	}
	defer c.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	h := handler.New(db.NewRepository(pool, m), c, m)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.WithLogging(log, h.Router()),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// pprof registers itself on the default mux
	http.Handle("/metrics", promhttp.Handler())
	debug := &http.Server{Addr: cfg.HTTP.DebugAddr, Handler: http.DefaultServeMux}

	errs := make(chan error, 2)
	for _, s := range []*http.Server{server, debug} {
		go func(s *http.Server) {
			log.Info().Str("addr", s.Addr).Msg("starting server")
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("listen %s: %w", s.Addr, err)
			}
		}(s)
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errs:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := errors.Join(server.Shutdown(shutdownCtx), debug.Shutdown(shutdownCtx)); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}
