package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hn-post-classifier/internal/cache"
	"hn-post-classifier/internal/config"
	"hn-post-classifier/internal/metrics"
	"hn-post-classifier/pkg/logger"
)

func main() {
	cfg, err := config.Load(config.Path(config.DefaultPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	l, err := logger.NewWithConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer l.Sync()

	m := metrics.New().WithRuntime()
	h := newHandler(cache.New(cfg.Cache.Dir, l), l, m)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      logRequest(l, m, h.routes()),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		l.Infof("server listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			l.Errorf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	l.Infof("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	l.Infof("bye")
}
