// chainfund-devserver is a local implementation of the ChainFund wire
// contract for development and integration testing. State lives in memory,
// optionally seeded from a YAML fixture file.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/chainfund/chainfund-go/internal/logging"
)

func main() {
	var (
		addr     = flag.String("addr", ":8000", "listen address")
		seedPath = flag.String("seed", "", "YAML fixture file to seed campaigns and users from")
		secret   = flag.String("jwt-secret", "", "JWT signing secret (random per run when empty)")
		rps      = flag.Float64("rate-limit", 100, "requests per second before 429s")
		logLevel = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	log := logging.New(os.Stderr, *logLevel, true)

	jwtSecret := []byte(*secret)
	if len(jwtSecret) == 0 {
		jwtSecret = make([]byte, 32)
		if _, err := rand.Read(jwtSecret); err != nil {
			log.Fatal().Err(err).Msg("generate jwt secret")
		}
		log.Warn().Msg("using a random JWT secret, tokens will not survive restarts")
	}

	store := newDevStore()
	if *seedPath != "" {
		if err := store.loadSeed(*seedPath); err != nil {
			log.Fatal().Err(err).Str("path", *seedPath).Msg("load seed file")
		}
		log.Info().Str("path", *seedPath).Msg("seeded fixture data")
	}

	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainfund",
		Subsystem: "devserver",
		Name:      "requests_total",
		Help:      "HTTP requests handled, by method, route, and status.",
	}, []string{"method", "route", "status"})
	registry.MustRegister(requests)

	srv := &server{
		store:  store,
		hub:    newHub(log),
		secret: jwtSecret,
		log:    log,
	}

	router := mux.NewRouter()
	router.Use(loggingMiddleware(log))
	router.Use(metricsMiddleware(requests))
	router.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(*rps), int(*rps))))
	srv.routes(router)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "chainfund-devserver"})
	})

	httpServer := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("addr", *addr).Msg("devserver listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
