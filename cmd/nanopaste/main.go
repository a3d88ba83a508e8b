package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"nanopaste/internal/admin"
	"nanopaste/internal/id"
	"nanopaste/internal/ratelimit"
	"nanopaste/internal/server"
)

func main() {
	cfg := parseFlags()

	logSink := os.Stdout
	if cfg.logPath != "" {
		f, err := os.OpenFile(cfg.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log sink: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logSink = f
	}
	logger := slog.New(slog.NewTextHandler(logSink, &slog.HandlerOptions{Level: slog.LevelInfo}))

	store, err := openStore(cfg.storeKind, cfg.dataPath)
	if err != nil {
		logger.Error("failed opening paste store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var manual []byte
	if cfg.manualPath != "" {
		manual, err = os.ReadFile(cfg.manualPath)
		if err != nil {
			logger.Error("failed reading manual document", "error", err)
			os.Exit(1)
		}
	}

	var acceptLimit *rate.Limiter
	if cfg.acceptRate > 0 {
		burst := cfg.acceptBurst
		if burst < 1 {
			burst = 1
		}
		acceptLimit = rate.NewLimiter(rate.Limit(cfg.acceptRate), burst)
	}

	srv, err := server.New(server.Config{
		Store:       store,
		IDs:         id.New(store),
		Limiter:     ratelimit.New(cfg.rateSamples, time.Duration(cfg.rateWindow)*time.Second),
		MaxBytes:    cfg.maxBytes,
		Host:        cfg.host,
		Manual:      manual,
		IdleTimeout: cfg.idleTimeout,
		AcceptLimit: acceptLimit,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to construct server", "error", err)
		os.Exit(1)
	}

	ln, err := net.Listen("tcp", cfg.addr)
	if err != nil {
		logger.Error("failed to bind", "addr", cfg.addr, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// SIGUSR1 dumps a state snapshot to the log, for operators poking at a
	// live process.
	dumpCh := make(chan os.Signal, 1)
	signal.Notify(dumpCh, syscall.SIGUSR1)
	go func() {
		for range dumpCh {
			st := srv.Snapshot()
			logger.Info("state snapshot",
				"uptime", st.Uptime,
				"open_connections", st.OpenConnections,
				"pastes_created", st.PastesCreated,
				"pastes_served", st.PastesServed,
				"rate_entries", st.RateEntries,
			)
		}
	}()

	if cfg.adminAddr != "" {
		adminSrv := &http.Server{
			Addr:              cfg.adminAddr,
			Handler:           admin.Handler(srv, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("admin listening", "addr", cfg.adminAddr)
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("admin server error", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = adminSrv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("listening", "addr", cfg.addr, "store", cfg.storeKind, "host", cfg.host)
	if err := srv.Serve(ctx, ln); err != nil {
		logger.Error("serve error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

type config struct {
	addr        string
	adminAddr   string
	storeKind   string
	dataPath    string
	manualPath  string
	maxBytes    int
	rateSamples int
	rateWindow  int
	host        string
	logPath     string
	idleTimeout time.Duration
	acceptRate  float64
	acceptBurst int
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.addr, "addr", ":9999", "paste listener address")
	flag.StringVar(&cfg.adminAddr, "admin-addr", "", "admin introspection address (empty disables)")
	flag.StringVar(&cfg.storeKind, "store", "fs", "paste store backend: fs, bolt or sqlite")
	flag.StringVar(&cfg.dataPath, "data", "./pastes", "paste directory (fs) or database file (bolt, sqlite)")
	flag.StringVar(&cfg.manualPath, "manual", "", "path to a manual document overriding the built-in one")
	flag.IntVar(&cfg.maxBytes, "max-bytes", 1_048_576, "maximum accepted request size in bytes")
	flag.IntVar(&cfg.rateSamples, "rate-samples", 5, "submission attempts remembered per client (0 disables limiting)")
	flag.IntVar(&cfg.rateWindow, "rate-window", 60, "rate limit window in seconds (0 disables limiting)")
	flag.StringVar(&cfg.host, "host", "localhost", "public hostname used in paste URLs")
	flag.StringVar(&cfg.logPath, "log", "", "log file path (empty logs to stdout)")
	flag.DurationVar(&cfg.idleTimeout, "idle-timeout", 2*time.Minute, "drop connections idle this long (0 disables)")
	flag.Float64Var(&cfg.acceptRate, "accept-rate", 0, "max accepted connections per second (0 disables)")
	flag.IntVar(&cfg.acceptBurst, "accept-burst", 0, "accept throttle burst")
	flag.Parse()

	if cfg.maxBytes <= 0 {
		fmt.Fprintf(os.Stderr, "max-bytes must be positive\n")
		os.Exit(2)
	}
	if cfg.rateSamples < 0 || cfg.rateWindow < 0 {
		fmt.Fprintf(os.Stderr, "rate-samples and rate-window must not be negative\n")
		os.Exit(2)
	}
	switch cfg.storeKind {
	case "fs", "bolt", "sqlite":
	default:
		fmt.Fprintf(os.Stderr, "unknown store backend %q\n", cfg.storeKind)
		os.Exit(2)
	}
	return cfg
}
