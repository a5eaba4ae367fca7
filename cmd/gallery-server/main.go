// Command gallery-server runs the gallery synchronization server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/smelek/gallerysync/internal/auth"
	"github.com/smelek/gallerysync/internal/relay"
	"github.com/smelek/gallerysync/internal/remote/mediastore"
	"github.com/smelek/gallerysync/internal/remote/server"
	"github.com/smelek/gallerysync/internal/store"
)

func main() {
	listen := flag.String("listen", envOrDefault("GALLERY_LISTEN", "0.0.0.0:8484"), "Listen address")
	dataDir := flag.String("data-dir", envOrDefault("GALLERY_DATA_DIR", "/var/lib/gallery-server"), "Data directory")
	adminToken := flag.String("admin-token", os.Getenv("GALLERY_ADMIN_TOKEN"), "Admin API token")
	publicURL := flag.String("public-url", os.Getenv("GALLERY_PUBLIC_URL"), "Public base URL for media links")
	upstreamURL := flag.String("upstream-url", os.Getenv("GALLERY_UPSTREAM_URL"), "AI gateway base URL (empty disables redesign)")
	upstreamKey := flag.String("upstream-key", os.Getenv("GALLERY_UPSTREAM_KEY"), "AI gateway API key")
	logLevel := flag.String("log-level", envOrDefault("GALLERY_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", envOrDefault("GALLERY_LOG_FORMAT", "json"), "Log format (json, text)")
	tlsCert := flag.String("tls-cert", os.Getenv("GALLERY_TLS_CERT"), "TLS certificate file")
	tlsKey := flag.String("tls-key", os.Getenv("GALLERY_TLS_KEY"), "TLS key file")
	flag.Parse()

	// Setup logger
	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if *logFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		logger.Error("failed to create data directory", "error", err, "path", *dataDir)
		os.Exit(1)
	}

	// Order, role, and token records
	st, err := store.New(filepath.Join(*dataDir, "gallery.db"))
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	if err := st.Initialize(); err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}

	// Item catalog
	catalog, err := store.NewCatalog(filepath.Join(*dataDir, "catalog.db"))
	if err != nil {
		logger.Error("failed to open catalog", "error", err)
		os.Exit(1)
	}
	defer catalog.Close()
	if err := catalog.Initialize(); err != nil {
		logger.Error("failed to initialize catalog", "error", err)
		os.Exit(1)
	}

	// Media files
	media, err := mediastore.NewFSStore(filepath.Join(*dataDir, "media"))
	if err != nil {
		logger.Error("failed to open media store", "error", err)
		os.Exit(1)
	}

	// Server config
	cfg := server.DefaultServerConfig()
	cfg.AdminToken = *adminToken
	cfg.PublicBaseURL = strings.TrimRight(*publicURL, "/")
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://" + *listen
	}

	deps := &server.Deps{
		Orders:  st,
		Catalog: catalog,
		Media:   media,
		Gate:    auth.NewGate(st, st),
		Tokens:  st,
		Roles:   st,
	}

	// AI relay
	if *upstreamURL != "" {
		deps.Relay = relay.NewClient(*upstreamURL, *upstreamKey, relay.ClientOptions{})
		logger.Info("redesign relay enabled", "upstream", *upstreamURL)
	} else {
		logger.Info("redesign relay disabled (no upstream URL)")
	}

	h, handlerCleanup := server.Handler(deps, cfg, logger)
	defer handlerCleanup()

	srv := &http.Server{
		Addr:         *listen,
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return context.Background() },
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting gallery-server", "listen", *listen, "data_dir", *dataDir)
		var err error
		if *tlsCert != "" && *tlsKey != "" {
			err = srv.ListenAndServeTLS(*tlsCert, *tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
