package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"cropzip/internal/config"
	"cropzip/internal/logging"
	"cropzip/internal/pipeline"
	"cropzip/internal/s3util"
)

// CLI flags
var (
	portFlag        int
	concurrencyFlag int
	urlTTLFlag      time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "cropzip-web",
	Short: "Image crop-and-archive service",
	Long: `cropzip-web starts an HTTP server that splits an uploaded image into a
grid of tiles, packages the tiles into a ZIP archive, stores the archive in
S3, and returns a time-limited download link.

Examples:
  cropzip-web
  cropzip-web --port 9090
  cropzip-web --concurrency 4`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides CROPZIP_PORT)")
	rootCmd.Flags().IntVar(&concurrencyFlag, "concurrency", 0, "Max concurrent tile encodes (overrides CROPZIP_CONCURRENCY)")
	rootCmd.Flags().DurationVar(&urlTTLFlag, "url-ttl", 0, "Download link validity window (overrides CROPZIP_URL_TTL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if portFlag > 0 {
		cfg.Port = portFlag
	}
	if concurrencyFlag > 0 {
		cfg.EncodeConcurrency = concurrencyFlag
	}
	if urlTTLFlag > 0 {
		cfg.URLTTL = urlTTLFlag
	}

	ctx := context.Background()
	store, err := s3util.New(ctx, cfg.Bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize S3 clients")
	}

	srv := &server{
		jobs: pipeline.New(store, pipeline.Options{
			EncodeConcurrency: cfg.EncodeConcurrency,
			MaxUploadAttempts: cfg.MaxUploadAttempts,
			UploadBackoff:     cfg.UploadBackoff,
			URLTTL:            cfg.URLTTL,
		}),
		store: store,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/crop", srv.handleCrop)
	mux.HandleFunc("/api/archive", srv.handleArchiveDelete)
	mux.HandleFunc("/healthz", srv.handleHealthz)

	handler := withLogging(withCORS(mux))

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(ctx)
	}()

	log.Info().
		Int("port", cfg.Port).
		Str("bucket", cfg.Bucket).
		Int("concurrency", cfg.EncodeConcurrency).
		Msg("Starting crop service")

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// --- Middleware ---

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r)
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("request_id", requestID).
				Dur("duration", time.Since(start)).
				Msg("API request")
		}
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only allow localhost origins for local development
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
