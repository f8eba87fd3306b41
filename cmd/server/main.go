package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/narrately/audio-forge/internal/api"
	"github.com/narrately/audio-forge/internal/chunker"
	"github.com/narrately/audio-forge/internal/config"
	"github.com/narrately/audio-forge/internal/generation"
	"github.com/narrately/audio-forge/internal/hls"
	"github.com/narrately/audio-forge/internal/jobs"
	"github.com/narrately/audio-forge/internal/observability"
	"github.com/narrately/audio-forge/internal/provider"
	"github.com/narrately/audio-forge/internal/resilience"
	"github.com/narrately/audio-forge/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("provider_base_url", cfg.ProviderBaseURL).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Audio Forge Service starting")

	httpClient := &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSecs) * time.Second}

	// TTS provider client
	providerClient := provider.NewClient(
		cfg.ProviderBaseURL,
		cfg.ProviderAPIKey,
		cfg.ProviderVoiceID,
		cfg.ProviderModelID,
		cfg.ProviderVoiceSampleURL,
		httpClient,
	)

	// Job record store: Redis when configured, in-process otherwise
	var store jobs.Store
	var redisStore *jobs.RedisStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		redisStore = jobs.NewRedisStore(redisClient,
			jobs.WithTTL(time.Duration(cfg.RedisTTLHours)*time.Hour))
		store = redisStore
		logger.Info().Str("redis_addr", cfg.RedisAddr).Msg("Using Redis job store")
	} else {
		store = jobs.NewMemoryStore()
		logger.Warn().Msg("REDIS_ADDR not set, job records will not survive restarts")
	}

	// Storage sink for finished audio
	sink := storage.NewLocalSink(cfg.StorageDir, cfg.StorageBaseURL)

	breaker := resilience.NewCircuitBreaker(
		"tts-provider",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)

	orch := generation.NewOrchestrator(generation.Config{
		Provider:  providerClient,
		Store:     store,
		Sink:      sink,
		Assembler: hls.NewAssembler(httpClient),
		Fetch:     httpClient,
		Breaker:   breaker,
		ChunkOptions: chunker.Options{
			MaxWordsPerChunk:     cfg.MaxWordsPerChunk,
			MaxCharsPerChunk:     cfg.MaxCharsPerChunk,
			OverlapWords:         cfg.OverlapWords,
			PreferSentenceBreaks: cfg.PreferSentenceBreaks,
		},
		ChunkThreshold: cfg.ChunkThresholdWords,
	})

	// Create HTTP server
	mux := http.NewServeMux()

	// Narration API
	pollPolicy := resilience.PollPolicy{
		MaxAttempts: cfg.PollMaxAttempts,
		Interval:    time.Duration(cfg.PollIntervalSecs) * time.Second,
	}
	api.NewHandler(orch, pollPolicy).Register(mux)

	// Serve finished audio from the local sink
	mux.Handle("/audio/", http.StripPrefix("/audio/", http.FileServer(http.Dir(cfg.StorageDir))))

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness checks: store reachability and a writable sink. The
	// provider is not probed to avoid burning API quota on every check.
	readinessChecks := map[string]observability.HealthCheckFunc{
		"storage": func(ctx context.Context) (bool, error) {
			if err := sink.Writable(ctx); err != nil {
				return false, err
			}
			return true, nil
		},
	}
	if redisStore != nil {
		readinessChecks["redis"] = func(ctx context.Context) (bool, error) {
			if err := redisStore.Ping(ctx); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(readinessChecks))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts. The write timeout must cover the
	// blocking await endpoint's full poll budget.
	awaitBudget := time.Duration(cfg.PollMaxAttempts*cfg.PollIntervalSecs) * time.Second
	writeTimeout := time.Duration(cfg.HTTPTimeoutSecs+15) * time.Second
	if awaitBudget+30*time.Second > writeTimeout {
		writeTimeout = awaitBudget + 30*time.Second
	}
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
