package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"faqpage/internal/app"
	"faqpage/internal/auth"
	"faqpage/internal/config"
	"faqpage/internal/invalidate"
	"faqpage/internal/og"
	"faqpage/internal/page"
	"faqpage/internal/search"
	"faqpage/internal/store"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and public page server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func migrateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			db, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			logger.Info().Msg("migrations applied")
			return nil
		},
	}
}

func reindexCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Push every claimed page into the search index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.MeiliURL) == "" {
				return errors.New("MEILI_URL is not set")
			}
			db, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
			defer meiliClient.Close()
			return search.NewService(meiliClient, store.NewPostgresStore(db), logger).ReindexAll(cmd.Context())
		},
	}
}

// tokenCmd signs a bearer token with the configured secret, for local testing
// without the identity provider.
func tokenCmd(flags *globalFlags) *cobra.Command {
	var (
		name    string
		picture string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue a development bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(flags)
			if err != nil {
				return err
			}
			token, err := auth.IssueToken([]byte(cfg.AuthSecret), auth.Claims{
				Sub:     args[0],
				Name:    name,
				Picture: picture,
				Exp:     time.Now().Add(ttl).Unix(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name claim")
	cmd.Flags().StringVar(&picture, "picture", "", "avatar URL claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func setup(flags *globalFlags) (config.Config, zerolog.Logger, error) {
	if err := config.LoadDotEnv(flags.envFile); err != nil {
		return config.Config{}, zerolog.Nop(), fmt.Errorf("load %s: %w", flags.envFile, err)
	}
	cfg := config.Load()
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	return cfg, newLogger(cfg.LogLevel), nil
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(parsed).With().Timestamp().Str("service", appName).Logger()
}

func openDatabase(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := store.Open(ctx, cfg.DatabaseURL, store.PoolConfig{MaxOpenConns: cfg.DBMaxConns})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	migrations, err := store.Migrations(cfg.MigrationsDir)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.ApplyMigrations(ctx, db, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}
	return db, nil
}

func serve(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	dataStore := store.NewPostgresStore(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var notifiers invalidate.Fanout
	var pageCache *page.Cache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable, pages are served uncached until it recovers")
		}
		pageCache = page.NewCache(client, cfg.PageCacheTTL)
		notifiers = append(notifiers, invalidate.NewRedis(client, cfg.InvalidateChannel, page.KeyPrefix))
	}
	if strings.TrimSpace(cfg.RevalidateURL) != "" {
		notifiers = append(notifiers, invalidate.NewWebhook(cfg.RevalidateURL, cfg.RevalidateSecret))
	}

	var searchService *search.Service
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
		searchService = search.NewService(meiliClient, dataStore, logger)
		notifiers = append(notifiers, searchService)
		go func() {
			if err := searchService.ReindexAll(ctx); err != nil {
				logger.Warn().Err(err).Msg("initial reindex failed")
			}
		}()
	}

	ogGenerator, err := newOGGenerator(ctx, cfg, logger)
	if err != nil {
		return err
	}

	dispatcher := invalidate.NewDispatcher(notifiers, logger, registry)
	service := app.New(cfg, dataStore, dispatcher, logger, registry)
	httpServer := app.NewHTTPServer(service, app.ServerOptions{
		Verifier:   auth.NewVerifier(cfg.AuthSecret),
		PageCache:  pageCache,
		OG:         ogGenerator,
		Search:     searchService,
		Metrics:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSOrigin: cfg.CORSOrigin,
		Logger:     logger,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("public_url", cfg.PublicURL).Msg("faqpage listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	logger.Info().Msg("faqpage stopped")
	return nil
}

// newOGGenerator returns nil when no chromium is installed; the route then
// answers 503.
func newOGGenerator(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*og.Generator, error) {
	if !og.Available() {
		logger.Warn().Msg("chromium not found, og image generation disabled")
		return nil, nil
	}
	var cache og.Cache
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		objects, err := og.NewObjectCache(og.ObjectCacheConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Str("bucket", cfg.MinioBucket).Msg("og bucket unavailable, rendering uncached")
		} else {
			cache = objects
		}
	}
	return og.NewGenerator(og.NewChromeRenderer(cfg.OGRenderTimeout), cache, logger.With().Str("component", "og").Logger()), nil
}
