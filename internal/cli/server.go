package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"betting-assessment-service/internal/app"
	"betting-assessment-service/internal/config"
	"betting-assessment-service/internal/infra/memory"
	"betting-assessment-service/internal/infra/postgres"
	redisinfra "betting-assessment-service/internal/infra/redis"
	"betting-assessment-service/internal/logger"
	"betting-assessment-service/internal/monitoring"
	transport "betting-assessment-service/internal/transport/http"
	"betting-assessment-service/internal/upload"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the assessment HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// loadConfig falls back to defaults when the file does not exist.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *zap.Logger {
	return logger.New(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
}

// backends holds the optional external connections.
type backends struct {
	pool   *pgxpool.Pool
	store  *postgres.QuestionStore
	redis  *redis.Client
	images upload.ImageStore
}

func (b *backends) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

func connectBackends(ctx context.Context, cfg config.Config, log *zap.Logger) (*backends, error) {
	b := &backends{images: upload.InlineImageStore{}}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.pool = pool
		b.store = postgres.NewQuestionStore(pool)
	} else {
		log.Warn("no postgres configured, question sets will not be persisted")
	}

	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, continuing with local state only", zap.Error(err))
		}
	}

	if cfg.Storage.Type == "minio" {
		store, err := upload.NewMinioImageStore(upload.MinioConfig{
			Endpoint:      cfg.Storage.MinioEndpoint,
			AccessKey:     cfg.Storage.MinioAccessKey,
			SecretKey:     cfg.Storage.MinioSecretKey,
			Bucket:        cfg.Storage.MinioBucket,
			UseSSL:        cfg.Storage.MinioUseSSL,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			b.Close()
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			b.Close()
			return nil, err
		}
		b.images = store
	}
	return b, nil
}

func newImporter(cfg config.Config, b *backends, log *zap.Logger) *upload.Importer {
	opts := []upload.ImporterOption{
		upload.WithWorkers(cfg.Upload.ImageWorkers),
		upload.WithLogger(log),
	}
	if b.store != nil {
		opts = append(opts, upload.WithWriter(b.store))
	}
	return upload.NewImporter(b.images, upload.ImageProcessor{MaxBytes: cfg.Upload.MaxImageBytes}, opts...)
}

func newService(cfg config.Config, b *backends, metrics *monitoring.Metrics, log *zap.Logger) *app.AssessmentService {
	var repo app.AssessmentRepository = memory.NewAssessmentStore()
	if b.redis != nil {
		repo = redisinfra.NewAssessmentStore(b.redis, config.TTLDuration(cfg.Redis.TTL, 24*time.Hour), redisinfra.WithLogger(log))
	}
	registry := app.NewRegistry(repo, app.WithDefaults(app.Defaults{
		InitialCoins:  cfg.Assessment.InitialCoins,
		WinMultiplier: cfg.Assessment.WinMultiplier,
		TimerSeconds:  cfg.Assessment.TimerSeconds,
	}))

	opts := []app.ServiceOption{app.WithLogger(log), app.WithObserver(metrics)}
	if b.store != nil {
		ttl := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
		var sets app.QuestionSetRepository
		if b.redis != nil {
			sets = redisinfra.NewQuestionSetRepository(b.redis, b.store, ttl)
		} else {
			sets = memory.NewQuestionSetRepository(b.store, ttl)
		}
		opts = append(opts, app.WithQuestionSets(sets))
	}
	return app.NewAssessmentService(registry, opts...)
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	b, err := connectBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	metrics := monitoring.New()
	service := newService(cfg, b, metrics, log)

	handlerOpts := []transport.HandlerOption{
		transport.WithLogger(log),
		transport.WithLimits(transport.Limits{
			MaxFileBytes: cfg.Upload.MaxFileBytes,
			MaxZipBytes:  cfg.Upload.MaxZipBytes,
		}),
	}
	if b.store != nil {
		handlerOpts = append(handlerOpts, transport.WithDatabase(b.store))
	}
	handler := transport.NewHandler(service, newImporter(cfg, b, log), handlerOpts...)

	gin.SetMode(cfg.Server.Mode)
	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	router := transport.NewRouter(serveCtx, handler, metrics, log, transport.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.RateLimit.MaxRequests,
		RateWindow:     config.TTLDuration(cfg.RateLimit.Window, time.Minute),
	})
	router.MaxMultipartMemory = cfg.Upload.MaxFileBytes

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 60*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 60*time.Second),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting assessment service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return server.Shutdown(shutdownCtx)
}
