package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/Sampath5633/Medica-Backend/internal/core/port"
	"github.com/Sampath5633/Medica-Backend/internal/infra/config"
	"github.com/Sampath5633/Medica-Backend/internal/infra/database"
	genaiinfra "github.com/Sampath5633/Medica-Backend/internal/infra/genai"
	"github.com/Sampath5633/Medica-Backend/internal/infra/inference"
	kafkainfra "github.com/Sampath5633/Medica-Backend/internal/infra/kafka"
	"github.com/Sampath5633/Medica-Backend/internal/infra/mail"
	"github.com/Sampath5633/Medica-Backend/internal/infra/pdf"
	redisinfra "github.com/Sampath5633/Medica-Backend/internal/infra/redis"
	"github.com/Sampath5633/Medica-Backend/internal/infra/security"
	"github.com/Sampath5633/Medica-Backend/internal/infra/storage"
	"github.com/Sampath5633/Medica-Backend/internal/infra/telemetry"
	memoryrepo "github.com/Sampath5633/Medica-Backend/internal/repository/memory"
	mongorepo "github.com/Sampath5633/Medica-Backend/internal/repository/mongo"
	postgresrepo "github.com/Sampath5633/Medica-Backend/internal/repository/postgres"
	redisrepo "github.com/Sampath5633/Medica-Backend/internal/repository/redis"
	"github.com/Sampath5633/Medica-Backend/internal/transport/http/middleware"
	"github.com/Sampath5633/Medica-Backend/internal/transport/http/routes"
	"github.com/Sampath5633/Medica-Backend/internal/usecase"
)

const version = "1.0.0"

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	closers  []func(context.Context) error
	producer *kafkainfra.Producer
}

type stores struct {
	accounts port.AccountRepository
	feedback port.FeedbackRepository
}

func New(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*Application, error) {
	a := &Application{cfg: cfg, logger: log}

	if cfg.Telemetry.OTLPEndpoint != "" {
		tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, version, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		a.closers = append(a.closers, tp.Shutdown)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: registry})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}
	domainMetrics, err := telemetry.NewDomainMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("init domain metrics: %w", err)
	}

	st, err := a.openStores(ctx)
	if err != nil {
		a.close(context.Background())
		return nil, err
	}

	mailer, err := mail.New(cfg.Mail, log)
	if err != nil {
		a.close(context.Background())
		return nil, fmt.Errorf("init mail: %w", err)
	}

	events := a.eventPublisher(domainMetrics)

	rateLimitStore, cache := a.rateLimitStore(ctx)

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		a.close(context.Background())
		return nil, fmt.Errorf("init argon2: %w", err)
	}

	sessions, err := security.NewSessionTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.SessionTTL)
	if err != nil {
		a.close(context.Background())
		return nil, fmt.Errorf("init session tokens: %w", err)
	}

	codes := security.NumericCodeGenerator{Length: cfg.Verification.CodeLength}
	policy := security.PasswordPolicyFromSettings(cfg.Password.MinLength, cfg.Password.MinScore)

	accountService := usecase.NewAccountService(cfg, st.accounts, hasher, codes, sessions, mailer, events, policy, log)
	accountService.WithMetrics(domainMetrics)

	var predictor port.InferenceClient
	if cfg.Inference.BaseURL != "" {
		client, err := inference.NewClient(cfg.Inference, log)
		if err != nil {
			a.close(context.Background())
			return nil, fmt.Errorf("init inference client: %w", err)
		}
		predictor = client
	} else {
		log.Warn("inference base url not configured, prediction endpoints will answer 503")
	}

	var generator port.TextGenerator
	if cfg.GenAI.APIKey != "" {
		gen, err := genaiinfra.NewGenerator(ctx, cfg.GenAI)
		if err != nil {
			a.close(context.Background())
			return nil, fmt.Errorf("init genai: %w", err)
		}
		generator = gen
	} else {
		log.Warn("genai api key not configured, treatment plans fall back to a consult-a-doctor plan")
	}

	var archive port.DocumentArchive
	if cfg.Prescriptions.S3Bucket != "" {
		s3Archive, err := storage.NewS3Archive(ctx, cfg.Prescriptions)
		if err != nil {
			a.close(context.Background())
			return nil, fmt.Errorf("init prescription archive: %w", err)
		}
		archive = s3Archive
		log.Info("prescription archive enabled", zap.String("bucket", cfg.Prescriptions.S3Bucket))
	}

	deps := routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: middleware.NewRateLimiter(rateLimitStore, log),
		HTTPMetrics: httpMetrics,
		Gatherer:    registry,
		Database:    st.accounts,
		Services: routes.ServiceSet{
			Accounts:      accountService,
			Feedback:      usecase.NewFeedbackService(st.feedback, events, log),
			Predictions:   usecase.NewPredictionService(predictor),
			Treatments:    usecase.NewTreatmentService(generator, log),
			Prescriptions: usecase.NewPrescriptionService(pdf.NewRenderer(), archive, cfg.Prescriptions.S3Prefix, log),
			Store:         usecase.NewStoreStatus(st.accounts),
		},
	}
	if cache != nil {
		deps.Cache = cache
	}
	a.engine = routes.Register(deps)

	return a, nil
}

func (a *Application) openStores(ctx context.Context) (*stores, error) {
	cfg, log := a.cfg, a.logger

	switch cfg.Store.Driver {
	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			pool.Close()
			return nil
		})
		if cfg.Postgres.AutoMigrate {
			if err := database.MigratePostgres(ctx, pool, log); err != nil {
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		repos := postgresrepo.NewRepositories(pool)
		return &stores{accounts: repos.Accounts, feedback: repos.Feedback}, nil

	case "memory":
		log.Warn("using in-memory store, data is lost on restart")
		return &stores{accounts: memoryrepo.NewAccountRepository(), feedback: memoryrepo.NewFeedbackRepository()}, nil

	default:
		client, err := database.NewMongoClient(ctx, cfg.Mongo, cfg.Store.Timeout, log)
		if err != nil {
			return nil, fmt.Errorf("init mongo: %w", err)
		}
		a.closers = append(a.closers, client.Disconnect)
		db := client.Database(cfg.Mongo.Database)
		accounts := mongorepo.NewAccountRepository(db.Collection(mongorepo.UsersCollection))
		if err := accounts.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return &stores{
			accounts: accounts,
			feedback: mongorepo.NewFeedbackRepository(db.Collection(mongorepo.FeedbackCollection)),
		}, nil
	}
}

func (a *Application) eventPublisher(metrics *telemetry.DomainMetrics) port.EventPublisher {
	cfg, log := a.cfg, a.logger
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka brokers not configured, using stub publisher")
		return kafkainfra.NewStubPublisher(log)
	}

	producer, err := kafkainfra.NewProducer(cfg.Kafka, log, metrics.EventDropped)
	if err != nil {
		log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(log)
	}
	a.producer = producer
	log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	return kafkainfra.NewEventPublisher(producer, cfg.App, log)
}

// rateLimitStore returns the shared Redis window when enabled and reachable, otherwise a
// process-local one.
func (a *Application) rateLimitStore(ctx context.Context) (port.RateLimitStore, *redisinfra.Client) {
	cfg, log := a.cfg, a.logger
	if !cfg.Redis.Enabled {
		return memoryrepo.NewRateLimitStore(), nil
	}

	client, err := redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Warn("redis unavailable, rate limits are per instance", zap.Error(err))
		return memoryrepo.NewRateLimitStore(), nil
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })

	store := redisrepo.NewRateLimitRepository(client.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.KeyPrefix,
		TTL:       2 * cfg.RateLimit.LongestWindow(),
	})
	return store, client
}

func (a *Application) close(ctx context.Context) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("close dependency", zap.Error(err))
		}
	}
	a.closers = nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting Medica API",
		zap.String("env", a.cfg.App.Env),
		zap.String("store", a.cfg.Store.Driver),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		a.close(shutdownCtx)
		if err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		a.close(context.Background())
		return err
	}
}
