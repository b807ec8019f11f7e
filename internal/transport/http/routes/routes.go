package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/Sampath5633/Medica-Backend/internal/infra/config"
	"github.com/Sampath5633/Medica-Backend/internal/transport/http/handlers"
	"github.com/Sampath5633/Medica-Backend/internal/transport/http/middleware"
	"github.com/Sampath5633/Medica-Backend/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Accounts      *usecase.AccountService
	Feedback      *usecase.FeedbackService
	Predictions   *usecase.PredictionService
	Treatments    *usecase.TreatmentService
	Prescriptions *usecase.PrescriptionService
	Store         *usecase.StoreStatus
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	HTTPMetrics *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for the account store.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// X-Forwarded-For is honoured only from configured proxies so clients cannot pick the IP
	// their rate limits are keyed on.
	if err := r.SetTrustedProxies(deps.Config.App.TrustedProxies); err != nil {
		deps.Logger.Error("invalid trusted proxies, ignoring forwarded headers", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))
	if deps.Config.Telemetry.OTLPEndpoint != "" {
		r.Use(otelgin.Middleware(serviceName(deps.Config)))
	}
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(deps.HTTPMetrics.Handler())

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", metricsHandler(deps.Gatherer))

	clinicalHandler := handlers.NewClinicalHandler(
		deps.Services.Predictions,
		deps.Services.Treatments,
		deps.Services.Prescriptions,
		deps.Logger,
	)
	r.POST("/predict", clinicalHandler.Predict)
	r.POST("/repredict", clinicalHandler.Repredict)

	api := r.Group("/api")
	{
		accountHandler := handlers.NewAccountHandler(deps.Services.Accounts)

		limits := deps.Config.RateLimit
		window, verifyWindow := limits.Window(), limits.VerifyWindow()

		api.POST("/register", accountHandler.Register)
		api.POST("/login-step1", withLimit(deps, accountHandler.LoginStep1,
			ipRule("login_ip", limits.LoginMaxAttempts, window))...)
		api.POST("/login-step2", withLimit(deps, accountHandler.LoginStep2,
			emailRule("verify_code_email", limits.CodeVerifyMaxAttempts, verifyWindow),
			ipRule("verify_code_ip", limits.CodeVerifyIPMaxAttempts, verifyWindow))...)
		api.POST("/send-verification-code", withLimit(deps, accountHandler.SendVerificationCode,
			ipRule("verification_code_ip", limits.CodeIssueMaxAttempts, window))...)
		api.POST("/send-reset-code", withLimit(deps, accountHandler.SendResetCode,
			ipRule("reset_code_ip", limits.PasswordResetMaxAttempts, window))...)
		api.POST("/reset-password", withLimit(deps, accountHandler.ResetPassword,
			emailRule("reset_password_email", limits.CodeVerifyMaxAttempts, verifyWindow),
			ipRule("reset_password_ip", limits.CodeVerifyIPMaxAttempts, verifyWindow))...)
		if deps.Services.Accounts != nil {
			api.GET("/session", middleware.RequireSession(deps.Services.Accounts), accountHandler.Session)
		}

		api.POST("/treatment", clinicalHandler.Treatment)
		api.POST("/treatment/download", clinicalHandler.DownloadPrescription)

		feedbackHandler := handlers.NewFeedbackHandler(deps.Services.Feedback, deps.Logger)
		api.POST("/feedback", feedbackHandler.Submit)
		api.POST("/submit-feedback", feedbackHandler.SubmitAnonymous)

		pingHandler := handlers.NewPingHandler(deps.Services.Store, deps.Config.Store.Driver, deps.Logger)
		api.GET("/ping-db", pingHandler.PingDB)
	}

	return r
}

// withLimit prepends the sliding window limiter to handler for every rule with a positive limit.
func withLimit(deps Dependencies, handler gin.HandlerFunc, rules ...middleware.RateLimitRule) []gin.HandlerFunc {
	if deps.RateLimiter == nil {
		return []gin.HandlerFunc{handler}
	}

	active := make([]middleware.RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Limit <= 0 {
			continue
		}
		if rule.Window <= 0 {
			rule.Window = time.Minute
		}
		active = append(active, rule)
	}
	if len(active) == 0 {
		return []gin.HandlerFunc{handler}
	}
	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(active...), handler}
}

func ipRule(name string, limit int, window time.Duration) middleware.RateLimitRule {
	return middleware.RateLimitRule{Name: name, Limit: limit, Window: window, Identifier: middleware.ClientIPIdentifier()}
}

func emailRule(name string, limit int, window time.Duration) middleware.RateLimitRule {
	return middleware.RateLimitRule{Name: name, Limit: limit, Window: window, Identifier: middleware.EmailIdentifier()}
}

func metricsHandler(g prometheus.Gatherer) gin.HandlerFunc {
	if g == nil {
		return gin.WrapH(promhttp.Handler())
	}
	return gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

func serviceName(cfg *config.AppConfig) string {
	if cfg.Telemetry.ServiceName != "" {
		return cfg.Telemetry.ServiceName
	}
	if cfg.App.Name != "" {
		return cfg.App.Name
	}
	return "medica-backend"
}
