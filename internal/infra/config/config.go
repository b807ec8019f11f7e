package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App           AppSettings          `mapstructure:"app"`
	CORS          CORSSettings         `mapstructure:"cors"`
	Store         StoreSettings        `mapstructure:"store"`
	Mongo         MongoSettings        `mapstructure:"mongo"`
	Postgres      PostgresSettings     `mapstructure:"postgres"`
	Redis         RedisSettings        `mapstructure:"redis"`
	Kafka         KafkaSettings        `mapstructure:"kafka"`
	JWT           JWTSettings          `mapstructure:"jwt"`
	Argon2        Argon2Settings       `mapstructure:"argon2"`
	Password      PasswordSettings     `mapstructure:"password"`
	Verification  VerificationSettings `mapstructure:"verification"`
	RateLimit     RateLimitSettings    `mapstructure:"rate_limit"`
	Mail          MailSettings         `mapstructure:"mail"`
	Inference     InferenceSettings    `mapstructure:"inference"`
	GenAI         GenAISettings        `mapstructure:"genai"`
	Prescriptions PrescriptionSettings `mapstructure:"prescriptions"`
	Telemetry     TelemetrySettings    `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// TrustedProxies lists proxy CIDRs whose X-Forwarded-For is honoured. Empty trusts none.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type CORSSettings struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StoreSettings selects the account and feedback persistence backend ("mongo", "postgres" or
// "memory" for local runs).
type StoreSettings struct {
	Driver  string        `mapstructure:"driver"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MongoSettings struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	AutoMigrate       bool          `mapstructure:"auto_migrate"`
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// KafkaSettings configures Kafka producer
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

type JWTSettings struct {
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// Argon2Settings configures Argon2id password hashing parameters
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

// PasswordSettings tunes the optional password policy. Zero disables a rule.
type PasswordSettings struct {
	MinLength int `mapstructure:"min_length"`
	MinScore  int `mapstructure:"min_score"`
}

// VerificationSettings controls one-time codes used for verification and reset.
type VerificationSettings struct {
	CodeLength int           `mapstructure:"code_length"`
	CodeTTL    time.Duration `mapstructure:"code_ttl"`
}

// RateLimitSettings configures rate limiting windows and max attempts per endpoint
type RateLimitSettings struct {
	WindowDuration           time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts         int           `mapstructure:"login_max_attempts"`
	CodeIssueMaxAttempts     int           `mapstructure:"code_issue_max_attempts"`
	PasswordResetMaxAttempts int           `mapstructure:"password_reset_max_attempts"`
	// Code redemption (login step 2, reset completion) is limited per email and per client IP
	// over its own window, which defaults to the code lifetime.
	CodeVerifyWindow        time.Duration `mapstructure:"code_verify_window"`
	CodeVerifyMaxAttempts   int           `mapstructure:"code_verify_max_attempts"`
	CodeVerifyIPMaxAttempts int           `mapstructure:"code_verify_ip_max_attempts"`
}

const (
	defaultRateLimitWindow  = time.Minute
	defaultCodeVerifyWindow = 10 * time.Minute
)

// Window is the issuance and login window, one minute when unset.
func (r RateLimitSettings) Window() time.Duration {
	if r.WindowDuration <= 0 {
		return defaultRateLimitWindow
	}
	return r.WindowDuration
}

// VerifyWindow is the code redemption window, ten minutes when unset.
func (r RateLimitSettings) VerifyWindow() time.Duration {
	if r.CodeVerifyWindow <= 0 {
		return defaultCodeVerifyWindow
	}
	return r.CodeVerifyWindow
}

// LongestWindow bounds how long a shared store must keep an attempt.
func (r RateLimitSettings) LongestWindow() time.Duration {
	return max(r.Window(), r.VerifyWindow())
}

// MailSettings selects the mail transport ("smtp", "postmark" or "log") and its credentials.
type MailSettings struct {
	Driver        string        `mapstructure:"driver"`
	Server        string        `mapstructure:"server"`
	Port          int           `mapstructure:"port"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	UseTLS        bool          `mapstructure:"use_tls"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	From          string        `mapstructure:"from"`
	PostmarkToken string        `mapstructure:"postmark_token"`
	PostmarkURL   string        `mapstructure:"postmark_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type InferenceSettings struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type GenAISettings struct {
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	Temperature     float32       `mapstructure:"temperature"`
	MaxOutputTokens int32         `mapstructure:"max_output_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// PrescriptionSettings configures optional S3 archiving of rendered prescriptions.
type PrescriptionSettings struct {
	S3Bucket          string `mapstructure:"s3_bucket"`
	S3Region          string `mapstructure:"s3_region"`
	S3Endpoint        string `mapstructure:"s3_endpoint"`
	S3AccessKeyID     string `mapstructure:"s3_access_key_id"`
	S3SecretAccessKey string `mapstructure:"s3_secret_access_key"`
	S3Prefix          string `mapstructure:"s3_prefix"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("MEDICA")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.trusted_proxies",
		"cors.allowed_origins",
		"store.driver",
		"store.timeout",
		"mongo.uri",
		"mongo.database",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"postgres.auto_migrate",
		"redis.enabled",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.key_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"jwt.secret",
		"jwt.issuer",
		"jwt.session_ttl",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"password.min_length",
		"password.min_score",
		"verification.code_length",
		"verification.code_ttl",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"rate_limit.code_issue_max_attempts",
		"rate_limit.password_reset_max_attempts",
		"rate_limit.code_verify_window",
		"rate_limit.code_verify_max_attempts",
		"rate_limit.code_verify_ip_max_attempts",
		"mail.driver",
		"mail.server",
		"mail.port",
		"mail.username",
		"mail.password",
		"mail.use_tls",
		"mail.use_ssl",
		"mail.from",
		"mail.postmark_token",
		"mail.postmark_url",
		"mail.timeout",
		"inference.base_url",
		"inference.timeout",
		"inference.max_retries",
		"genai.model",
		"genai.temperature",
		"genai.max_output_tokens",
		"genai.timeout",
		"prescriptions.s3_bucket",
		"prescriptions.s3_region",
		"prescriptions.s3_endpoint",
		"prescriptions.s3_access_key_id",
		"prescriptions.s3_secret_access_key",
		"prescriptions.s3_prefix",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
	}); err != nil {
		return nil, err
	}

	// Hosting platforms inject the listen port as PORT.
	if err := v.BindEnv("app.port", "MEDICA_APP_PORT", "APP_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("bind env for app.port: %w", err)
	}
	// The Gemini key keeps its conventional name.
	if err := v.BindEnv("genai.api_key", "MEDICA_GENAI_API_KEY", "GENAI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env for genai.api_key: %w", err)
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *AppConfig) Validate() error {
	switch c.Store.Driver {
	case "mongo", "postgres", "memory":
	default:
		return fmt.Errorf("config: unsupported store.driver %q", c.Store.Driver)
	}
	switch c.Mail.Driver {
	case "smtp", "postmark", "log":
	default:
		return fmt.Errorf("config: unsupported mail.driver %q", c.Mail.Driver)
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("config: jwt.secret is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "medica-backend")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 5000)
	v.SetDefault("app.trusted_proxies", []string{})

	v.SetDefault("cors.allowed_origins", []string{"https://medica3.netlify.app"})

	v.SetDefault("store.driver", "mongo")
	v.SetDefault("store.timeout", "5s")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "medica")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "medica")
	v.SetDefault("postgres.password", "medica_password")
	v.SetDefault("postgres.database", "medica")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.key_prefix", "medica:rate-limit")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "medica")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "medica-backend")
	v.SetDefault("jwt.session_ttl", "2h")

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("password.min_length", 1)
	v.SetDefault("password.min_score", 0)

	v.SetDefault("verification.code_length", 6)
	v.SetDefault("verification.code_ttl", "10m")

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 10)
	v.SetDefault("rate_limit.code_issue_max_attempts", 5)
	v.SetDefault("rate_limit.password_reset_max_attempts", 5)
	v.SetDefault("rate_limit.code_verify_window", "10m")
	v.SetDefault("rate_limit.code_verify_max_attempts", 5)
	v.SetDefault("rate_limit.code_verify_ip_max_attempts", 20)

	v.SetDefault("mail.driver", "smtp")
	v.SetDefault("mail.server", "smtp.gmail.com")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.use_tls", true)
	v.SetDefault("mail.use_ssl", false)
	v.SetDefault("mail.postmark_url", "https://api.postmarkapp.com/email")
	v.SetDefault("mail.timeout", "15s")

	v.SetDefault("inference.base_url", "https://sampath563-medica-backend.hf.space")
	v.SetDefault("inference.timeout", "60s")
	v.SetDefault("inference.max_retries", 0)

	v.SetDefault("genai.model", "gemini-2.5-pro")
	v.SetDefault("genai.temperature", 0.4)
	v.SetDefault("genai.max_output_tokens", 2048)
	v.SetDefault("genai.timeout", "60s")

	v.SetDefault("prescriptions.s3_region", "us-east-1")
	v.SetDefault("prescriptions.s3_prefix", "prescriptions")

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "medica-backend")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "MEDICA_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
