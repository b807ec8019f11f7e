package config

import (
	"testing"
	"time"
)

func TestLoadReadsConventionalEnvNames(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("MONGO_URI", "mongodb://db.internal:27017")
	t.Setenv("MAIL_SERVER", "smtp.example.com")
	t.Setenv("MAIL_PORT", "2525")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("PORT", "8088")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Mongo.URI != "mongodb://db.internal:27017" {
		t.Fatalf("unexpected mongo uri %q", cfg.Mongo.URI)
	}
	if cfg.Mail.Server != "smtp.example.com" || cfg.Mail.Port != 2525 {
		t.Fatalf("unexpected mail settings %+v", cfg.Mail)
	}
	if cfg.GenAI.APIKey != "gem-key" {
		t.Fatalf("unexpected genai key %q", cfg.GenAI.APIKey)
	}
	if cfg.App.Port != 8088 {
		t.Fatalf("expected PORT override, got %d", cfg.App.Port)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MEDICA_JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Store.Driver != "mongo" {
		t.Fatalf("expected mongo driver by default, got %q", cfg.Store.Driver)
	}
	if cfg.Verification.CodeTTL != 10*time.Minute || cfg.Verification.CodeLength != 6 {
		t.Fatalf("unexpected verification defaults %+v", cfg.Verification)
	}
	if cfg.JWT.SessionTTL != 2*time.Hour {
		t.Fatalf("expected 2h session ttl, got %s", cfg.JWT.SessionTTL)
	}
	if cfg.Inference.MaxRetries != 0 {
		t.Fatalf("expected no inference retries by default, got %d", cfg.Inference.MaxRetries)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "https://medica3.netlify.app" {
		t.Fatalf("unexpected cors origins %v", cfg.CORS.AllowedOrigins)
	}
	rl := cfg.RateLimit
	if rl.CodeVerifyWindow != 10*time.Minute || rl.CodeVerifyMaxAttempts != 5 || rl.CodeVerifyIPMaxAttempts != 20 {
		t.Fatalf("unexpected code redemption limits %+v", rl)
	}
	if len(cfg.App.TrustedProxies) != 0 {
		t.Fatalf("expected no trusted proxies by default, got %v", cfg.App.TrustedProxies)
	}
}

func TestRateLimitWindowsOutliveEveryRule(t *testing.T) {
	var unset RateLimitSettings
	if unset.Window() != time.Minute || unset.VerifyWindow() != 10*time.Minute {
		t.Fatalf("unexpected fallback windows %s / %s", unset.Window(), unset.VerifyWindow())
	}
	if unset.LongestWindow() != 10*time.Minute {
		t.Fatalf("expected redemption window to bound key lifetime, got %s", unset.LongestWindow())
	}

	long := RateLimitSettings{WindowDuration: time.Hour, CodeVerifyWindow: 5 * time.Minute}
	if long.LongestWindow() != time.Hour {
		t.Fatalf("expected the issuance window to win, got %s", long.LongestWindow())
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("MEDICA_JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without jwt secret")
	}
}

func TestValidateRejectsUnknownDrivers(t *testing.T) {
	cfg := &AppConfig{
		Store: StoreSettings{Driver: "sqlite"},
		Mail:  MailSettings{Driver: "smtp"},
		JWT:   JWTSettings{Secret: "x"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown store driver")
	}

	cfg.Store.Driver = "postgres"
	cfg.Mail.Driver = "pigeon"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown mail driver")
	}
}
