package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Sampath5633/Medica-Backend/internal/core/port"
	appLogger "github.com/Sampath5633/Medica-Backend/internal/infra/logger"
)

const (
	rateLimitProblemType  = "https://medica3.netlify.app/errors/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"

	emailIdentifierPrefix = "email:"
	// identifierBodyLimit bounds how much of a request body is parsed to find the email.
	identifierBodyLimit = 64 << 10
	oversizedBodyBucket = "oversized-body"
)

// RateLimitStore is backed by Redis or by the in-process store when Redis is disabled.
type RateLimitStore = port.RateLimitStore

// IdentifierFunc extracts the identifier used to scope rate limits.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule configures a sliding-window limit for a particular identifier.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

type RateLimiter struct {
	store  RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// ProblemDetails is an RFC 9457 payload. Message repeats Detail for clients that read "message";
// Limit names the rule that refused the request.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Message    string `json:"message"`
	Instance   string `json:"instance"`
	Limit      string `json:"limit"`
	RetryAfter int    `json:"retry_after"`
	TraceID    string `json:"trace_id,omitempty"`
}

// window is one rule's view of the current request.
type window struct {
	rule    RateLimitRule
	subject string
	key     string
	count   int
	reset   time.Time
}

func (w window) exhausted() bool { return w.count >= w.rule.Limit }

func (w window) remaining() int { return max(w.rule.Limit-w.count, 0) }

// tighter reports whether w should drive the X-RateLimit headers instead of other.
func (w window) tighter(other window) bool {
	if w.remaining() != other.remaining() {
		return w.remaining() < other.remaining()
	}
	return w.reset.Before(other.reset)
}

// NewRateLimiter builds a reusable rate limiter middleware helper.
func NewRateLimiter(store RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateLimiter{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIPIdentifier builds an IdentifierFunc using the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		if ip == "" {
			return "", false
		}
		return ip, true
	}
}

// EmailIdentifier scopes a limit to the account named by the "email" field of a JSON body, so
// guesses against one account share a window whatever address they come from. The body is
// restored for the handler. Bodies too large to inspect share a single window. Requests without
// a usable email skip the rule; the handlers reject them before any code is checked.
func EmailIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		if c.Request.Body == nil {
			return "", false
		}
		head, err := io.ReadAll(io.LimitReader(c.Request.Body, identifierBodyLimit+1))
		c.Request.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(head), c.Request.Body), Closer: c.Request.Body}
		if err != nil {
			return "", false
		}
		if len(head) > identifierBodyLimit {
			return emailIdentifierPrefix + oversizedBodyBucket, true
		}

		var payload struct {
			Email string `json:"email"`
		}
		if err := json.Unmarshal(head, &payload); err != nil {
			return "", false
		}
		email := strings.ToLower(strings.TrimSpace(payload.Email))
		if email == "" {
			return "", false
		}
		return emailIdentifierPrefix + email, true
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}

// maskIdentifier keeps emails and client IPs out of the logs in clear.
func maskIdentifier(identifier string) string {
	if email, ok := strings.CutPrefix(identifier, emailIdentifierPrefix); ok {
		return appLogger.MaskEmail(email)
	}
	return appLogger.MaskIP(identifier)
}

// RateLimit enforces rules in order. The first exhausted rule answers 429. Attempts are recorded
// only after every rule admits the request, so a request refused on the IP rule leaves the email
// window untouched. Store errors skip the rule.
func (rl *RateLimiter) RateLimit(rules ...RateLimitRule) gin.HandlerFunc {
	active := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
			continue
		}
		if rule.Name == "" {
			rule.Name = "default"
		}
		active = append(active, rule)
	}

	return func(c *gin.Context) {
		if len(active) == 0 || rl.store == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		now := rl.now()
		admitted := make([]window, 0, len(active))

		for _, rule := range active {
			subject, ok := rule.Identifier(c)
			if !ok || subject == "" {
				continue
			}

			w, err := rl.inspect(ctx, rule, subject, now)
			if err != nil {
				rl.logger.Warn("rate limit check failed",
					zap.String("rule", rule.Name),
					zap.String("subject", maskIdentifier(subject)),
					zap.Error(err),
				)
				continue
			}
			if w.exhausted() {
				rl.logger.Info("rate limit exceeded",
					zap.String("rule", rule.Name),
					zap.String("subject", maskIdentifier(subject)),
					zap.String("trace_id", GetTraceID(c)),
				)
				rl.reject(c, w, now)
				return
			}
			admitted = append(admitted, w)
		}

		var tightest *window
		for i := range admitted {
			w := &admitted[i]
			if err := rl.store.RecordAttempt(ctx, w.key, now); err != nil {
				rl.logger.Warn("rate limit record failed",
					zap.String("rule", w.rule.Name),
					zap.String("subject", maskIdentifier(w.subject)),
					zap.Error(err),
				)
				continue
			}
			w.count++
			if tightest == nil || w.tighter(*tightest) {
				tightest = w
			}
		}
		if tightest != nil {
			setLimitHeaders(c, *tightest, now)
		}

		c.Next()
	}
}

// inspect trims the rule's window and reads its state without recording anything.
func (rl *RateLimiter) inspect(ctx context.Context, rule RateLimitRule, subject string, now time.Time) (window, error) {
	key := rule.Name + ":" + subject
	if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return window{}, err
	}
	count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return window{}, err
	}
	oldest, ok, err := rl.store.OldestAttempt(ctx, key, rule.Window, now)
	if err != nil {
		return window{}, err
	}

	w := window{rule: rule, subject: subject, key: key, count: count, reset: now.Add(rule.Window)}
	if ok {
		w.reset = oldest.Add(rule.Window)
	}
	return w, nil
}

func retryAfterSeconds(reset, now time.Time) int {
	return max(int(math.Ceil(reset.Sub(now).Seconds())), 0)
}

func setLimitHeaders(c *gin.Context, w window, now time.Time) {
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(w.rule.Limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(w.remaining()))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(w.reset.Unix(), 10))
	if w.exhausted() {
		headers.Set("Retry-After", strconv.Itoa(retryAfterSeconds(w.reset, now)))
	}
}

func (rl *RateLimiter) reject(c *gin.Context, w window, now time.Time) {
	setLimitHeaders(c, w, now)

	retry := retryAfterSeconds(w.reset, now)
	detail := fmt.Sprintf("Too many requests. Try again in %d seconds.", retry)
	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     detail,
		Message:    detail,
		Instance:   instance,
		Limit:      w.rule.Name,
		RetryAfter: retry,
		TraceID:    GetTraceID(c),
	})
}
