package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sampath5633/Medica-Backend/internal/core/domain"
	"github.com/Sampath5633/Medica-Backend/internal/core/port"
	"github.com/Sampath5633/Medica-Backend/internal/infra/config"
	"github.com/Sampath5633/Medica-Backend/internal/infra/logger"
	"github.com/Sampath5633/Medica-Backend/internal/infra/security"
	"github.com/Sampath5633/Medica-Backend/internal/repository"
)

const (
	defaultCodeTTL  = 10 * time.Minute
	rollbackTimeout = 5 * time.Second
)

const (
	verificationSubject = "Your Verification Code"
	verificationBody    = "Your verification code is: %s"
	resetSubject        = "Password Reset Code"
	resetBody           = "Your password reset code is: %s"
)

// RegisterInput carries the registration payload.
type RegisterInput struct {
	Email    string
	Password string
}

// LoginInput carries the credential check payload of login step 1.
type LoginInput struct {
	Email    string
	Password string
}

// VerifyCodeInput carries the code check payload of login step 2.
type VerifyCodeInput struct {
	Email string
	Code  string
}

// ResetPasswordInput carries the payload that completes a password reset.
type ResetPasswordInput struct {
	Email       string
	Code        string
	NewPassword string
}

// SessionGrant is an issued session token.
type SessionGrant struct {
	Token     string
	ExpiresAt time.Time
}

// LoginResult describes the outcome of either login step. Session is nil when a verification
// challenge was issued and the client must continue with step 2.
type LoginResult struct {
	Step            int
	Session         *SessionGrant
	AlreadyVerified bool
	CodeExpiresAt   time.Time
}

// AccountService owns the registration, verification and password reset state machine.
type AccountService struct {
	accounts port.AccountRepository
	hasher   port.PasswordHasher
	codes    port.CodeGenerator
	tokens   port.SessionTokenIssuer
	mailer   port.Mailer
	events   port.EventPublisher
	policy   port.PasswordPolicyValidator
	metrics  ChallengeMetrics
	logger   *zap.Logger
	now      func() time.Time
	codeTTL  time.Duration
}

// NewAccountService constructs an AccountService.
func NewAccountService(
	cfg *config.AppConfig,
	accounts port.AccountRepository,
	hasher port.PasswordHasher,
	codes port.CodeGenerator,
	tokens port.SessionTokenIssuer,
	mailer port.Mailer,
	events port.EventPublisher,
	policy port.PasswordPolicyValidator,
	log *zap.Logger,
) *AccountService {
	if policy == nil {
		policy = security.NewPasswordPolicy()
	}
	if codes == nil {
		codes = security.NumericCodeGenerator{Length: security.DefaultCodeLength}
	}
	if log == nil {
		log = zap.NewNop()
	}

	ttl := defaultCodeTTL
	if cfg != nil && cfg.Verification.CodeTTL > 0 {
		ttl = cfg.Verification.CodeTTL
	}

	return &AccountService{
		accounts: accounts,
		hasher:   hasher,
		codes:    codes,
		tokens:   tokens,
		mailer:   mailer,
		events:   events,
		policy:   policy,
		metrics:  noopChallengeMetrics{},
		logger:   log,
		now:      time.Now,
		codeTTL:  ttl,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *AccountService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithMetrics attaches challenge counters.
func (s *AccountService) WithMetrics(metrics ChallengeMetrics) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// Register creates an unverified account with no outstanding challenges.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) error {
	if err := s.ready(); err != nil {
		return err
	}
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if err := s.policy.Validate(input.Password, email); err != nil {
		return fmt.Errorf("%w: %w: %v", ErrInvalidInput, ErrWeakPassword, err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	acc := domain.Account{
		Email:        email,
		PasswordHash: hash,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrAccountExists
		}
		return fmt.Errorf("create account: %w", err)
	}

	s.publish(ctx, "account registered", func(ctx context.Context) error {
		return s.events.PublishAccountRegistered(ctx, domain.AccountRegisteredEvent{
			EventID:      uuid.NewString(),
			Email:        email,
			RegisteredAt: now,
		})
	})

	return nil
}

// LoginStep1 checks the password. A verified account receives a session directly; an unverified
// one gets a fresh verification challenge by email and must continue with LoginStep2.
func (s *AccountService) LoginStep1(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	acc, err := s.lookup(ctx, email)
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Verify(input.Password, acc.PasswordHash)
	if err != nil {
		// A record created by the standalone verification request has no hash yet.
		s.logger.Debug("password verification failed", zap.String("email", logger.MaskEmail(email)), zap.Error(err))
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if acc.IsVerified {
		grant, err := s.issueSession(email)
		if err != nil {
			return nil, err
		}
		return &LoginResult{Step: 1, Session: grant}, nil
	}

	ch, err := s.issueChallenge(ctx, email, domain.ChallengeVerification, false)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Step: 2, CodeExpiresAt: ch.ExpiresAt}, nil
}

// LoginStep2 checks the verification code, marks the account verified and issues a session.
// Repeated calls on a verified account are idempotent.
func (s *AccountService) LoginStep2(ctx context.Context, input VerifyCodeInput) (*LoginResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(input.Email)
	code := strings.TrimSpace(input.Code)
	if email == "" || code == "" {
		return nil, fmt.Errorf("%w: email and code are required", ErrInvalidInput)
	}

	acc, err := s.lookup(ctx, email)
	if err != nil {
		return nil, err
	}

	if acc.IsVerified {
		grant, err := s.issueSession(email)
		if err != nil {
			return nil, err
		}
		return &LoginResult{Step: 2, Session: grant, AlreadyVerified: true}, nil
	}

	now := s.now().UTC()
	if err := s.checkChallenge(domain.ChallengeVerification, acc.Verification, code, now); err != nil {
		return nil, err
	}

	verified := true
	update := domain.AccountUpdate{
		Verified:          &verified,
		ClearVerification: true,
		UpdatedAt:         now,
	}
	if err := s.accounts.Update(ctx, email, update, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("mark account verified: %w", err)
	}

	s.publish(ctx, "account verified", func(ctx context.Context) error {
		return s.events.PublishAccountVerified(ctx, domain.AccountVerifiedEvent{
			EventID:    uuid.NewString(),
			Email:      email,
			VerifiedAt: now,
		})
	})

	grant, err := s.issueSession(email)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Step: 2, Session: grant}, nil
}

// SendVerificationCode issues a verification challenge outside the login flow. The record is
// created when absent, so a later registration for the same email reports ErrAccountExists.
func (s *AccountService) SendVerificationCode(ctx context.Context, email string) error {
	if err := s.ready(); err != nil {
		return err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	_, err := s.issueChallenge(ctx, email, domain.ChallengeVerification, true)
	return err
}

// SendResetCode issues a password reset challenge for an existing account.
func (s *AccountService) SendResetCode(ctx context.Context, email string) error {
	if err := s.ready(); err != nil {
		return err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	if _, err := s.lookup(ctx, email); err != nil {
		return err
	}

	requestedAt := s.now().UTC()
	ch, err := s.issueChallenge(ctx, email, domain.ChallengePasswordReset, false)
	if err != nil {
		return err
	}

	s.publish(ctx, "password reset requested", func(ctx context.Context) error {
		return s.events.PublishPasswordResetRequested(ctx, domain.PasswordResetRequestedEvent{
			EventID:           uuid.NewString(),
			Email:             email,
			MaskedDestination: logger.MaskEmail(email),
			RequestedAt:       requestedAt,
			ExpiresAt:         ch.ExpiresAt,
		})
	})
	return nil
}

// ResetPassword replaces the password hash and consumes the reset challenge in one update.
func (s *AccountService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	if err := s.ready(); err != nil {
		return err
	}
	email := strings.TrimSpace(input.Email)
	code := strings.TrimSpace(input.Code)
	if email == "" || code == "" || input.NewPassword == "" {
		return fmt.Errorf("%w: email, code and new password are required", ErrInvalidInput)
	}
	if err := s.policy.Validate(input.NewPassword, email); err != nil {
		return fmt.Errorf("%w: %w: %v", ErrInvalidInput, ErrWeakPassword, err)
	}

	acc, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	if err := s.checkChallenge(domain.ChallengePasswordReset, acc.Reset, code, now); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	update := domain.AccountUpdate{
		PasswordHash: &hash,
		ClearReset:   true,
		UpdatedAt:    now,
	}
	if err := s.accounts.Update(ctx, email, update, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	s.publish(ctx, "password reset completed", func(ctx context.Context) error {
		return s.events.PublishPasswordResetCompleted(ctx, domain.PasswordResetCompletedEvent{
			EventID:   uuid.NewString(),
			Email:     email,
			ChangedAt: now,
		})
	})
	return nil
}

// ParseSession verifies a session token without a store lookup.
func (s *AccountService) ParseSession(token string) (*port.SessionClaims, error) {
	if s.tokens == nil {
		return nil, ErrServiceUnavailable
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrSessionInvalid
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, security.ErrSessionTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrSessionInvalid
	}
	return claims, nil
}

func (s *AccountService) ready() error {
	if s.accounts == nil || s.hasher == nil || s.tokens == nil || s.mailer == nil {
		return ErrServiceUnavailable
	}
	return nil
}

func (s *AccountService) lookup(ctx context.Context, email string) (*domain.Account, error) {
	acc, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return acc, nil
}

// checkChallenge tests expiry before the code so an expired challenge reports ErrCodeExpired
// whether or not the code matches.
func (s *AccountService) checkChallenge(purpose domain.ChallengePurpose, ch *domain.Challenge, code string, now time.Time) error {
	if ch == nil {
		s.metrics.ChallengeChecked(purpose, OutcomeInvalid)
		return ErrCodeInvalid
	}
	if ch.Expired(now) {
		s.metrics.ChallengeChecked(purpose, OutcomeExpired)
		return ErrCodeExpired
	}
	if subtle.ConstantTimeCompare([]byte(ch.Code), []byte(code)) != 1 {
		s.metrics.ChallengeChecked(purpose, OutcomeInvalid)
		return ErrCodeInvalid
	}
	s.metrics.ChallengeChecked(purpose, OutcomeAccepted)
	return nil
}

// issueChallenge stores a fresh challenge for purpose and mails it. When delivery fails the
// pair is cleared again so no undelivered code stays redeemable.
func (s *AccountService) issueChallenge(ctx context.Context, email string, purpose domain.ChallengePurpose, upsert bool) (*domain.Challenge, error) {
	code, err := s.codes.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	now := s.now().UTC()
	ch := &domain.Challenge{Code: code, ExpiresAt: now.Add(s.codeTTL)}

	set := domain.AccountUpdate{UpdatedAt: now}
	rollback := domain.AccountUpdate{UpdatedAt: now}
	msg := port.MailMessage{To: email}
	switch purpose {
	case domain.ChallengePasswordReset:
		set.Reset = ch
		rollback.ClearReset = true
		msg.Subject = resetSubject
		msg.Body = fmt.Sprintf(resetBody, code)
	default:
		set.Verification = ch
		rollback.ClearVerification = true
		msg.Subject = verificationSubject
		msg.Body = fmt.Sprintf(verificationBody, code)
	}

	if err := s.accounts.Update(ctx, email, set, upsert); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("store %s challenge: %w", purpose, err)
	}
	s.metrics.ChallengeIssued(purpose)

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.metrics.DeliveryFailed(purpose)
		s.logger.Warn("challenge delivery failed",
			zap.String("purpose", string(purpose)),
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err),
		)
		// The send may have failed because ctx ended; the rollback must still land.
		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
		defer cancel()
		if rbErr := s.accounts.Update(rbCtx, email, rollback, false); rbErr != nil {
			s.logger.Error("challenge rollback failed",
				zap.String("purpose", string(purpose)),
				zap.String("email", logger.MaskEmail(email)),
				zap.Error(rbErr),
			)
		}
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}

	s.logger.Info("challenge issued",
		zap.String("purpose", string(purpose)),
		zap.String("email", logger.MaskEmail(email)),
		zap.Time("expires_at", ch.ExpiresAt),
	)
	return ch, nil
}

func (s *AccountService) issueSession(email string) (*SessionGrant, error) {
	token, expiresAt, err := s.tokens.Issue(email, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	return &SessionGrant{Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AccountService) publish(ctx context.Context, name string, fn func(context.Context) error) {
	if s.events == nil {
		return
	}
	if err := fn(ctx); err != nil {
		s.logger.Warn("failed to publish event", zap.String("event", name), zap.Error(err))
	}
}
