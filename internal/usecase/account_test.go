package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Sampath5633/Medica-Backend/internal/core/domain"
	"github.com/Sampath5633/Medica-Backend/internal/infra/config"
	"github.com/Sampath5633/Medica-Backend/internal/infra/security"
)

type accountFixture struct {
	svc     *AccountService
	repo    *memoryAccountRepo
	mailer  *memoryMailer
	events  *recordingEvents
	metrics *countingMetrics
	clock   *testClock
}

func newAccountFixture(t *testing.T, codes ...string) *accountFixture {
	t.Helper()

	clock := &testClock{now: time.Date(2025, 10, 12, 9, 0, 0, 0, time.UTC)}
	tokens, err := security.NewSessionTokenManager("test-secret", "medica-test", 2*time.Hour)
	if err != nil {
		t.Fatalf("NewSessionTokenManager returned error: %v", err)
	}
	tokens.WithClock(clock.Now)

	cfg := &config.AppConfig{Verification: config.VerificationSettings{CodeLength: 6, CodeTTL: 10 * time.Minute}}
	f := &accountFixture{
		repo:    newMemoryAccountRepo(),
		mailer:  &memoryMailer{},
		events:  &recordingEvents{},
		metrics: newCountingMetrics(),
		clock:   clock,
	}
	f.svc = NewAccountService(cfg, f.repo, testArgon2(t), &sequenceCodes{codes: codes}, tokens, f.mailer, f.events, nil, zaptest.NewLogger(t))
	f.svc.WithClock(clock.Now)
	f.svc.WithMetrics(f.metrics)
	return f
}

func (f *accountFixture) register(t *testing.T, email, password string) {
	t.Helper()
	if err := f.svc.Register(context.Background(), RegisterInput{Email: email, Password: password}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
}

func TestAccountService_RegisterStoresUnverifiedHashedAccount(t *testing.T) {
	f := newAccountFixture(t)
	f.register(t, "a@x.com", "pw1")

	acc := f.repo.get(t, "a@x.com")
	if acc.IsVerified {
		t.Fatalf("expected new account to be unverified")
	}
	if acc.PasswordHash == "pw1" || acc.PasswordHash == "" {
		t.Fatalf("expected stored hash to differ from the password, got %q", acc.PasswordHash)
	}
	ok, err := testArgon2(t).Verify("pw1", acc.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: ok=%v err=%v", ok, err)
	}
	if acc.Verification != nil || acc.Reset != nil {
		t.Fatalf("expected no challenges on a new account, got %+v / %+v", acc.Verification, acc.Reset)
	}
	if len(f.events.names) != 1 || f.events.names[0] != "registered" {
		t.Fatalf("expected registered event, got %v", f.events.names)
	}
}

func TestAccountService_RegisterRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name  string
		input RegisterInput
	}{
		{name: "missing email", input: RegisterInput{Password: "pw"}},
		{name: "blank email", input: RegisterInput{Email: "   ", Password: "pw"}},
		{name: "missing password", input: RegisterInput{Email: "a@x.com"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAccountFixture(t)
			err := f.svc.Register(context.Background(), tc.input)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestAccountService_RegisterDuplicate(t *testing.T) {
	f := newAccountFixture(t)
	f.register(t, "a@x.com", "pw1")

	err := f.svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "other"})
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestAccountService_RegisterAppliesPasswordPolicy(t *testing.T) {
	f := newAccountFixture(t)
	f.svc.policy = security.PasswordPolicyFromSettings(8, 0)

	err := f.svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "short"})
	if !errors.Is(err, ErrInvalidInput) || !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrInvalidInput and ErrWeakPassword, got %v", err)
	}
}

func TestAccountService_LoginStep1(t *testing.T) {
	t.Run("unknown email", func(t *testing.T) {
		f := newAccountFixture(t)
		_, err := f.svc.LoginStep1(context.Background(), LoginInput{Email: "nobody@x.com", Password: "pw"})
		if !errors.Is(err, ErrAccountNotFound) {
			t.Fatalf("expected ErrAccountNotFound, got %v", err)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newAccountFixture(t, "123456")
		f.register(t, "a@x.com", "pw1")
		_, err := f.svc.LoginStep1(context.Background(), LoginInput{Email: "a@x.com", Password: "nope"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if acc := f.repo.get(t, "a@x.com"); acc.Verification != nil {
			t.Fatalf("expected no challenge after failed password check")
		}
	})

	t.Run("unverified issues challenge", func(t *testing.T) {
		f := newAccountFixture(t, "123456")
		f.register(t, "a@x.com", "pw1")

		res, err := f.svc.LoginStep1(context.Background(), LoginInput{Email: "a@x.com", Password: "pw1"})
		if err != nil {
			t.Fatalf("LoginStep1 returned error: %v", err)
		}
		if res.Step != 2 || res.Session != nil {
			t.Fatalf("expected step 2 without session, got %+v", res)
		}

		acc := f.repo.get(t, "a@x.com")
		if acc.Verification == nil || acc.Verification.Code != "123456" {
			t.Fatalf("expected stored verification challenge, got %+v", acc.Verification)
		}
		wantExpiry := f.clock.Now().Add(10 * time.Minute)
		if !acc.Verification.ExpiresAt.Equal(wantExpiry) {
			t.Fatalf("expected expiry %s, got %s", wantExpiry, acc.Verification.ExpiresAt)
		}

		msg := f.mailer.last(t)
		if msg.To != "a@x.com" || msg.Subject != "Your Verification Code" || !strings.Contains(msg.Body, "123456") {
			t.Fatalf("unexpected verification mail %+v", msg)
		}
		if f.metrics.issued[domain.ChallengeVerification] != 1 {
			t.Fatalf("expected one issued verification challenge, got %v", f.metrics.issued)
		}
	})

	t.Run("verified receives session", func(t *testing.T) {
		f := newAccountFixture(t)
		f.register(t, "a@x.com", "pw1")
		verified := true
		if err := f.repo.Update(context.Background(), "a@x.com", domain.AccountUpdate{Verified: &verified}, false); err != nil {
			t.Fatalf("seed verified: %v", err)
		}

		res, err := f.svc.LoginStep1(context.Background(), LoginInput{Email: "a@x.com", Password: "pw1"})
		if err != nil {
			t.Fatalf("LoginStep1 returned error: %v", err)
		}
		if res.Session == nil {
			t.Fatalf("expected a session for a verified account")
		}
		claims, err := f.svc.ParseSession(res.Session.Token)
		if err != nil {
			t.Fatalf("ParseSession returned error: %v", err)
		}
		if claims.Email != "a@x.com" {
			t.Fatalf("expected email claim a@x.com, got %s", claims.Email)
		}
		if !claims.ExpiresAt.Equal(f.clock.Now().Add(2 * time.Hour)) {
			t.Fatalf("expected two hour session, got %s", claims.ExpiresAt)
		}
		if len(f.mailer.sent) != 0 {
			t.Fatalf("expected no mail for verified login")
		}
	})

	t.Run("delivery failure rolls back challenge", func(t *testing.T) {
		f := newAccountFixture(t, "123456")
		f.register(t, "a@x.com", "pw1")
		f.mailer.err = errors.New("smtp down")

		_, err := f.svc.LoginStep1(context.Background(), LoginInput{Email: "a@x.com", Password: "pw1"})
		if !errors.Is(err, ErrDeliveryFailure) {
			t.Fatalf("expected ErrDeliveryFailure, got %v", err)
		}
		if acc := f.repo.get(t, "a@x.com"); acc.Verification != nil {
			t.Fatalf("expected verification challenge to be rolled back, got %+v", acc.Verification)
		}
		if f.metrics.failures != 1 {
			t.Fatalf("expected one delivery failure, got %d", f.metrics.failures)
		}
	})
}

func TestAccountService_LoginStep2VerifiesOnceAndIsIdempotent(t *testing.T) {
	f := newAccountFixture(t, "123456")
	f.register(t, "a@x.com", "pw1")
	if _, err := f.svc.LoginStep1(context.Background(), LoginInput{Email: "a@x.com", Password: "pw1"}); err != nil {
		t.Fatalf("LoginStep1 returned error: %v", err)
	}

	f.clock.Advance(9 * time.Minute)
	res, err := f.svc.LoginStep2(context.Background(), VerifyCodeInput{Email: "a@x.com", Code: "123456"})
	if err != nil {
		t.Fatalf("LoginStep2 returned error: %v", err)
	}
	if res.Session == nil || res.AlreadyVerified {
		t.Fatalf("expected fresh verification with session, got %+v", res)
	}

	acc := f.repo.get(t, "a@x.com")
	if !acc.IsVerified || acc.Verification != nil {
		t.Fatalf("expected verified account with cleared challenge, got %+v", acc)
	}
	updates := f.repo.updates

	again, err := f.svc.LoginStep2(context.Background(), VerifyCodeInput{Email: "a@x.com", Code: "123456"})
	if err != nil {
		t.Fatalf("second LoginStep2 returned error: %v", err)
	}
	if !again.AlreadyVerified || again.Session == nil {
		t.Fatalf("expected idempotent already-verified result, got %+v", again)
	}
	if f.repo.updates != updates {
		t.Fatalf("expected no writes on repeated verification")
	}
	if f.metrics.checked["verification:accepted"] != 1 {
		t.Fatalf("expected a single accepted check, got %v", f.metrics.checked)
	}
}

func TestAccountService_LoginStep2ExpiredRegardlessOfCode(t *testing.T) {
	for _, code := range []string{"123456", "000000"} {
		t.Run(code, func(t *testing.T) {
			f := newAccountFixture(t, "123456")
			f.register(t, "a@x.com", "pw1")
			if _, err := f.svc.LoginStep1(context.Background(), LoginInput{Email: "a@x.com", Password: "pw1"}); err != nil {
				t.Fatalf("LoginStep1 returned error: %v", err)
			}

			f.clock.Advance(10*time.Minute + time.Second)
			_, err := f.svc.LoginStep2(context.Background(), VerifyCodeInput{Email: "a@x.com", Code: code})
			if !errors.Is(err, ErrCodeExpired) {
				t.Fatalf("expected ErrCodeExpired, got %v", err)
			}
			if acc := f.repo.get(t, "a@x.com"); acc.IsVerified {
				t.Fatalf("expired check must not verify the account")
			}
		})
	}
}

func TestAccountService_LoginStep2WrongCodeLeavesStateUntouched(t *testing.T) {
	f := newAccountFixture(t, "123456")
	f.register(t, "a@x.com", "pw1")
	if _, err := f.svc.LoginStep1(context.Background(), LoginInput{Email: "a@x.com", Password: "pw1"}); err != nil {
		t.Fatalf("LoginStep1 returned error: %v", err)
	}
	before := f.repo.get(t, "a@x.com")

	_, err := f.svc.LoginStep2(context.Background(), VerifyCodeInput{Email: "a@x.com", Code: "654321"})
	if !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid, got %v", err)
	}

	after := f.repo.get(t, "a@x.com")
	if after.IsVerified {
		t.Fatalf("wrong code must not verify the account")
	}
	if after.Verification == nil || *after.Verification != *before.Verification {
		t.Fatalf("wrong code must not clear the challenge, got %+v", after.Verification)
	}
}

func TestAccountService_LoginStep2WithoutChallenge(t *testing.T) {
	f := newAccountFixture(t)
	f.register(t, "a@x.com", "pw1")

	_, err := f.svc.LoginStep2(context.Background(), VerifyCodeInput{Email: "a@x.com", Code: "123456"})
	if !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid, got %v", err)
	}
}

func TestAccountService_LoginStep2UnknownEmail(t *testing.T) {
	f := newAccountFixture(t)
	_, err := f.svc.LoginStep2(context.Background(), VerifyCodeInput{Email: "nobody@x.com", Code: "123456"})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAccountService_PasswordReset(t *testing.T) {
	f := newAccountFixture(t, "111111")
	f.register(t, "a@x.com", "pw1")
	oldHash := f.repo.get(t, "a@x.com").PasswordHash

	if err := f.svc.SendResetCode(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("SendResetCode returned error: %v", err)
	}
	msg := f.mailer.last(t)
	if msg.Subject != "Password Reset Code" || !strings.Contains(msg.Body, "111111") {
		t.Fatalf("unexpected reset mail %+v", msg)
	}
	if len(f.events.resets) != 1 || f.events.resets[0].MaskedDestination == "a@x.com" {
		t.Fatalf("expected reset event with masked destination, got %+v", f.events.resets)
	}

	input := ResetPasswordInput{Email: "a@x.com", Code: "111111", NewPassword: "pw2"}
	if err := f.svc.ResetPassword(context.Background(), input); err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}

	acc := f.repo.get(t, "a@x.com")
	if acc.PasswordHash == oldHash {
		t.Fatalf("expected password hash to change")
	}
	if acc.Reset != nil {
		t.Fatalf("expected reset challenge to be cleared, got %+v", acc.Reset)
	}

	if err := f.svc.ResetPassword(context.Background(), input); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected reused code to fail with ErrCodeInvalid, got %v", err)
	}

	if _, err := f.svc.LoginStep1(context.Background(), LoginInput{Email: "a@x.com", Password: "pw1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to be rejected, got %v", err)
	}
}

func TestAccountService_ResetPasswordOnVerifiedAccount(t *testing.T) {
	f := newAccountFixture(t, "111111")
	f.register(t, "a@x.com", "pw1")
	verified := true
	if err := f.repo.Update(context.Background(), "a@x.com", domain.AccountUpdate{Verified: &verified}, false); err != nil {
		t.Fatalf("seed verified: %v", err)
	}

	if err := f.svc.SendResetCode(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("SendResetCode returned error: %v", err)
	}
	if err := f.svc.ResetPassword(context.Background(), ResetPasswordInput{Email: "a@x.com", Code: "111111", NewPassword: "pw2"}); err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}

	res, err := f.svc.LoginStep1(context.Background(), LoginInput{Email: "a@x.com", Password: "pw2"})
	if err != nil {
		t.Fatalf("LoginStep1 returned error: %v", err)
	}
	if res.Session == nil {
		t.Fatalf("expected reset to keep the account verified")
	}
}

func TestAccountService_ResetPasswordExpired(t *testing.T) {
	f := newAccountFixture(t, "111111")
	f.register(t, "a@x.com", "pw1")
	if err := f.svc.SendResetCode(context.Background(), "a@x.com"); err != nil {
		t.Fatalf("SendResetCode returned error: %v", err)
	}

	f.clock.Advance(11 * time.Minute)
	err := f.svc.ResetPassword(context.Background(), ResetPasswordInput{Email: "a@x.com", Code: "111111", NewPassword: "pw2"})
	if !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
}

func TestAccountService_ResetDeliveryFailureRollsBack(t *testing.T) {
	f := newAccountFixture(t, "111111")
	f.register(t, "a@x.com", "pw1")
	f.mailer.err = errors.New("smtp down")

	err := f.svc.SendResetCode(context.Background(), "a@x.com")
	if !errors.Is(err, ErrDeliveryFailure) {
		t.Fatalf("expected ErrDeliveryFailure, got %v", err)
	}
	if acc := f.repo.get(t, "a@x.com"); acc.Reset != nil {
		t.Fatalf("expected no reset challenge after failed delivery, got %+v", acc.Reset)
	}

	err = f.svc.ResetPassword(context.Background(), ResetPasswordInput{Email: "a@x.com", Code: "111111", NewPassword: "pw2"})
	if !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected undelivered code to be rejected, got %v", err)
	}
	if len(f.events.resets) != 0 {
		t.Fatalf("expected no reset event for failed delivery")
	}
}

func TestAccountService_RollbackSurvivesCancelledRequest(t *testing.T) {
	f := newAccountFixture(t, "111111")
	f.register(t, "a@x.com", "pw1")
	f.repo.honorCtx = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.mailer.onSend = cancel
	f.mailer.err = context.Canceled

	if err := f.svc.SendResetCode(ctx, "a@x.com"); !errors.Is(err, ErrDeliveryFailure) {
		t.Fatalf("expected ErrDeliveryFailure, got %v", err)
	}
	if acc := f.repo.get(t, "a@x.com"); acc.Reset != nil {
		t.Fatalf("expected reset challenge cleared after cancelled delivery, got %+v", acc.Reset)
	}

	err := f.svc.ResetPassword(context.Background(), ResetPasswordInput{Email: "a@x.com", Code: "111111", NewPassword: "pw2"})
	if !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected undelivered code to be rejected, got %v", err)
	}
}

func TestAccountService_SendResetCodeUnknownEmail(t *testing.T) {
	f := newAccountFixture(t, "111111")
	if err := f.svc.SendResetCode(context.Background(), "nobody@x.com"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAccountService_SendVerificationCodeUpserts(t *testing.T) {
	f := newAccountFixture(t, "222222", "333333")

	if err := f.svc.SendVerificationCode(context.Background(), "new@x.com"); err != nil {
		t.Fatalf("SendVerificationCode returned error: %v", err)
	}
	acc := f.repo.get(t, "new@x.com")
	if acc.IsVerified || acc.Verification == nil || acc.Verification.Code != "222222" {
		t.Fatalf("expected unverified upserted record with challenge, got %+v", acc)
	}

	// The upserted record occupies the email.
	err := f.svc.Register(context.Background(), RegisterInput{Email: "new@x.com", Password: "pw"})
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists after upsert, got %v", err)
	}

	f.mailer.err = errors.New("smtp down")
	if err := f.svc.SendVerificationCode(context.Background(), "new@x.com"); !errors.Is(err, ErrDeliveryFailure) {
		t.Fatalf("expected ErrDeliveryFailure, got %v", err)
	}
	if acc := f.repo.get(t, "new@x.com"); acc.Verification != nil {
		t.Fatalf("expected rolled back challenge, got %+v", acc.Verification)
	}
}

func TestAccountService_ParseSession(t *testing.T) {
	f := newAccountFixture(t)
	f.register(t, "a@x.com", "pw1")
	verified := true
	_ = f.repo.Update(context.Background(), "a@x.com", domain.AccountUpdate{Verified: &verified}, false)

	res, err := f.svc.LoginStep1(context.Background(), LoginInput{Email: "a@x.com", Password: "pw1"})
	if err != nil {
		t.Fatalf("LoginStep1 returned error: %v", err)
	}

	if _, err := f.svc.ParseSession("not-a-token"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}

	f.clock.Advance(2*time.Hour + time.Second)
	if _, err := f.svc.ParseSession(res.Session.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

// Concurrent issuance is last-writer-wins: both codes are mailed but only the stored one redeems.
func TestAccountService_ConcurrentResetIssuanceKeepsOneCode(t *testing.T) {
	f := newAccountFixture(t, "111111", "222222")
	f.register(t, "a@x.com", "pw1")

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.svc.SendResetCode(context.Background(), "a@x.com"); err != nil {
				t.Errorf("SendResetCode returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(f.mailer.sent) != 2 {
		t.Fatalf("expected both codes to be mailed, got %d", len(f.mailer.sent))
	}
	stored := f.repo.get(t, "a@x.com").Reset.Code
	stale := "111111"
	if stored == stale {
		stale = "222222"
	}

	err := f.svc.ResetPassword(context.Background(), ResetPasswordInput{Email: "a@x.com", Code: stale, NewPassword: "pw2"})
	if !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected overwritten code to be rejected, got %v", err)
	}
	if err := f.svc.ResetPassword(context.Background(), ResetPasswordInput{Email: "a@x.com", Code: stored, NewPassword: "pw2"}); err != nil {
		t.Fatalf("expected stored code to redeem, got %v", err)
	}
}

func TestAccountService_RegistrationAndLoginScenario(t *testing.T) {
	f := newAccountFixture(t, "123456", "654321")
	ctx := context.Background()

	f.register(t, "a@x.com", "pw1")

	if err := f.svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "pw1"}); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected conflict on second registration, got %v", err)
	}

	if _, err := f.svc.LoginStep1(ctx, LoginInput{Email: "a@x.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	step1, err := f.svc.LoginStep1(ctx, LoginInput{Email: "a@x.com", Password: "pw1"})
	if err != nil || step1.Step != 2 {
		t.Fatalf("expected step 2, got %+v / %v", step1, err)
	}

	step2, err := f.svc.LoginStep2(ctx, VerifyCodeInput{Email: "a@x.com", Code: "123456"})
	if err != nil || step2.Session == nil {
		t.Fatalf("expected verified session, got %+v / %v", step2, err)
	}

	f.register(t, "b@x.com", "pw1")
	if _, err := f.svc.LoginStep1(ctx, LoginInput{Email: "b@x.com", Password: "pw1"}); err != nil {
		t.Fatalf("LoginStep1 returned error: %v", err)
	}
	f.clock.Advance(10*time.Minute + time.Second)
	if _, err := f.svc.LoginStep2(ctx, VerifyCodeInput{Email: "b@x.com", Code: "654321"}); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected expired code, got %v", err)
	}
}
