package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Sampath5633/Medica-Backend/internal/core/domain"
	"github.com/Sampath5633/Medica-Backend/internal/core/port"
	"github.com/Sampath5633/Medica-Backend/internal/infra/security"
	"github.com/Sampath5633/Medica-Backend/internal/repository"
)

type memoryAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
	updates  int
	findErr  error
	// honorCtx makes writes fail on a done context like the real drivers do.
	honorCtx bool
}

func newMemoryAccountRepo() *memoryAccountRepo {
	return &memoryAccountRepo{accounts: make(map[string]domain.Account)}
}

func (r *memoryAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	acc, ok := r.accounts[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &acc, nil
}

func (r *memoryAccountRepo) Create(_ context.Context, acc domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[acc.Email]; ok {
		return repository.ErrDuplicate
	}
	r.accounts[acc.Email] = acc
	return nil
}

func (r *memoryAccountRepo) Update(ctx context.Context, email string, update domain.AccountUpdate, upsert bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	if update.Empty() {
		return nil
	}
	acc, ok := r.accounts[email]
	if !ok {
		if !upsert {
			return repository.ErrNotFound
		}
		acc = domain.Account{Email: email, CreatedAt: update.UpdatedAt}
	}
	r.accounts[email] = update.Apply(acc)
	r.updates++
	return nil
}

func (r *memoryAccountRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.accounts)), nil
}

func (r *memoryAccountRepo) Ping(context.Context) error {
	return nil
}

func (r *memoryAccountRepo) get(t *testing.T, email string) domain.Account {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[email]
	if !ok {
		t.Fatalf("account %s not stored", email)
	}
	return acc
}

type memoryMailer struct {
	mu     sync.Mutex
	sent   []port.MailMessage
	err    error
	onSend func()
}

func (m *memoryMailer) Send(_ context.Context, msg port.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onSend != nil {
		m.onSend()
	}
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *memoryMailer) last(t *testing.T) port.MailMessage {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatalf("no mail sent")
	}
	return m.sent[len(m.sent)-1]
}

type sequenceCodes struct {
	mu    sync.Mutex
	codes []string
	next  int
}

func (g *sequenceCodes) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.next >= len(g.codes) {
		return "", errors.New("code sequence exhausted")
	}
	code := g.codes[g.next]
	g.next++
	return code, nil
}

type recordingEvents struct {
	mu     sync.Mutex
	names  []string
	resets []domain.PasswordResetRequestedEvent
}

func (e *recordingEvents) record(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.names = append(e.names, name)
	return nil
}

func (e *recordingEvents) PublishAccountRegistered(context.Context, domain.AccountRegisteredEvent) error {
	return e.record("registered")
}

func (e *recordingEvents) PublishAccountVerified(context.Context, domain.AccountVerifiedEvent) error {
	return e.record("verified")
}

func (e *recordingEvents) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	e.mu.Lock()
	e.resets = append(e.resets, event)
	e.mu.Unlock()
	return e.record("reset_requested")
}

func (e *recordingEvents) PublishPasswordResetCompleted(context.Context, domain.PasswordResetCompletedEvent) error {
	return e.record("reset_completed")
}

func (e *recordingEvents) PublishFeedbackSubmitted(context.Context, domain.FeedbackSubmittedEvent) error {
	return e.record("feedback")
}

type countingMetrics struct {
	mu       sync.Mutex
	issued   map[domain.ChallengePurpose]int
	checked  map[string]int
	failures int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{issued: map[domain.ChallengePurpose]int{}, checked: map[string]int{}}
}

func (m *countingMetrics) ChallengeIssued(purpose domain.ChallengePurpose) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued[purpose]++
}

func (m *countingMetrics) ChallengeChecked(purpose domain.ChallengePurpose, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checked[fmt.Sprintf("%s:%s", purpose, outcome)]++
}

func (m *countingMetrics) DeliveryFailed(domain.ChallengePurpose) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

type stubGenerator struct {
	text   string
	err    error
	prompt string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.text, g.err
}

type stubRenderer struct {
	err error
}

func (r stubRenderer) Render(w io.Writer, p domain.Prescription) error {
	if r.err != nil {
		return r.err
	}
	_, err := fmt.Fprintf(w, "%%PDF-stub %s", p.Disease)
	return err
}

type memoryArchive struct {
	keys []string
	err  error
}

func (a *memoryArchive) Put(_ context.Context, key, _ string, _ []byte) error {
	if a.err != nil {
		return a.err
	}
	a.keys = append(a.keys, key)
	return nil
}

type memoryFeedbackRepo struct {
	items []domain.Feedback
	err   error
}

func (r *memoryFeedbackRepo) Create(_ context.Context, fb domain.Feedback) error {
	if r.err != nil {
		return r.err
	}
	r.items = append(r.items, fb)
	return nil
}

type fakeInference struct {
	endpoint string
	payload  []byte
	resp     *port.InferenceResponse
	err      error
}

func (f *fakeInference) Forward(_ context.Context, endpoint string, payload []byte) (*port.InferenceResponse, error) {
	f.endpoint = endpoint
	f.payload = payload
	return f.resp, f.err
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testArgon2(t *testing.T) *security.Argon2Hasher {
	t.Helper()
	h, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}
	return h
}
