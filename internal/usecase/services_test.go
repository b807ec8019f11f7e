package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Sampath5633/Medica-Backend/internal/core/domain"
	"github.com/Sampath5633/Medica-Backend/internal/core/port"
)

func TestFeedbackService_Submit(t *testing.T) {
	repo := &memoryFeedbackRepo{}
	events := &recordingEvents{}
	svc := NewFeedbackService(repo, events, zaptest.NewLogger(t))
	fixed := time.Date(2025, 10, 12, 9, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return fixed })

	if _, err := svc.Submit(context.Background(), FeedbackInput{Name: "Ann", Message: "hi"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing email, got %v", err)
	}

	fb, err := svc.Submit(context.Background(), FeedbackInput{Name: "Ann", Email: "ann@x.com", Message: "great"})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if fb.ID == "" || !fb.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected feedback %+v", fb)
	}
	if len(repo.items) != 1 || len(events.names) != 1 {
		t.Fatalf("expected one stored item and one event, got %d / %d", len(repo.items), len(events.names))
	}
}

func TestFeedbackService_SubmitAnonymous(t *testing.T) {
	repo := &memoryFeedbackRepo{}
	svc := NewFeedbackService(repo, nil, zaptest.NewLogger(t))

	if _, err := svc.SubmitAnonymous(context.Background(), FeedbackInput{Email: "a@x.com"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing message, got %v", err)
	}

	fb, err := svc.SubmitAnonymous(context.Background(), FeedbackInput{Message: "nice"})
	if err != nil {
		t.Fatalf("SubmitAnonymous returned error: %v", err)
	}
	if fb.Email != domain.AnonymousFeedbackEmail {
		t.Fatalf("expected anonymous email, got %q", fb.Email)
	}

	repo.err = errors.New("insert failed")
	if _, err := svc.SubmitAnonymous(context.Background(), FeedbackInput{Message: "nice"}); err == nil || errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestPredictionService_Forward(t *testing.T) {
	client := &fakeInference{resp: &port.InferenceResponse{StatusCode: 200, Body: []byte(`{"disease":"flu"}`)}}
	svc := NewPredictionService(client)

	resp, err := svc.Repredict(context.Background(), []byte(`{"symptoms":["fever"]}`))
	if err != nil {
		t.Fatalf("Repredict returned error: %v", err)
	}
	if client.endpoint != EndpointRepredict || resp.StatusCode != 200 {
		t.Fatalf("unexpected forward endpoint=%s resp=%+v", client.endpoint, resp)
	}

	if _, err := svc.Predict(context.Background(), []byte("not json")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	client.err = errors.New("connection refused")
	if _, err := svc.Predict(context.Background(), []byte(`{}`)); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestPrescriptionService_RenderArchives(t *testing.T) {
	archive := &memoryArchive{}
	svc := NewPrescriptionService(stubRenderer{}, archive, "/prescriptions/", zaptest.NewLogger(t))
	svc.WithClock(func() time.Time { return time.Date(2025, 10, 12, 9, 0, 0, 0, time.UTC) })

	doc, err := svc.Render(context.Background(), domain.Prescription{Disease: "Flu"})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.HasPrefix(string(doc), "%PDF") {
		t.Fatalf("unexpected document %q", doc)
	}
	if len(archive.keys) != 1 || !strings.HasPrefix(archive.keys[0], "prescriptions/2025/10/12/20251012T090000Z-") {
		t.Fatalf("unexpected archive keys %v", archive.keys)
	}
}

func TestPrescriptionService_ArchiveFailureIsNotFatal(t *testing.T) {
	svc := NewPrescriptionService(stubRenderer{}, &memoryArchive{err: errors.New("s3 down")}, "", zaptest.NewLogger(t))
	if _, err := svc.Render(context.Background(), domain.Prescription{Disease: "Flu"}); err != nil {
		t.Fatalf("expected archive failure to be tolerated, got %v", err)
	}

	failing := NewPrescriptionService(stubRenderer{err: errors.New("font missing")}, nil, "", zaptest.NewLogger(t))
	if _, err := failing.Render(context.Background(), domain.Prescription{}); err == nil {
		t.Fatalf("expected render error")
	}
}

func TestStoreStatus(t *testing.T) {
	repo := newMemoryAccountRepo()
	_ = repo.Create(context.Background(), domain.Account{Email: "a@x.com"})
	status := NewStoreStatus(repo)

	n, err := status.AccountCount(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("expected one account, got %d / %v", n, err)
	}
	if err := status.Ready(context.Background()); err != nil {
		t.Fatalf("Ready returned error: %v", err)
	}
	if _, err := NewStoreStatus(nil).AccountCount(context.Background()); !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}
