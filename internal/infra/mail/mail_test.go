package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Sampath5633/Medica-Backend/internal/core/port"
	"github.com/Sampath5633/Medica-Backend/internal/infra/config"
)

func TestPostmarkSender_Send(t *testing.T) {
	var got postmarkEmail
	var token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(postmarkResponse{MessageID: "m-1"})
	}))
	defer srv.Close()

	sender, err := NewPostmarkSender(srv.Client(), config.MailSettings{
		PostmarkToken: "server-token",
		PostmarkURL:   srv.URL,
		From:          "noreply@medica.app",
	})
	if err != nil {
		t.Fatalf("NewPostmarkSender returned error: %v", err)
	}

	msg := port.MailMessage{To: "a@x.com", Subject: "Your Verification Code", Body: "Your verification code is: 123456"}
	if err := sender.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if token != "server-token" {
		t.Fatalf("expected server token header, got %q", token)
	}
	if got.To != "a@x.com" || got.From != "noreply@medica.app" || got.TextBody != msg.Body {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestPostmarkSender_ErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(postmarkResponse{ErrorCode: 300, Message: "Invalid email request"})
	}))
	defer srv.Close()

	sender, err := NewPostmarkSender(srv.Client(), config.MailSettings{PostmarkToken: "t", PostmarkURL: srv.URL, From: "noreply@medica.app"})
	if err != nil {
		t.Fatalf("NewPostmarkSender returned error: %v", err)
	}
	if err := sender.Send(context.Background(), port.MailMessage{To: "a@x.com"}); err == nil {
		t.Fatalf("expected error for postmark error code")
	}
}

func TestLogSender_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := NewLogSender(zap.New(core))

	if err := sender.Send(context.Background(), port.MailMessage{To: "a@x.com", Subject: "s", Body: "b"}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if logs.Len() != 1 || logs.All()[0].ContextMap()["subject"] != "s" {
		t.Fatalf("expected one log entry with subject, got %v", logs.All())
	}
}

func TestNew_SelectsDriver(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.MailSettings
		wantErr bool
	}{
		{name: "log", cfg: config.MailSettings{Driver: DriverLog}},
		{name: "smtp", cfg: config.MailSettings{Driver: DriverSMTP, Server: "smtp.gmail.com", Port: 587, Username: "me@gmail.com", UseTLS: true}},
		{name: "smtp without sender", cfg: config.MailSettings{Driver: DriverSMTP, Server: "smtp.gmail.com", Port: 587}, wantErr: true},
		{name: "postmark without token", cfg: config.MailSettings{Driver: DriverPostmark, From: "a@x.com"}, wantErr: true},
		{name: "unknown", cfg: config.MailSettings{Driver: "pigeon"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg, zap.NewNop())
			if (err != nil) != tc.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestBuildMessageRejectsInvalidRecipient(t *testing.T) {
	if _, err := buildMessage("noreply@medica.app", port.MailMessage{To: "not an address"}); err == nil {
		t.Fatalf("expected invalid recipient error")
	}
}
