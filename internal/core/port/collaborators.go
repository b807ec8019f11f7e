package port

import (
	"context"
	"io"

	"github.com/Sampath5633/Medica-Backend/internal/core/domain"
)

// MailMessage is a plain-text email.
type MailMessage struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers email. Any returned error means the message was not accepted for delivery.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// InferenceResponse is the raw reply of the prediction service.
type InferenceResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// InferenceClient forwards prediction payloads to the external model service.
type InferenceClient interface {
	Forward(ctx context.Context, endpoint string, payload []byte) (*InferenceResponse, error)
}

// TextGenerator produces model text for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PrescriptionRenderer writes a printable prescription document.
type PrescriptionRenderer interface {
	Render(w io.Writer, prescription domain.Prescription) error
}

// DocumentArchive stores generated documents.
type DocumentArchive interface {
	Put(ctx context.Context, key string, contentType string, body []byte) error
}
