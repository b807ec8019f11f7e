package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Sampath5633/Medica-Backend/internal/core/domain"
)

// ErrorResponse carries the error text under both "error" and "message"; browser clients read
// "message".
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		Message: errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// CredentialsRequest is the payload of register and login step 1.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CodeRequest is the payload of login step 2.
type CodeRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// EmailRequest is the payload of the code issuance endpoints.
type EmailRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// LoginResponse is returned by both login steps. Step is set only when a code was sent.
type LoginResponse struct {
	Step      int        `json:"step,omitempty"`
	Message   string     `json:"message,omitempty"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// SessionResponse describes a verified session token.
type SessionResponse struct {
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FeedbackRequest is accepted by both feedback endpoints.
type FeedbackRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// FeedbackResponse reports a feedback outcome.
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TreatmentRequest carries patient details. Age and duration arrive as numbers or strings.
type TreatmentRequest struct {
	Disease    string     `json:"disease"`
	Age        FlexString `json:"age"`
	BloodGroup string     `json:"blood_group"`
	Symptoms   []string   `json:"symptoms"`
	Duration   FlexString `json:"duration"`
}

// PrescriptionRequest is a prescription as echoed back by the client for PDF rendering.
type PrescriptionRequest struct {
	Disease    string               `json:"disease"`
	Age        FlexString           `json:"age"`
	BloodGroup string               `json:"blood_group"`
	Symptoms   []string             `json:"symptoms"`
	Duration   FlexString           `json:"duration"`
	Treatment  domain.TreatmentPlan `json:"treatment"`
}

func (r PrescriptionRequest) toDomain() domain.Prescription {
	return domain.Prescription{
		Disease:    r.Disease,
		Age:        string(r.Age),
		BloodGroup: r.BloodGroup,
		Symptoms:   r.Symptoms,
		Duration:   string(r.Duration),
		Treatment:  r.Treatment,
	}
}

// PingResponse reports store connectivity.
type PingResponse struct {
	Message   string `json:"message"`
	UserCount int64  `json:"user_count"`
}

// HealthResponse is returned by the liveness and readiness endpoints.
type HealthResponse struct {
	Status    string            `json:"status"`
	StartedAt time.Time         `json:"started_at"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// FlexString accepts a JSON string or number and keeps its textual form. null leaves it empty.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*f = FlexString(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexString(n.String())
	return nil
}
