// Package inference forwards prediction payloads to the external model service.
package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Sampath5633/Medica-Backend/internal/core/port"
	"github.com/Sampath5633/Medica-Backend/internal/infra/config"
)

const maxResponseBytes = 4 << 20

// ErrResponseTooLarge reports an upstream reply over maxResponseBytes. Relaying a cut-off body
// would hand the client truncated JSON.
var ErrResponseTooLarge = errors.New("inference response exceeds size limit")

// Client posts JSON to <base_url>/<endpoint>, retrying connection errors and 5xx replies.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

func NewClient(cfg config.InferenceSettings, logger *zap.Logger) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("inference base url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = zapLeveled{logger.Named("inference").Sugar()}
	// Hand the final upstream reply back instead of a "giving up" error so it can be relayed.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{baseURL: base, http: rc}, nil
}

func (c *Client) Forward(ctx context.Context, endpoint string, payload []byte) (*port.InferenceResponse, error) {
	ctx, span := otel.Tracer("medica/inference").Start(ctx, "inference."+endpoint)
	defer span.End()

	url := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, payload)
	if err != nil {
		return nil, fmt.Errorf("build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "inference request failed")
		return nil, fmt.Errorf("inference %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read inference response: %w", err)
	}
	if len(body) > maxResponseBytes {
		span.SetStatus(codes.Error, "inference response too large")
		return nil, fmt.Errorf("inference %s: %w", endpoint, ErrResponseTooLarge)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	return &port.InferenceResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

type zapLeveled struct {
	s *zap.SugaredLogger
}

func (l zapLeveled) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l zapLeveled) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l zapLeveled) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l zapLeveled) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }

var _ port.InferenceClient = (*Client)(nil)
