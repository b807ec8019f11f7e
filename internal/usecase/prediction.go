package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sampath5633/Medica-Backend/internal/core/port"
)

// Inference endpoints exposed by the model service.
const (
	EndpointPredict   = "predict"
	EndpointRepredict = "repredict"
)

// PredictionService relays prediction payloads to the inference service.
type PredictionService struct {
	client port.InferenceClient
}

func NewPredictionService(client port.InferenceClient) *PredictionService {
	return &PredictionService{client: client}
}

// Predict forwards payload to /predict.
func (s *PredictionService) Predict(ctx context.Context, payload []byte) (*port.InferenceResponse, error) {
	return s.forward(ctx, EndpointPredict, payload)
}

// Repredict forwards payload to /repredict.
func (s *PredictionService) Repredict(ctx context.Context, payload []byte) (*port.InferenceResponse, error) {
	return s.forward(ctx, EndpointRepredict, payload)
}

func (s *PredictionService) forward(ctx context.Context, endpoint string, payload []byte) (*port.InferenceResponse, error) {
	if s.client == nil {
		return nil, ErrServiceUnavailable
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return nil, fmt.Errorf("%w: request body must be JSON", ErrInvalidInput)
	}

	resp, err := s.client.Forward(ctx, endpoint, payload)
	if err != nil {
		return nil, fmt.Errorf("forward %s: %w", endpoint, err)
	}
	return resp, nil
}
