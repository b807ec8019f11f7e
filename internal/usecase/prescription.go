package usecase

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sampath5633/Medica-Backend/internal/core/domain"
	"github.com/Sampath5633/Medica-Backend/internal/core/port"
)

// PrescriptionContentType is the media type of rendered prescriptions.
const PrescriptionContentType = "application/pdf"

// PrescriptionService renders prescriptions and optionally archives the result.
type PrescriptionService struct {
	renderer port.PrescriptionRenderer
	archive  port.DocumentArchive
	prefix   string
	logger   *zap.Logger
	now      func() time.Time
}

// NewPrescriptionService constructs a PrescriptionService. archive may be nil.
func NewPrescriptionService(renderer port.PrescriptionRenderer, archive port.DocumentArchive, prefix string, logger *zap.Logger) *PrescriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrescriptionService{
		renderer: renderer,
		archive:  archive,
		prefix:   strings.Trim(prefix, "/"),
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *PrescriptionService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Render produces the PDF for prescription. Archive failures are logged and do not fail the call.
func (s *PrescriptionService) Render(ctx context.Context, prescription domain.Prescription) ([]byte, error) {
	if s.renderer == nil {
		return nil, ErrServiceUnavailable
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, prescription); err != nil {
		return nil, fmt.Errorf("render prescription: %w", err)
	}
	doc := buf.Bytes()

	if s.archive != nil {
		key := s.archiveKey()
		if err := s.archive.Put(ctx, key, PrescriptionContentType, doc); err != nil {
			s.logger.Warn("prescription archive failed", zap.String("key", key), zap.Error(err))
		}
	}

	return doc, nil
}

func (s *PrescriptionService) archiveKey() string {
	now := s.now().UTC()
	name := fmt.Sprintf("%s-%s.pdf", now.Format("20060102T150405Z"), uuid.NewString())
	return path.Join(s.prefix, now.Format("2006/01/02"), name)
}
