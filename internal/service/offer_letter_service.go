package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/placement-engine/internal/models"
	"github.com/noah-isme/placement-engine/pkg/export"
)

type offerLetterRenderer interface {
	Render(letter export.OfferLetter) ([]byte, error)
}

type objectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// OfferLetterService renders and stores the letter attached to offer emails.
type OfferLetterService struct {
	renderer offerLetterRenderer
	store    objectStore
	issuer   string
	logger   *zap.Logger
	now      func() time.Time
}

// NewOfferLetterService constructs the issuer.
func NewOfferLetterService(renderer offerLetterRenderer, store objectStore, issuer string, logger *zap.Logger) *OfferLetterService {
	if renderer == nil {
		renderer = export.NewOfferLetterRenderer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfferLetterService{renderer: renderer, store: store, issuer: issuer, logger: logger, now: time.Now}
}

// Issue renders the letter for the student and returns its download URL.
func (s *OfferLetterService) Issue(ctx context.Context, student *models.Student, delivery models.Delivery) (string, error) {
	if s.store == nil {
		return "", fmt.Errorf("offer letter storage not configured")
	}
	pdf, err := s.renderer.Render(export.OfferLetter{
		StudentName: student.Name,
		BatchNo:     student.BatchNo,
		Company:     delivery.Company,
		Role:        delivery.Role,
		Comment:     delivery.Recipient.Comment,
		IssuedAt:    s.now().UTC(),
		Issuer:      s.issuer,
	})
	if err != nil {
		return "", fmt.Errorf("render offer letter: %w", err)
	}
	key := fmt.Sprintf("offers/%s/%s.pdf", delivery.JobID, student.ID)
	url, err := s.store.Put(ctx, key, pdf, "application/pdf")
	if err != nil {
		return "", fmt.Errorf("store offer letter: %w", err)
	}
	s.logger.Debug("offer letter issued", zap.String("student_id", student.ID), zap.String("job_id", delivery.JobID))
	return url, nil
}
