package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/placement-engine/internal/dto"
	"github.com/noah-isme/placement-engine/internal/models"
	appErrors "github.com/noah-isme/placement-engine/pkg/errors"
)

type resumeStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	UpdateResumeURL(ctx context.Context, id, url string) error
}

type resumeStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ResumeUpload carries an uploaded resume file.
type ResumeUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.Reader
}

// ResumeConfig bounds accepted uploads.
type ResumeConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
}

// ResumeService stores student resumes in the object store.
type ResumeService struct {
	students resumeStudentRepository
	store    resumeStore
	cfg      ResumeConfig
	mimeSet  map[string]struct{}
	logger   *zap.Logger
}

// NewResumeService constructs the upload service.
func NewResumeService(students resumeStudentRepository, store resumeStore, cfg ResumeConfig, logger *zap.Logger) *ResumeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf"}
	}
	set := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, m := range cfg.AllowedMIMEs {
		set[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return &ResumeService{students: students, store: store, cfg: cfg, mimeSet: set, logger: logger}
}

// Upload validates and stores the resume, then records its URL on the student.
func (s *ResumeService) Upload(ctx context.Context, studentID string, upload ResumeUpload) (*dto.ResumeUploadResponse, error) {
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, lookupError(err, appErrors.ErrStudentNotFound, "failed to load student")
	}

	data, err := io.ReadAll(io.LimitReader(upload.Content, s.cfg.MaxFileSize+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	if int64(len(data)) > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mimeType := detectMime(upload.MimeType, data)
	if _, allowed := s.mimeSet[mimeType]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mime type not allowed")
	}

	key := fmt.Sprintf("resumes/%s/resume%s", studentID, extensionFor(upload.Filename, mimeType))
	url, err := s.store.Put(ctx, key, data, mimeType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store resume")
	}
	if err := s.students.UpdateResumeURL(ctx, studentID, url); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to remove orphaned resume", zap.String("key", key), zap.Error(delErr))
		}
		return nil, lookupError(err, appErrors.ErrStudentNotFound, "failed to record resume url")
	}
	s.logger.Info("resume uploaded", zap.String("student_id", studentID), zap.Int("bytes", len(data)))
	return &dto.ResumeUploadResponse{StudentID: studentID, URL: url}, nil
}

// detectMime prefers the declared type and sniffs the content otherwise.
func detectMime(declared string, data []byte) string {
	if declared != "" {
		if parsed, _, err := mime.ParseMediaType(declared); err == nil && parsed != "application/octet-stream" {
			return strings.ToLower(parsed)
		}
	}
	sniffed := http.DetectContentType(data)
	if parsed, _, err := mime.ParseMediaType(sniffed); err == nil {
		return parsed
	}
	return sniffed
}

func extensionFor(filename, mimeType string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" && len(ext) <= 5 {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
