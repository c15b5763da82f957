package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/placement-engine/pkg/errors"
)

type resumeStudents struct {
	*placementStore
	urls      map[string]string
	updateErr error
}

func (r *resumeStudents) UpdateResumeURL(ctx context.Context, id, url string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if r.urls == nil {
		r.urls = map[string]string{}
	}
	r.urls[id] = url
	return nil
}

type resumeFiles struct {
	storeRecorder
	deleted []string
}

func (f *resumeFiles) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func newResumeFixture(t *testing.T) (*ResumeService, *resumeStudents, *resumeFiles) {
	t.Helper()
	store := newPlacementStore()
	store.addStudent(openStudent("s1"))
	students := &resumeStudents{placementStore: store}
	files := &resumeFiles{}
	svc := NewResumeService(students, files, ResumeConfig{MaxFileSize: 64, AllowedMIMEs: []string{"application/pdf"}}, nil)
	return svc, students, files
}

func TestResumeUploadStoresAndRecordsURL(t *testing.T) {
	svc, students, files := newResumeFixture(t)
	content := []byte("%PDF-1.4 resume")

	resp, err := svc.Upload(context.Background(), "s1", ResumeUpload{Filename: "cv.PDF", Size: int64(len(content)), Content: bytes.NewReader(content)})
	require.NoError(t, err)

	assert.Equal(t, []string{"resumes/s1/resume.pdf"}, files.keys)
	assert.Equal(t, resp.URL, students.urls["s1"])
}

func TestResumeUploadRejectsDisallowedOrLargeFiles(t *testing.T) {
	svc, _, files := newResumeFixture(t)

	_, err := svc.Upload(context.Background(), "s1", ResumeUpload{Filename: "a.png", Size: 10, MimeType: "image/png", Content: bytes.NewReader([]byte("0123456789"))})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	big := bytes.Repeat([]byte("a"), 100)
	_, err = svc.Upload(context.Background(), "s1", ResumeUpload{Filename: "cv.pdf", Size: 10, MimeType: "application/pdf", Content: bytes.NewReader(big)})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Upload(context.Background(), "ghost", ResumeUpload{Filename: "cv.pdf", Size: 4, MimeType: "application/pdf", Content: bytes.NewReader([]byte("%PDF"))})
	assert.ErrorIs(t, err, appErrors.ErrStudentNotFound)

	assert.Empty(t, files.keys)
}

func TestResumeUploadRemovesObjectWhenRecordFails(t *testing.T) {
	svc, students, files := newResumeFixture(t)
	students.updateErr = errors.New("db down")

	_, err := svc.Upload(context.Background(), "s1", ResumeUpload{Filename: "cv.pdf", Size: 4, MimeType: "application/pdf", Content: bytes.NewReader([]byte("%PDF"))})

	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Equal(t, []string{"resumes/s1/resume.pdf"}, files.deleted)
}
