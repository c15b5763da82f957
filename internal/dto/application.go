package dto

import "github.com/noah-isme/placement-engine/internal/models"

// ApplyRequest is the body of POST /applications.
type ApplyRequest struct {
	StudentID string `json:"studentId" validate:"required"`
	JobID     string `json:"jobId" validate:"required"`
}

// ApplyResponse reports a successful application.
type ApplyResponse struct {
	StudentID string              `json:"studentId"`
	JobID     string              `json:"jobId"`
	Outcome   models.ApplyOutcome `json:"outcome"`
}

// AppliedJobsResponse lists a student's applications, newest first.
type AppliedJobsResponse struct {
	StudentID string              `json:"studentId"`
	Jobs      []models.AppliedJob `json:"jobs"`
}

// ApplicantsResponse lists the applicants of a job.
type ApplicantsResponse struct {
	JobID      string   `json:"jobId"`
	Applicants []string `json:"applicants"`
	Count      int      `json:"count"`
}

// ResumeUploadResponse reports the stored resume location.
type ResumeUploadResponse struct {
	StudentID string `json:"studentId"`
	URL       string `json:"url"`
}
