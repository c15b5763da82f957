package models

import "time"

// ApplyOutcome is the result of an application attempt.
type ApplyOutcome string

const (
	ApplyApplied         ApplyOutcome = "applied"
	ApplyAlreadyApplied  ApplyOutcome = "alreadyApplied"
	ApplyNotEligible     ApplyOutcome = "notEligible"
	ApplyDeadlinePassed  ApplyOutcome = "deadlinePassed"
	ApplyClosed          ApplyOutcome = "closed"
	ApplyStudentPlaced   ApplyOutcome = "studentPlaced"
	ApplyStudentOptedOut ApplyOutcome = "studentOptedOut"
	ApplyJobNotFound     ApplyOutcome = "jobNotFound"
	ApplyStudentNotFound ApplyOutcome = "studentNotFound"
)

// Application records a successful apply.
type Application struct {
	StudentID string       `json:"studentId"`
	JobID     string       `json:"jobId"`
	Outcome   ApplyOutcome `json:"outcome"`
}

// AppliedJob is one entry of a student's applications, newest first.
type AppliedJob struct {
	JobID     string    `json:"jobId"`
	Company   string    `json:"company"`
	Role      string    `json:"jobRole"`
	Timestamp time.Time `json:"timestamp"`
	DeadLine  time.Time `json:"deadLine"`
}
