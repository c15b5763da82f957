package service

import (
	"strings"
	"time"

	"github.com/noah-isme/placement-engine/internal/models"
	"github.com/noah-isme/placement-engine/pkg/config"
)

// IneligibilityReason names the first rule that excluded a student.
type IneligibilityReason string

const (
	ReasonNone          IneligibilityReason = ""
	ReasonMissing       IneligibilityReason = "missingRecord"
	ReasonPlaced        IneligibilityReason = "placed"
	ReasonOptedOut      IneligibilityReason = "optedOut"
	ReasonDropout       IneligibilityReason = "dropout"
	ReasonStackMismatch IneligibilityReason = "stackMismatch"
	ReasonSkills        IneligibilityReason = "noMatchingSkills"
	ReasonPercentage    IneligibilityReason = "belowMinPercentage"
	ReasonPassoutYear   IneligibilityReason = "passoutYearNotAllowed"
	ReasonDepartment    IneligibilityReason = "departmentNotAllowed"
)

// EligibilityResult explains an eligibility decision.
type EligibilityResult struct {
	Eligible     bool                `json:"eligible"`
	Reason       IneligibilityReason `json:"reason,omitempty"`
	LegacyWaiver bool                `json:"legacyWaiver"`
}

// EligibilityEvaluator decides whether a student may apply to a job. It is
// pure: no I/O and no clock, so the same pair always yields the same answer.
type EligibilityEvaluator struct {
	legacyThreshold time.Time
}

// NewEligibilityEvaluator builds an evaluator. Postings on or before the
// threshold date skip the percentage, passout year and department gates.
func NewEligibilityEvaluator(legacyThreshold time.Time) *EligibilityEvaluator {
	if legacyThreshold.IsZero() {
		legacyThreshold, _ = config.ParseDate(config.DefaultLegacyThreshold)
	}
	return &EligibilityEvaluator{legacyThreshold: dateOf(legacyThreshold)}
}

// IsEligible reports whether student may apply to job.
func (e *EligibilityEvaluator) IsEligible(job *models.JobPosting, student *models.Student) bool {
	return e.Evaluate(job, student).Eligible
}

// Evaluate applies the hard exclusions, then the inclusion gates.
func (e *EligibilityEvaluator) Evaluate(job *models.JobPosting, student *models.Student) EligibilityResult {
	if job == nil || student == nil {
		return EligibilityResult{Reason: ReasonMissing}
	}

	switch {
	case student.Placed:
		return EligibilityResult{Reason: ReasonPlaced}
	case !student.PlacementStatus:
		return EligibilityResult{Reason: ReasonOptedOut}
	case student.IsDropout():
		return EligibilityResult{Reason: ReasonDropout}
	case len(job.Stack) > 0 && !containsExact(job.Stack, student.BatchPrefix()):
		return EligibilityResult{Reason: ReasonStackMismatch}
	}

	if !intersectsFold(student.StudentSkills, job.RequiredSkills) {
		return EligibilityResult{Reason: ReasonSkills}
	}

	if e.IsLegacy(job) {
		return EligibilityResult{Eligible: true, LegacyWaiver: true}
	}

	if student.HighestGraduationPercentage < job.MinPercentage {
		return EligibilityResult{Reason: ReasonPercentage}
	}
	if !containsExact(job.AllowedPassoutYears, student.YearOfPassingString()) {
		return EligibilityResult{Reason: ReasonPassoutYear}
	}
	if !departmentAllowed(job.AllowedDepartments, student.Department) {
		return EligibilityResult{Reason: ReasonDepartment}
	}
	return EligibilityResult{Eligible: true}
}

// IsLegacy reports whether the posting date falls on or before the legacy
// threshold. Postings without a timestamp count as legacy.
func (e *EligibilityEvaluator) IsLegacy(job *models.JobPosting) bool {
	if job.Timestamp.IsZero() {
		return true
	}
	return !dateOf(job.Timestamp).After(e.legacyThreshold)
}

// Filter returns the eligible subset of students, preserving order.
func (e *EligibilityEvaluator) Filter(job *models.JobPosting, students []models.Student) []models.Student {
	eligible := make([]models.Student, 0, len(students))
	for i := range students {
		if e.IsEligible(job, &students[i]) {
			eligible = append(eligible, students[i])
		}
	}
	return eligible
}

func departmentAllowed(allowed []string, department string) bool {
	dept := strings.TrimSpace(department)
	for _, entry := range allowed {
		entry = strings.TrimSpace(entry)
		if strings.EqualFold(entry, models.AnyBranch) {
			return true
		}
		if dept != "" && strings.EqualFold(entry, dept) {
			return true
		}
	}
	return false
}

func intersectsFold(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[strings.ToLower(strings.TrimSpace(v))]; ok {
			return true
		}
	}
	return false
}

func containsExact(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
