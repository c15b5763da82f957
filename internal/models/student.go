package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// DropoutBatchPrefix marks the batch of a withdrawn student.
const DropoutBatchPrefix = "DROPOUTS-"

// Student is a learner enrolled in a training batch.
type Student struct {
	ID                          string         `db:"id" json:"id"`
	Name                        string         `db:"name" json:"name"`
	Email                       string         `db:"email" json:"email"`
	Phone                       string         `db:"phone" json:"phone"`
	ParentPhone                 string         `db:"parent_phone" json:"parentPhone"`
	BatchNo                     string         `db:"batch_no" json:"batchNo"`
	Location                    string         `db:"location" json:"location"`
	HighestGraduationPercentage float64        `db:"highest_graduation_percentage" json:"highestGraduationpercentage"`
	YearOfPassing               int            `db:"year_of_passing" json:"yearOfPassing"`
	Department                  string         `db:"department" json:"department"`
	StudentSkills               pq.StringArray `db:"student_skills" json:"studentSkills"`
	PlacementStatus             bool           `db:"placement_status" json:"placementStatus"`
	Placed                      bool           `db:"placed" json:"placed"`
	AppliedJobs                 pq.StringArray `db:"applied_jobs" json:"appliedJobs"`
	SelectedJobs                pq.StringArray `db:"selected_jobs" json:"selectedJobs"`
	RejectedJobs                pq.StringArray `db:"rejected_jobs" json:"rejectedJobs"`
	ResumeURL                   *string        `db:"resume_url" json:"resumeUrl,omitempty"`
	CreatedAt                   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt                   time.Time      `db:"updated_at" json:"updatedAt"`
}

// IsDropout reports whether the student's batch designates a withdrawal.
func (s *Student) IsDropout() bool {
	return strings.HasPrefix(s.BatchNo, DropoutBatchPrefix)
}

// BatchPrefix returns the course prefix of the batch, up to the first hyphen.
func (s *Student) BatchPrefix() string {
	if i := strings.Index(s.BatchNo, "-"); i >= 0 {
		return s.BatchNo[:i]
	}
	return s.BatchNo
}

// YearOfPassingString is the passout year as compared against job postings.
func (s *Student) YearOfPassingString() string {
	if s.YearOfPassing == 0 {
		return ""
	}
	return strconv.Itoa(s.YearOfPassing)
}

// HasApplied reports whether jobID is in the student's applied jobs.
func (s *Student) HasApplied(jobID string) bool {
	return containsString(s.AppliedJobs, jobID)
}

// ContactPhone prefers the student's own number over the parent's.
func (s *Student) ContactPhone() string {
	if strings.TrimSpace(s.Phone) != "" {
		return s.Phone
	}
	return s.ParentPhone
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
