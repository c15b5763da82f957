package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// AnyBranch in AllowedDepartments admits every department.
const AnyBranch = "any branch"

// JobPosting is a company opening students can apply to.
type JobPosting struct {
	ID                  string             `db:"id" json:"id"`
	Company             string             `db:"company" json:"company"`
	Role                string             `db:"job_role" json:"jobRole"`
	Description         string             `db:"description" json:"description,omitempty"`
	Timestamp           time.Time          `db:"timestamp" json:"timestamp"`
	DeadLine            time.Time          `db:"dead_line" json:"deadLine"`
	RequiredSkills      pq.StringArray     `db:"required_skills" json:"requiredSkills"`
	MinPercentage       float64            `db:"min_percentage" json:"minPercentage"`
	AllowedPassoutYears pq.StringArray     `db:"allowed_passout_years" json:"allowedPassoutYears"`
	AllowedDepartments  pq.StringArray     `db:"allowed_departments" json:"allowedDepartments"`
	Stack               pq.StringArray     `db:"stack" json:"stack"`
	ApplicantsIDs       pq.StringArray     `db:"applicants_ids" json:"applicants_ids"`
	SelectedStudents    *ShortlistDecision `db:"selected_students_ids" json:"selected_students_ids,omitempty"`
	RejectedStudents    *ShortlistDecision `db:"rejected_students_ids" json:"rejected_students_ids,omitempty"`
	InterviewRounds     InterviewRounds    `db:"interview_rounds" json:"interview_rounds"`
	CreatedBy           string             `db:"created_by" json:"createdBy"`
	CreatedAt           time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time          `db:"updated_at" json:"updatedAt"`
}

// ShortlistPublished reports whether the post-application decision exists.
func (j *JobPosting) ShortlistPublished() bool {
	return j.SelectedStudents != nil || j.RejectedStudents != nil
}

// HasApplicant reports whether studentID applied to the job.
func (j *JobPosting) HasApplicant(studentID string) bool {
	return containsString(j.ApplicantsIDs, studentID)
}

// ShortlistSelected returns the ids selected in the shortlist.
func (j *JobPosting) ShortlistSelected() []string {
	if j.SelectedStudents == nil {
		return nil
	}
	return j.SelectedStudents.Students
}

// ShortlistRejected returns the ids rejected in the shortlist.
func (j *JobPosting) ShortlistRejected() []string {
	if j.RejectedStudents == nil {
		return nil
	}
	return j.RejectedStudents.Students
}

// ShortlistDecision is one side of a published shortlist. The canonical
// stored form is `{"students": [...], "selected_comment": "..."}`; a bare
// JSON array is accepted on read and normalised.
type ShortlistDecision struct {
	Students        []string `json:"students"`
	SelectedComment string   `json:"selected_comment,omitempty"`
	RejectedComment string   `json:"rejected_comment,omitempty"`
}

// Comment returns whichever outcome comment the decision carries.
func (d *ShortlistDecision) Comment() string {
	if d == nil {
		return ""
	}
	if d.SelectedComment != "" {
		return d.SelectedComment
	}
	return d.RejectedComment
}

// Contains reports membership of studentID.
func (d *ShortlistDecision) Contains(studentID string) bool {
	return d != nil && containsString(d.Students, studentID)
}

// UnmarshalJSON accepts both the wrapped and the bare list form.
func (d *ShortlistDecision) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var ids []string
		if err := json.Unmarshal(trimmed, &ids); err != nil {
			return fmt.Errorf("decode shortlist list: %w", err)
		}
		*d = ShortlistDecision{Students: ids}
		return nil
	}
	type wrapped ShortlistDecision
	var w wrapped
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return fmt.Errorf("decode shortlist: %w", err)
	}
	*d = ShortlistDecision(w)
	return nil
}

// Value implements driver.Valuer for JSONB storage.
func (d *ShortlistDecision) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	out := *d
	if out.Students == nil {
		out.Students = []string{}
	}
	return json.Marshal(out)
}

// Scan implements sql.Scanner.
func (d *ShortlistDecision) Scan(src interface{}) error {
	raw, err := jsonBytes(src)
	if err != nil || raw == nil {
		return err
	}
	return d.UnmarshalJSON(raw)
}

func jsonBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported json source %T", src)
	}
}
