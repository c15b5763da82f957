package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/noah-isme/placement-engine/internal/models"
)

// StringList decodes a JSON array whose items may be strings or numbers.
// Passout years arrive as either.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("expected a list: %w", err)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.UseNumber()
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("list item %s is neither string nor number", string(item))
		}
		if i, err := n.Int64(); err == nil {
			out = append(out, strconv.FormatInt(i, 10))
			continue
		}
		out = append(out, n.String())
	}
	*l = out
	return nil
}

// CreateJobRequest is the body of POST /jobs.
type CreateJobRequest struct {
	Company             string     `json:"company" validate:"required"`
	JobRole             string     `json:"jobRole" validate:"required"`
	Description         string     `json:"description"`
	DeadLine            time.Time  `json:"deadLine"`
	RequiredSkills      StringList `json:"requiredSkills" validate:"required,min=1,dive,required"`
	MinPercentage       float64    `json:"minPercentage" validate:"gte=0,lte=100"`
	AllowedPassoutYears StringList `json:"allowedPassoutYears" validate:"dive,required"`
	AllowedDepartments  StringList `json:"allowedDepartments" validate:"dive,required"`
	Stack               StringList `json:"stack" validate:"dive,required"`
}

// CreateJobResponse returns the stored posting and its notified audience size.
type CreateJobResponse struct {
	Job           *models.JobPosting `json:"job"`
	EligibleCount int                `json:"eligibleCount"`
}

// EligibleStudentsResponse lists students currently eligible for a job.
type EligibleStudentsResponse struct {
	JobID      string   `json:"jobId"`
	StudentIDs []string `json:"studentIds"`
	Count      int      `json:"count"`
}
