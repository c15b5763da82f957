package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Internal round labels.
const (
	RoundLabelPrefix = "round_"
	RoundFinal       = "round_final"
)

// Public labels used by the placement projection.
const (
	PublicApplied     = "applied"
	PublicShortlisted = "shortlisted"
	PublicScreening   = "screening"
)

// RoundLabel is a parsed internal round label: round_k (k >= 1) or round_final.
type RoundLabel struct {
	Index int
	Final bool
}

// ParseRoundLabel parses an internal label.
func ParseRoundLabel(raw string) (RoundLabel, bool) {
	if raw == RoundFinal {
		return RoundLabel{Final: true}, true
	}
	if !strings.HasPrefix(raw, RoundLabelPrefix) {
		return RoundLabel{}, false
	}
	digits := strings.TrimPrefix(raw, RoundLabelPrefix)
	if digits == "" || strings.HasPrefix(digits, "0") || strings.HasPrefix(digits, "+") {
		return RoundLabel{}, false
	}
	k, err := strconv.Atoi(digits)
	if err != nil || k < 1 {
		return RoundLabel{}, false
	}
	return RoundLabel{Index: k}, true
}

// String renders the internal label.
func (l RoundLabel) String() string {
	if l.Final {
		return RoundFinal
	}
	return RoundLabelFor(l.Index)
}

// RoundLabelFor returns round_k.
func RoundLabelFor(k int) string {
	return RoundLabelPrefix + strconv.Itoa(k)
}

// PublicRoundLabel renames an internal label for display: round_1 is
// screening, round_k is round_{k-1}, round_final stays round_final.
func PublicRoundLabel(internal string) string {
	label, ok := ParseRoundLabel(internal)
	if !ok || label.Final {
		return internal
	}
	if label.Index == 1 {
		return PublicScreening
	}
	return RoundLabelFor(label.Index - 1)
}

// RoundStatus is a student's outcome in one step of the chain.
type RoundStatus string

const (
	RoundStatusSelected RoundStatus = "selected"
	RoundStatusRejected RoundStatus = "rejected"
	RoundStatusPending  RoundStatus = "pending"
)

// RoundRecord is the outcome of one interview round.
type RoundRecord struct {
	Selected        []string  `json:"selected"`
	Rejected        []string  `json:"rejected"`
	SelectedComment string    `json:"selected_comment,omitempty"`
	RejectedComment string    `json:"rejected_comment,omitempty"`
	Final           bool      `json:"final,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StatusOf reports the student's outcome in the round.
func (r RoundRecord) StatusOf(studentID string) RoundStatus {
	switch {
	case containsString(r.Selected, studentID):
		return RoundStatusSelected
	case containsString(r.Rejected, studentID):
		return RoundStatusRejected
	default:
		return RoundStatusPending
	}
}

// InterviewRounds maps internal labels to their records. Stored as JSONB.
type InterviewRounds map[string]RoundRecord

// Numbered returns the indexes of existing round_k records in ascending order.
func (r InterviewRounds) Numbered() []int {
	indexes := make([]int, 0, len(r))
	for label := range r {
		parsed, ok := ParseRoundLabel(label)
		if ok && !parsed.Final {
			indexes = append(indexes, parsed.Index)
		}
	}
	sort.Ints(indexes)
	return indexes
}

// LastNumbered returns the highest k with an existing round_k, or 0.
func (r InterviewRounds) LastNumbered() int {
	indexes := r.Numbered()
	if len(indexes) == 0 {
		return 0
	}
	return indexes[len(indexes)-1]
}

// HasFinal reports whether round_final exists.
func (r InterviewRounds) HasFinal() bool {
	_, ok := r[RoundFinal]
	return ok
}

// Has reports whether a record exists for label.
func (r InterviewRounds) Has(label string) bool {
	_, ok := r[label]
	return ok
}

// Value implements driver.Valuer for JSONB storage.
func (r InterviewRounds) Value() (driver.Value, error) {
	if r == nil {
		return []byte(`{}`), nil
	}
	return json.Marshal(map[string]RoundRecord(r))
}

// Scan implements sql.Scanner.
func (r *InterviewRounds) Scan(src interface{}) error {
	raw, err := jsonBytes(src)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		*r = InterviewRounds{}
		return nil
	}
	decoded := map[string]RoundRecord{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode interview rounds: %w", err)
	}
	*r = InterviewRounds(decoded)
	return nil
}
