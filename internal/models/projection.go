package models

import (
	"strconv"
	"strings"
	"time"
)

// ChainEntry is one (label, status) step of a placement chain.
type ChainEntry struct {
	Label  string      `json:"label"`
	Status RoundStatus `json:"status"`
}

// ProjectionStatus tags the kind of a student projection.
type ProjectionStatus string

const (
	ProjectionDropout     ProjectionStatus = "DROPOUT"
	ProjectionNotEligible ProjectionStatus = "not_eligible"
	ProjectionPlaced      ProjectionStatus = "placed"
	ProjectionChain       ProjectionStatus = "chain"
)

// NotEligibleMessage accompanies ProjectionNotEligible.
const NotEligibleMessage = "registered without placement support"

// JobProjection is the chain of one student across one job.
type JobProjection struct {
	JobID     string       `json:"jobId"`
	Company   string       `json:"company"`
	Role      string       `json:"jobRole"`
	Timestamp time.Time    `json:"timestamp"`
	Chain     []ChainEntry `json:"chain"`
	NextLabel *string      `json:"nextLabel,omitempty"`
}

// StudentProjection is the tagged projector result. Jobs is only set when
// Status is ProjectionChain.
type StudentProjection struct {
	StudentID string           `json:"studentId"`
	Status    ProjectionStatus `json:"status"`
	Message   string           `json:"message,omitempty"`
	Jobs      []JobProjection  `json:"jobs,omitempty"`
}

// ApplicationStage is the round state machine position of a (job, student) pair.
type ApplicationStage string

const (
	StageNotApplied        ApplicationStage = "NOT_APPLIED"
	StageApplied           ApplicationStage = "APPLIED"
	StageLapsed            ApplicationStage = "LAPSED"
	StageShortlisted       ApplicationStage = "SHORTLISTED"
	StageOffered           ApplicationStage = "OFFERED"
	StageRejectedShortlist ApplicationStage = "REJECTED_SHORTLIST"
	StageRejectedFinal     ApplicationStage = "REJECTED_AT_FINAL"
)

// StageRound is the state after passing round_k.
func StageRound(k int) ApplicationStage {
	return ApplicationStage("R" + strconv.Itoa(k))
}

// StageRejectedAt is the terminal state after rejection in round_k.
func StageRejectedAt(k int) ApplicationStage {
	return ApplicationStage("REJECTED_AT_R" + strconv.Itoa(k))
}

// Terminal reports whether no further transition is possible.
func (s ApplicationStage) Terminal() bool {
	switch s {
	case StageLapsed, StageOffered, StageRejectedShortlist, StageRejectedFinal:
		return true
	}
	return strings.HasPrefix(string(s), "REJECTED_AT_R")
}

// ApplicationState is the queryState result. Chain uses internal labels,
// PublicChain the renamed ones.
type ApplicationState struct {
	JobID       string           `json:"jobId"`
	StudentID   string           `json:"studentId"`
	Stage       ApplicationStage `json:"stage"`
	Terminal    bool             `json:"terminal"`
	Chain       []ChainEntry     `json:"chain"`
	PublicChain []ChainEntry     `json:"publicChain"`
	NextLabel   *string          `json:"nextLabel,omitempty"`
}
