package dto

import "github.com/noah-isme/placement-engine/internal/models"

// ShortlistRequest is the body of POST /jobs/{jobId}/shortlist.
type ShortlistRequest struct {
	SelectedIDs     []string `json:"selectedIds" validate:"dive,required"`
	RejectedIDs     []string `json:"rejectedIds" validate:"dive,required"`
	SelectedComment string   `json:"selectedComment"`
	RejectedComment string   `json:"rejectedComment"`
}

// RoundRequest is the body of POST /jobs/{jobId}/rounds/{label}.
type RoundRequest struct {
	SelectedIDs     []string `json:"selectedIds" validate:"dive,required"`
	RejectedIDs     []string `json:"rejectedIds" validate:"dive,required"`
	SelectedComment string   `json:"selectedComment"`
	RejectedComment string   `json:"rejectedComment"`
	IsFinal         bool     `json:"isFinal"`
}

// RoundResult reports a recorded round.
type RoundResult struct {
	JobID       string             `json:"jobId"`
	Label       string             `json:"label"`
	PublicLabel string             `json:"publicLabel"`
	Record      models.RoundRecord `json:"record"`
	Placed      []string           `json:"placed,omitempty"`
}

// ShortlistResult reports a published shortlist.
type ShortlistResult struct {
	JobID    string                   `json:"jobId"`
	Selected models.ShortlistDecision `json:"selected"`
	Rejected models.ShortlistDecision `json:"rejected"`
}
