package dto

// Sides of the applicant relation that can drift apart.
const (
	DriftMissingAppliedJob = "student.appliedJobs"
	DriftMissingApplicant  = "job.applicants_ids"
)

// ReconcileDrift is one pair present on only one side of the relation.
type ReconcileDrift struct {
	StudentID string `json:"studentId"`
	JobID     string `json:"jobId"`
	Missing   string `json:"missing"`
	Repaired  bool   `json:"repaired"`
}

// ReconcileReport summarises an applicant reconciliation pass.
type ReconcileReport struct {
	DryRun          bool             `json:"dryRun"`
	StudentsScanned int              `json:"studentsScanned"`
	JobsScanned     int              `json:"jobsScanned"`
	Drift           []ReconcileDrift `json:"drift"`
	Repaired        int              `json:"repaired"`
	Unresolvable    int              `json:"unresolvable"`
}
