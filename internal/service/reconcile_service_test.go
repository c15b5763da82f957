package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/placement-engine/internal/dto"
)

func newDriftedStore() *placementStore {
	store := newPlacementStore()
	a := openStudent("a")
	a.AppliedJobs = []string{"j1", "j2", "gone"}
	store.addStudent(a)
	store.addStudent(openStudent("b"))

	j1 := openJob("j1")
	j1.ApplicantsIDs = []string{"a"}
	store.addJob(j1)
	store.addJob(openJob("j2"))
	j3 := openJob("j3")
	j3.ApplicantsIDs = []string{"b", "ghost"}
	store.addJob(j3)
	return store
}

func TestReconcileDryRunReportsOnly(t *testing.T) {
	store := newDriftedStore()
	svc := NewReconcileService(studentSide{store}, jobSide{store}, nil, nil)

	report, err := svc.Run(context.Background(), true)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.StudentsScanned)
	assert.Equal(t, 3, report.JobsScanned)
	assert.Equal(t, 2, report.Unresolvable)
	assert.Equal(t, []dto.ReconcileDrift{
		{StudentID: "a", JobID: "j2", Missing: dto.DriftMissingApplicant},
		{StudentID: "b", JobID: "j3", Missing: dto.DriftMissingAppliedJob},
	}, report.Drift)
	assert.Zero(t, report.Repaired)
	assert.Empty(t, store.job("j2").ApplicantsIDs)
}

func TestReconcileRepairsMissingSide(t *testing.T) {
	store := newDriftedStore()
	invalidator := &recordingInvalidator{}
	svc := NewReconcileService(studentSide{store}, jobSide{store}, invalidator, nil)

	report, err := svc.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Repaired)
	assert.Equal(t, []string{"a"}, []string(store.job("j2").ApplicantsIDs))
	assert.Equal(t, []string{"j3"}, []string(store.student("b").AppliedJobs))
	assert.ElementsMatch(t, []string{"a", "b"}, invalidator.ids)

	again, err := svc.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, again.Drift)
	assert.Equal(t, []string{"j1", "j2", "gone"}, []string(store.student("a").AppliedJobs))
}
