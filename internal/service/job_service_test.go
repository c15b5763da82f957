package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/placement-engine/internal/dto"
	"github.com/noah-isme/placement-engine/internal/models"
	appErrors "github.com/noah-isme/placement-engine/pkg/errors"
)

func newJobFixture(t *testing.T) (*JobService, *placementStore, *recordingEmitter) {
	t.Helper()
	store := newPlacementStore()
	emitter := &recordingEmitter{}
	svc := NewJobService(jobSide{store}, store, nil, emitter, nil, nil)
	svc.now = fixedClock
	return svc, store, emitter
}

func TestCreateJobNotifiesEligibleStudents(t *testing.T) {
	svc, store, emitter := newJobFixture(t)
	store.addStudent(openStudent("a"))
	store.addStudent(openStudent("b"))
	placed := openStudent("c")
	placed.Placed = true
	store.addStudent(placed)
	wrongSkills := openStudent("d")
	wrongSkills.StudentSkills = []string{"Rust"}
	store.addStudent(wrongSkills)

	resp, err := svc.Create(context.Background(), dto.CreateJobRequest{
		Company:             " Acme ",
		JobRole:             "SDE",
		DeadLine:            testNow.Add(72 * time.Hour),
		RequiredSkills:      dto.StringList{"Python"},
		MinPercentage:       60,
		AllowedPassoutYears: dto.StringList{"2024"},
		AllowedDepartments:  dto.StringList{"any branch"},
	}, "bde-1")
	require.NoError(t, err)

	assert.Equal(t, 2, resp.EligibleCount)
	assert.Equal(t, "Acme", resp.Job.Company)
	assert.Equal(t, testNow, resp.Job.Timestamp)
	assert.Equal(t, "bde-1", resp.Job.CreatedBy)
	require.Len(t, store.created, 1)

	events := emitter.ofType(models.EventJobPosted)
	require.Len(t, events, 1)
	assert.Equal(t, resp.Job.ID, events[0].JobID)
	require.Len(t, events[0].Recipients, 2)
	assert.Equal(t, models.OutcomeEligible, events[0].Recipients[0].Outcome)
}

func TestCreateJobValidation(t *testing.T) {
	svc, store, emitter := newJobFixture(t)

	_, err := svc.Create(context.Background(), dto.CreateJobRequest{Company: "Acme", JobRole: "SDE", RequiredSkills: dto.StringList{"Go"}}, "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(context.Background(), dto.CreateJobRequest{Company: "Acme", DeadLine: testNow, RequiredSkills: dto.StringList{"Go"}}, "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(context.Background(), dto.CreateJobRequest{Company: "Acme", JobRole: "SDE", DeadLine: testNow, MinPercentage: 120, RequiredSkills: dto.StringList{"Go"}}, "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	assert.Empty(t, store.created)
	assert.Empty(t, emitter.events)
}

func TestCreateJobIgnoresClientTimestamp(t *testing.T) {
	svc, store, emitter := newJobFixture(t)
	student := openStudent("a")
	student.HighestGraduationPercentage = 40
	store.addStudent(student)

	var req dto.CreateJobRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"company": "Acme",
		"jobRole": "SDE",
		"deadLine": "2025-09-20T00:00:00Z",
		"requiredSkills": ["java"],
		"minPercentage": 90,
		"timestamp": "2025-07-01T00:00:00Z"
	}`), &req))

	resp, err := svc.Create(context.Background(), req, "")
	require.NoError(t, err)
	assert.Equal(t, testNow, resp.Job.Timestamp)
	assert.Equal(t, 0, resp.EligibleCount)
	assert.Empty(t, emitter.events)
}

func TestEligibleStudents(t *testing.T) {
	svc, store, _ := newJobFixture(t)
	store.addStudent(openStudent("b"))
	store.addStudent(openStudent("a"))
	store.addJob(openJob("j1"))

	resp, err := svc.EligibleStudents(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, resp.StudentIDs)
	assert.Equal(t, 2, resp.Count)

	_, err = svc.EligibleStudents(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrJobNotFound)
}
