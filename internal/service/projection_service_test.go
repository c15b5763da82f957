package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/placement-engine/internal/dto"
	"github.com/noah-isme/placement-engine/internal/models"
	appErrors "github.com/noah-isme/placement-engine/pkg/errors"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	bumped  []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) Incr(ctx context.Context, ttl time.Duration, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		var n int64
		if raw, ok := m.entries[key]; ok {
			_ = json.Unmarshal(raw, &n)
		}
		m.entries[key], _ = json.Marshal(n + 1)
		m.bumped = append(m.bumped, key)
	}
	return nil
}

func chainOf(entries ...string) []models.ChainEntry {
	out := make([]models.ChainEntry, 0, len(entries)/2)
	for i := 0; i+1 < len(entries); i += 2 {
		out = append(out, models.ChainEntry{Label: entries[i], Status: models.RoundStatus(entries[i+1])})
	}
	return out
}

func TestProjectionChainRenamesRounds(t *testing.T) {
	store := newPlacementStore()
	svc := NewProjectionService(store, jobSide{store}, nil, 0, nil)
	student := openStudent("A")
	student.AppliedJobs = []string{"j1"}
	store.addStudent(student)
	job := shortlistedJob("j1", []string{"A"}, nil)
	job.InterviewRounds = models.InterviewRounds{"round_1": {Selected: []string{"A"}}}
	store.addJob(job)

	projection, err := svc.ProjectStudent(context.Background(), "A")
	require.NoError(t, err)
	require.Equal(t, models.ProjectionChain, projection.Status)
	require.Len(t, projection.Jobs, 1)

	got := projection.Jobs[0]
	assert.Equal(t, chainOf(
		"applied", "selected",
		"shortlisted", "selected",
		"screening", "selected",
		"round_1", "pending",
	), got.Chain)
	require.NotNil(t, got.NextLabel)
	assert.Equal(t, "round_1", *got.NextLabel)
}

func TestProjectionSpecialStatuses(t *testing.T) {
	store := newPlacementStore()
	svc := NewProjectionService(store, jobSide{store}, nil, 0, nil)

	dropout := openStudent("d")
	dropout.BatchNo = "DROPOUTS-PFS-5"
	dropout.Placed = true
	store.addStudent(dropout)
	optedOut := openStudent("o")
	optedOut.PlacementStatus = false
	store.addStudent(optedOut)
	placed := openStudent("p")
	placed.Placed = true
	store.addStudent(placed)
	store.addJob(openJob("j1"))

	got, err := svc.ProjectStudent(context.Background(), "d")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectionDropout, got.Status)

	got, err = svc.ProjectStudent(context.Background(), "o")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectionNotEligible, got.Status)
	assert.Equal(t, models.NotEligibleMessage, got.Message)

	got, err = svc.ProjectStudentJob(context.Background(), "p", "j1")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectionPlaced, got.Status)

	_, err = svc.ProjectStudent(context.Background(), "ghost")
	assert.ErrorIs(t, err, appErrors.ErrStudentNotFound)
}

func TestProjectionStudentJobStates(t *testing.T) {
	store := newPlacementStore()
	svc := NewProjectionService(store, jobSide{store}, nil, 0, nil)
	for _, id := range []string{"A", "B", "C", "D"} {
		st := openStudent(id)
		st.AppliedJobs = []string{"j1"}
		store.addStudent(st)
	}
	store.addStudent(openStudent("N"))
	job := shortlistedJob("j1", []string{"A", "B"}, []string{"C"})
	job.ApplicantsIDs = append(job.ApplicantsIDs, "D")
	job.InterviewRounds = models.InterviewRounds{
		"round_1":     {Selected: []string{"A", "B"}},
		"round_final": {Selected: []string{"A"}, Rejected: []string{"B"}},
	}
	store.addJob(job)
	ctx := context.Background()

	cases := []struct {
		student string
		chain   []models.ChainEntry
		next    *string
	}{
		{student: "A", chain: chainOf("applied", "selected", "shortlisted", "selected", "screening", "selected", "round_final", "selected")},
		{student: "B", chain: chainOf("applied", "selected", "shortlisted", "selected", "screening", "selected", "round_final", "rejected")},
		{student: "C", chain: chainOf("applied", "selected", "shortlisted", "rejected")},
		{student: "D", chain: chainOf("applied", "selected", "shortlisted", "rejected")},
		{student: "N", chain: []models.ChainEntry{}, next: labelPtr("applied")},
	}
	for _, tc := range cases {
		t.Run(tc.student, func(t *testing.T) {
			got, err := svc.ProjectStudentJob(ctx, tc.student, "j1")
			require.NoError(t, err)
			require.Len(t, got.Jobs, 1)
			assert.Equal(t, tc.chain, got.Jobs[0].Chain)
			assert.Equal(t, tc.next, got.Jobs[0].NextLabel)
		})
	}
}

func TestProjectionBeforeShortlist(t *testing.T) {
	store := newPlacementStore()
	svc := NewProjectionService(store, jobSide{store}, nil, 0, nil)
	st := openStudent("A")
	st.AppliedJobs = []string{"j1"}
	store.addStudent(st)
	job := openJob("j1")
	job.ApplicantsIDs = []string{"A"}
	store.addJob(job)

	got, err := svc.ProjectStudentJob(context.Background(), "A", "j1")
	require.NoError(t, err)
	assert.Equal(t, chainOf("applied", "selected", "shortlisted", "pending"), got.Jobs[0].Chain)
	require.NotNil(t, got.Jobs[0].NextLabel)
	assert.Equal(t, "shortlisted", *got.Jobs[0].NextLabel)
}

func TestProjectionIsCachedUntilInvalidated(t *testing.T) {
	store := newPlacementStore()
	cacheRepo := newMemoryCache()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewProjectionService(store, jobSide{store}, cache, time.Minute, nil)
	st := openStudent("A")
	st.AppliedJobs = []string{"j1"}
	store.addStudent(st)
	job := openJob("j1")
	job.ApplicantsIDs = []string{"A"}
	store.addJob(job)
	ctx := context.Background()

	first, err := svc.ProjectStudent(ctx, "A")
	require.NoError(t, err)

	store.addJob(shortlistedJob("j1", []string{"A"}, nil))
	cached, err := svc.ProjectStudent(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, first.Jobs[0].Chain, cached.Jobs[0].Chain)

	svc.InvalidateStudents(ctx, "A", "A")
	assert.Equal(t, []string{"placement:projection:A:gen"}, cacheRepo.bumped)

	fresh, err := svc.ProjectStudent(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusSelected, fresh.Jobs[0].Chain[1].Status)
}

// racingStudents returns the student as read before during runs, the way a
// projection load observes a row that a concurrent write then replaces.
type racingStudents struct {
	*placementStore
	during func()
}

func (r *racingStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	st, err := r.placementStore.FindByID(ctx, id)
	if fn := r.during; fn != nil {
		r.during = nil
		fn()
	}
	return st, err
}

func TestProjectionLoadRacingApplyIsNotServedAfterInvalidation(t *testing.T) {
	store := newPlacementStore()
	store.addStudent(openStudent("A"))
	store.addJob(openJob("j1"))
	cache := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)
	students := &racingStudents{placementStore: store}
	projections := NewProjectionService(students, jobSide{store}, cache, time.Minute, nil)
	apps := NewApplicationService(store, jobSide{store}, store, nil, projections, nil, nil, nil)
	apps.now = fixedClock
	ctx := context.Background()

	students.during = func() {
		_, err := apps.Apply(ctx, dto.ApplyRequest{StudentID: "A", JobID: "j1"})
		require.NoError(t, err)
	}
	racing, err := projections.ProjectStudent(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, racing.Jobs)
	require.Equal(t, []string{"j1"}, []string(store.student("A").AppliedJobs))

	after, err := projections.ProjectStudent(ctx, "A")
	require.NoError(t, err)
	require.Len(t, after.Jobs, 1)
	assert.Equal(t, "j1", after.Jobs[0].JobID)
}

func TestCacheServiceVersionedKeys(t *testing.T) {
	cache := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)
	ctx := context.Background()

	key, ok := cache.Versioned(ctx, "placement:projection:A")
	require.True(t, ok)
	assert.Equal(t, "placement:projection:A@0", key)

	require.NoError(t, cache.Invalidate(ctx, "placement:projection:A"))
	key, ok = cache.Versioned(ctx, "placement:projection:A")
	require.True(t, ok)
	assert.Equal(t, "placement:projection:A@1", key)

	var disabled *CacheService
	_, ok = disabled.Versioned(ctx, "placement:projection:A")
	assert.False(t, ok)
}

func TestProjectionNewestFirst(t *testing.T) {
	store := newPlacementStore()
	svc := NewProjectionService(store, jobSide{store}, nil, 0, nil)
	st := openStudent("A")
	st.AppliedJobs = []string{"old", "new"}
	store.addStudent(st)
	older := openJob("old")
	older.Timestamp = legacyPosted
	store.addJob(older)
	store.addJob(openJob("new"))

	got, err := svc.ProjectStudent(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, got.Jobs, 2)
	assert.Equal(t, "new", got.Jobs[0].JobID)
	assert.Equal(t, "old", got.Jobs[1].JobID)
}
