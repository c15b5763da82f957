package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/noah-isme/placement-engine/internal/models"
	appErrors "github.com/noah-isme/placement-engine/pkg/errors"
)

// eventEmitter hands state transitions to the notification dispatcher.
type eventEmitter interface {
	Emit(ctx context.Context, event models.NotificationEvent) int
}

// projectionInvalidator drops cached projections after a write.
type projectionInvalidator interface {
	InvalidateStudents(ctx context.Context, studentIDs ...string)
}

// lookupError maps a repository read failure to the domain error returned to callers.
func lookupError(err error, notFound *appErrors.Error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(notFound, "")
	}
	return appErrors.Storage(err, message)
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func stringSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}

func sortJobsNewestFirst(jobs []models.JobPosting) {
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].Timestamp.Equal(jobs[j].Timestamp) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].Timestamp.After(jobs[j].Timestamp)
	})
}
