package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ApplicationRepository records applications on both the student and the job.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs an ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Apply adds jobID to the student's applied jobs and studentID to the job's
// applicants in one transaction. Each side is conditional on the apply
// preconditions that can change concurrently; a miss on either side rolls
// back both and returns ErrConditionNotMet.
func (r *ApplicationRepository) Apply(ctx context.Context, studentID, jobID string, at time.Time) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const studentQuery = `UPDATE students SET applied_jobs = array_append(COALESCE(applied_jobs, '{}'), $2), updated_at = $3
        WHERE id = $1 AND placed = FALSE AND placement_status = TRUE AND NOT ($2 = ANY(COALESCE(applied_jobs, '{}')))`
	res, err := tx.ExecContext(ctx, studentQuery, studentID, jobID, at)
	if err != nil {
		return fmt.Errorf("record applied job: %w", err)
	}
	if err = requireAffected(res); err != nil {
		return err
	}

	const jobQuery = `UPDATE job_postings SET applicants_ids = array_append(COALESCE(applicants_ids, '{}'), $2), updated_at = $3
        WHERE id = $1 AND selected_students_ids IS NULL AND rejected_students_ids IS NULL AND dead_line >= $3
        AND NOT ($2 = ANY(COALESCE(applicants_ids, '{}')))`
	res, err = tx.ExecContext(ctx, jobQuery, jobID, studentID, at)
	if err != nil {
		return fmt.Errorf("record applicant: %w", err)
	}
	if err = requireAffected(res); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit apply: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrConditionNotMet
	}
	return nil
}
