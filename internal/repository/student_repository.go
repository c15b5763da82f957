package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/placement-engine/internal/models"
)

const studentColumns = `id, name, email, phone, parent_phone, batch_no, location, highest_graduation_percentage,
        year_of_passing, department, student_skills, placement_status, placed, applied_jobs, selected_jobs,
        rejected_jobs, resume_url, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID fetches a student by ID. Missing rows surface as sql.ErrNoRows.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListCandidates returns opted-in, unplaced, non-dropout students. Eligibility
// still decides the final audience.
func (r *StudentRepository) ListCandidates(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students
        WHERE placed = FALSE AND placement_status = TRUE AND batch_no NOT LIKE 'DROPOUTS-%%'
        ORDER BY id`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list candidate students: %w", err)
	}
	return students, nil
}

// ListAll returns every student, used by the applicant reconciliation pass.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students ORDER BY id`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// UpdateResumeURL stores the object-store URL of the student's resume.
func (r *StudentRepository) UpdateResumeURL(ctx context.Context, id, url string) error {
	const query = `UPDATE students SET resume_url = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, url, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update resume url: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update resume url rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddAppliedJob appends jobID to the student's applied jobs unless present.
// It reports whether the row changed.
func (r *StudentRepository) AddAppliedJob(ctx context.Context, studentID, jobID string) (bool, error) {
	const query = `UPDATE students SET applied_jobs = array_append(COALESCE(applied_jobs, '{}'), $2), updated_at = $3
        WHERE id = $1 AND NOT ($2 = ANY(COALESCE(applied_jobs, '{}')))`
	res, err := r.db.ExecContext(ctx, query, studentID, jobID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("add applied job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add applied job rows: %w", err)
	}
	return affected > 0, nil
}
