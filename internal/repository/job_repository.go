package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/placement-engine/internal/models"
)

const jobColumns = `id, company, job_role, description, timestamp, dead_line, required_skills, min_percentage,
        allowed_passout_years, allowed_departments, stack, applicants_ids, selected_students_ids,
        rejected_students_ids, interview_rounds, created_by, created_at, updated_at`

// JobRepository manages persistence for job postings and their round state.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository constructs a JobRepository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// FindByID fetches a job posting. Missing rows surface as sql.ErrNoRows.
func (r *JobRepository) FindByID(ctx context.Context, id string) (*models.JobPosting, error) {
	query := fmt.Sprintf(`SELECT %s FROM job_postings WHERE id = $1`, jobColumns)
	var job models.JobPosting
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// FindByIDs fetches the listed postings, newest timestamp first.
func (r *JobRepository) FindByIDs(ctx context.Context, ids []string) ([]models.JobPosting, error) {
	if len(ids) == 0 {
		return []models.JobPosting{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM job_postings WHERE id = ANY($1) ORDER BY timestamp DESC, id`, jobColumns)
	var jobs []models.JobPosting
	if err := r.db.SelectContext(ctx, &jobs, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find jobs by ids: %w", err)
	}
	return jobs, nil
}

// ListAll returns every posting, used by the applicant reconciliation pass.
func (r *JobRepository) ListAll(ctx context.Context) ([]models.JobPosting, error) {
	query := fmt.Sprintf(`SELECT %s FROM job_postings ORDER BY timestamp DESC, id`, jobColumns)
	var jobs []models.JobPosting
	if err := r.db.SelectContext(ctx, &jobs, query); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// Create inserts a new posting with empty applicant and round state.
func (r *JobRepository) Create(ctx context.Context, job *models.JobPosting) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if job.Timestamp.IsZero() {
		job.Timestamp = now
	}
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.ApplicantsIDs == nil {
		job.ApplicantsIDs = pq.StringArray{}
	}
	if job.InterviewRounds == nil {
		job.InterviewRounds = models.InterviewRounds{}
	}
	const query = `INSERT INTO job_postings (id, company, job_role, description, timestamp, dead_line, required_skills,
        min_percentage, allowed_passout_years, allowed_departments, stack, applicants_ids, interview_rounds, created_by,
        created_at, updated_at)
        VALUES (:id, :company, :job_role, :description, :timestamp, :dead_line, :required_skills, :min_percentage,
        :allowed_passout_years, :allowed_departments, :stack, :applicants_ids, :interview_rounds, :created_by,
        :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create job posting: %w", err)
	}
	return nil
}

// AddApplicant appends studentID to the job's applicants unless present.
// It reports whether the row changed.
func (r *JobRepository) AddApplicant(ctx context.Context, jobID, studentID string) (bool, error) {
	const query = `UPDATE job_postings SET applicants_ids = array_append(COALESCE(applicants_ids, '{}'), $2), updated_at = $3
        WHERE id = $1 AND NOT ($2 = ANY(COALESCE(applicants_ids, '{}')))`
	res, err := r.db.ExecContext(ctx, query, jobID, studentID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("add applicant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add applicant rows: %w", err)
	}
	return affected > 0, nil
}

// ShortlistWrite is a shortlist publication. Applicants is the applicant set
// the partition was validated against.
type ShortlistWrite struct {
	JobID      string
	Selected   *models.ShortlistDecision
	Rejected   *models.ShortlistDecision
	Applicants []string
	At         time.Time
}

// PublishShortlist writes both decision sets if no shortlist exists and the
// applicant set is unchanged, then records the outcome on every student.
func (r *JobRepository) PublishShortlist(ctx context.Context, w ShortlistWrite) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin shortlist transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const publishQuery = `UPDATE job_postings SET selected_students_ids = $2, rejected_students_ids = $3, updated_at = $4
        WHERE id = $1 AND selected_students_ids IS NULL AND rejected_students_ids IS NULL
        AND COALESCE(applicants_ids, '{}') @> $5::text[] AND COALESCE(applicants_ids, '{}') <@ $5::text[]`
	res, err := tx.ExecContext(ctx, publishQuery, w.JobID, w.Selected, w.Rejected, w.At, pq.Array(w.Applicants))
	if err != nil {
		return fmt.Errorf("publish shortlist: %w", err)
	}
	if err = requireAffected(res); err != nil {
		return err
	}

	const selectedQuery = `UPDATE students SET selected_jobs = array_append(COALESCE(selected_jobs, '{}'), $1), updated_at = $3
        WHERE id = ANY($2) AND NOT ($1 = ANY(COALESCE(selected_jobs, '{}')))`
	if _, err = tx.ExecContext(ctx, selectedQuery, w.JobID, pq.Array(decisionIDs(w.Selected)), w.At); err != nil {
		return fmt.Errorf("mark shortlisted students: %w", err)
	}
	const rejectedQuery = `UPDATE students SET rejected_jobs = array_append(COALESCE(rejected_jobs, '{}'), $1), updated_at = $3
        WHERE id = ANY($2) AND NOT ($1 = ANY(COALESCE(rejected_jobs, '{}')))`
	if _, err = tx.ExecContext(ctx, rejectedQuery, w.JobID, pq.Array(decisionIDs(w.Rejected)), w.At); err != nil {
		return fmt.Errorf("mark rejected students: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit shortlist: %w", err)
	}
	return nil
}

func decisionIDs(d *models.ShortlistDecision) []string {
	if d == nil {
		return []string{}
	}
	return d.Students
}

// RoundWrite appends one round record. Predecessor is the label that must
// exist and not be final ("" when the round follows the shortlist).
// Successor, when set, must not exist yet; round_final uses it to pin the
// numbered round its inputs were validated against. Placed lists the
// students to mark terminally placed in the same transaction.
type RoundWrite struct {
	JobID       string
	Label       string
	Predecessor string
	Successor   string
	Record      models.RoundRecord
	Placed      []string
}

// AppendRound writes the round record if the state machine predicate still
// holds. Zero matched rows return ErrConditionNotMet.
func (r *JobRepository) AppendRound(ctx context.Context, w RoundWrite) (err error) {
	record, err := models.InterviewRounds{w.Label: w.Record}.Value()
	if err != nil {
		return fmt.Errorf("encode round record: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin round transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query, args := appendRoundQuery(w, record)
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("append round %s: %w", w.Label, err)
	}
	if err = requireAffected(res); err != nil {
		return err
	}

	if len(w.Placed) > 0 {
		const placedQuery = `UPDATE students SET placed = TRUE, updated_at = $2 WHERE id = ANY($1)`
		if _, err = tx.ExecContext(ctx, placedQuery, pq.Array(w.Placed), w.Record.UpdatedAt); err != nil {
			return fmt.Errorf("mark placed students: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit round %s: %w", w.Label, err)
	}
	return nil
}

func appendRoundQuery(w RoundWrite, record interface{}) (string, []interface{}) {
	const rounds = `COALESCE(interview_rounds, '{}'::jsonb)`
	args := []interface{}{w.JobID, w.Label, record, w.Record.UpdatedAt}
	conditions := []string{
		"id = $1",
		"selected_students_ids IS NOT NULL",
		fmt.Sprintf("NOT jsonb_exists(%s, $2)", rounds),
		fmt.Sprintf("NOT jsonb_exists(%s, '%s')", rounds, models.RoundFinal),
	}
	if w.Predecessor != "" {
		args = append(args, w.Predecessor)
		n := len(args)
		conditions = append(conditions,
			fmt.Sprintf("jsonb_exists(%s, $%d)", rounds, n),
			fmt.Sprintf("COALESCE((%s -> $%d ->> 'final')::boolean, FALSE) = FALSE", rounds, n),
		)
	}
	if w.Successor != "" {
		args = append(args, w.Successor)
		conditions = append(conditions, fmt.Sprintf("NOT jsonb_exists(%s, $%d)", rounds, len(args)))
	}
	query := fmt.Sprintf(`UPDATE job_postings SET interview_rounds = %s || $3::jsonb, updated_at = $4 WHERE %s`,
		rounds, strings.Join(conditions, " AND "))
	return query, args
}
