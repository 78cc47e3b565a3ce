package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/sheetfed/internal/domain"
)

type jobRepository struct {
	pool *pgxpool.Pool
}

// NewJobRepository wires a repository backed by pgxpool.
func NewJobRepository(pool *pgxpool.Pool) JobRepository {
	return &jobRepository{pool: pool}
}

const jobColumns = `id, operation, space_id, workbook_id, status, progress, info, outcome_message, created_at, updated_at, completed_at`

func (r *jobRepository) Create(ctx context.Context, job domain.Job) (domain.Job, error) {
	if r.pool == nil {
		return domain.Job{}, fmt.Errorf("job repository not initialized")
	}

	id := uuid.New()
	if job.ID != "" {
		parsed, err := parseID("job", job.ID)
		if err != nil {
			return domain.Job{}, err
		}
		id = parsed
	}
	status := job.Status
	if status == "" {
		status = domain.JobStatusPending
	}

	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO jobs (id, operation, space_id, workbook_id, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+jobColumns,
		id,
		job.Operation,
		job.SpaceID,
		job.WorkbookID,
		string(status),
	)
	created, err := scanJob(row)
	if err != nil {
		return domain.Job{}, fmt.Errorf("failed to create job: %w", err)
	}
	return created, nil
}

func (r *jobRepository) GetByID(ctx context.Context, jobID string) (domain.Job, error) {
	if r.pool == nil {
		return domain.Job{}, fmt.Errorf("job repository not initialized")
	}
	id, err := parseID("job", jobID)
	if err != nil {
		return domain.Job{}, err
	}

	job, err := scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Job{}, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
		}
		return domain.Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Ack moves a pending job to running.
func (r *jobRepository) Ack(ctx context.Context, jobID string, update domain.JobUpdate) error {
	return r.transition(ctx, jobID, update, domain.JobStatusRunning, false,
		[]domain.JobStatus{domain.JobStatusPending, domain.JobStatusRunning})
}

func (r *jobRepository) Update(ctx context.Context, jobID string, update domain.JobUpdate) error {
	return r.transition(ctx, jobID, update, domain.JobStatusRunning, false,
		[]domain.JobStatus{domain.JobStatusRunning})
}

func (r *jobRepository) Complete(ctx context.Context, jobID string, update domain.JobUpdate) error {
	return r.transition(ctx, jobID, update, domain.JobStatusCompleted, true,
		[]domain.JobStatus{domain.JobStatusPending, domain.JobStatusRunning})
}

func (r *jobRepository) Fail(ctx context.Context, jobID string, update domain.JobUpdate) error {
	return r.transition(ctx, jobID, update, domain.JobStatusFailed, true,
		[]domain.JobStatus{domain.JobStatusPending, domain.JobStatusRunning})
}

func (r *jobRepository) transition(
	ctx context.Context,
	jobID string,
	update domain.JobUpdate,
	status domain.JobStatus,
	terminal bool,
	from []domain.JobStatus,
) error {
	if r.pool == nil {
		return fmt.Errorf("job repository not initialized")
	}
	id, err := parseID("job", jobID)
	if err != nil {
		return err
	}

	progress := pgtype.Int4{}
	if update.Progress != nil {
		progress = pgtype.Int4{Int32: int32(*update.Progress), Valid: true}
	}
	info := pgtype.Text{}
	if update.Info != "" {
		info = pgtype.Text{String: update.Info, Valid: true}
	}
	outcome := pgtype.Text{}
	if update.Outcome != nil {
		outcome = pgtype.Text{String: update.Outcome.Message, Valid: true}
	}
	allowed := make([]string, 0, len(from))
	for _, s := range from {
		allowed = append(allowed, string(s))
	}

	tag, err := r.pool.Exec(
		ctx,
		`UPDATE jobs
		 SET status = $2,
		     progress = COALESCE($3, progress),
		     info = COALESCE($4, info),
		     outcome_message = COALESCE($5, outcome_message),
		     updated_at = now(),
		     completed_at = CASE WHEN $6 THEN now() ELSE completed_at END
		 WHERE id = $1
		   AND status = ANY($7)`,
		id,
		string(status),
		progress,
		info,
		outcome,
		terminal,
		allowed,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job %s %s: %w", jobID, status, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s cannot move to %s: %w", jobID, status, ErrJobStatusConflict)
	}
	return nil
}

func scanJob(row pgx.Row) (domain.Job, error) {
	var (
		job         domain.Job
		id          uuid.UUID
		status      string
		progress    int32
		info        pgtype.Text
		outcome     pgtype.Text
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
		completedAt pgtype.Timestamptz
	)
	if err := row.Scan(
		&id,
		&job.Operation,
		&job.SpaceID,
		&job.WorkbookID,
		&status,
		&progress,
		&info,
		&outcome,
		&createdAt,
		&updatedAt,
		&completedAt,
	); err != nil {
		return domain.Job{}, err
	}

	job.ID = id.String()
	job.Status = domain.JobStatus(status)
	job.Progress = int(progress)
	if info.Valid {
		value := info.String
		job.Info = &value
	}
	if outcome.Valid {
		value := outcome.String
		job.OutcomeMessage = &value
	}
	if createdAt.Valid {
		job.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		job.UpdatedAt = updatedAt.Time
	}
	if completedAt.Valid {
		value := completedAt.Time
		job.CompletedAt = &value
	}
	return job, nil
}
