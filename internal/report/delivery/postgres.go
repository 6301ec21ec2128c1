package delivery

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"report-workers/internal/models"
)

const createJobsTable = `
CREATE TABLE IF NOT EXISTS report_delivery_jobs (
	id              TEXT PRIMARY KEY,
	recipient       TEXT NOT NULL,
	language        TEXT NOT NULL,
	status          TEXT NOT NULL,
	error           TEXT NOT NULL DEFAULT '',
	idempotency_key TEXT NOT NULL DEFAULT '',
	deduplicated    BOOLEAN NOT NULL DEFAULT FALSE,
	outcome         JSONB,
	html            TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
)`

const upsertJob = `
INSERT INTO report_delivery_jobs
	(id, recipient, language, status, error, idempotency_key, deduplicated, outcome, html, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	error = EXCLUDED.error,
	idempotency_key = EXCLUDED.idempotency_key,
	deduplicated = EXCLUDED.deduplicated,
	outcome = EXCLUDED.outcome,
	updated_at = EXCLUDED.updated_at`

const selectJob = `
SELECT id, recipient, language, status, error, idempotency_key, deduplicated, outcome, html, created_at, updated_at
FROM report_delivery_jobs WHERE id = $1`

// PostgresJobStore mirrors job state so status survives a restart.
type PostgresJobStore struct {
	db *sql.DB
}

func NewPostgresJobStore(db *sql.DB) *PostgresJobStore {
	return &PostgresJobStore{db: db}
}

func (s *PostgresJobStore) Open(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createJobsTable); err != nil {
		return fmt.Errorf("create delivery jobs table: %w", err)
	}
	return nil
}

// Close is a no-op; the connection pool is owned by the caller.
func (s *PostgresJobStore) Close() error { return nil }

func (s *PostgresJobStore) Save(ctx context.Context, job *models.DeliveryJob) error {
	var outcome []byte
	if job.Outcome != nil {
		raw, err := json.Marshal(job.Outcome)
		if err != nil {
			return fmt.Errorf("encode outcome: %w", err)
		}
		outcome = raw
	}

	_, err := s.db.ExecContext(ctx, upsertJob,
		job.ID, job.Recipient, job.Language, string(job.Status), job.Error,
		job.IdempotencyKey, job.Deduplicated, outcome, job.HTML, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save delivery job %s: %w", job.ID, err)
	}
	return nil
}

func (s *PostgresJobStore) Get(ctx context.Context, id string) (*models.DeliveryJob, error) {
	var (
		job     models.DeliveryJob
		status  string
		outcome []byte
	)
	err := s.db.QueryRowContext(ctx, selectJob, id).Scan(
		&job.ID, &job.Recipient, &job.Language, &status, &job.Error,
		&job.IdempotencyKey, &job.Deduplicated, &outcome, &job.HTML, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load delivery job %s: %w", id, err)
	}

	job.Status = models.JobStatus(status)
	if len(outcome) > 0 {
		var o models.DeliveryOutcome
		if err := json.Unmarshal(outcome, &o); err != nil {
			return nil, fmt.Errorf("decode outcome of job %s: %w", id, err)
		}
		job.Outcome = &o
	}
	return &job, nil
}
