package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/derricker/meetai/internal/domain/entities"
	"github.com/derricker/meetai/internal/domain/repositories"
)

// jobRepository implements the JobRepository interface
type jobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *gorm.DB) repositories.JobRepository {
	return &jobRepository{db: db}
}

// Create creates a new processing job
func (r *jobRepository) Create(ctx context.Context, job *entities.ProcessingJob) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}
	return r.db.WithContext(ctx).Create(job).Error
}

// FindByID retrieves a job by ID
func (r *jobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.ProcessingJob, error) {
	var job entities.ProcessingJob
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

// Claim atomically picks one due job and moves it to running. The inner
// select uses SKIP LOCKED so concurrent workers never block each other or
// claim the same row. A running job whose started_at is older than the lease
// is treated as abandoned and claimed again.
func (r *jobRepository) Claim(ctx context.Context, now time.Time, lease time.Duration) (*entities.ProcessingJob, error) {
	var job entities.ProcessingJob
	staleBefore := now.Add(-lease)

	res := r.db.WithContext(ctx).Raw(`
		UPDATE processing_jobs
		SET status = ?, started_at = ?, attempts = attempts + 1, updated_at = ?
		WHERE id = (
			SELECT id FROM processing_jobs
			WHERE (status IN ? AND next_run_at <= ?)
			   OR (status = ? AND started_at < ?)
			ORDER BY next_run_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`,
		entities.JobStatusRunning, now, now,
		[]entities.JobStatus{entities.JobStatusPending, entities.JobStatusRetrying}, now,
		entities.JobStatusRunning, staleBefore,
	).Scan(&job)

	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &job, nil
}

// MarkCompleted marks a job as successfully completed
func (r *jobRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&entities.ProcessingJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       entities.JobStatusCompleted,
			"completed_at": now,
		}).Error
}

// MarkRetrying schedules a job for another attempt after a transient failure
func (r *jobRepository) MarkRetrying(ctx context.Context, id uuid.UUID, nextRunAt time.Time, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&entities.ProcessingJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      entities.JobStatusRetrying,
			"next_run_at": nextRunAt,
			"last_error":  lastError,
		}).Error
}

// MarkFailed moves a job to its terminal failed state. This is the
// operator-visible record of a meeting stuck in processing.
func (r *jobRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&entities.ProcessingJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       entities.JobStatusFailed,
			"last_error":   lastError,
			"completed_at": now,
		}).Error
}

// GetStep retrieves the memoized result for (jobID, name)
func (r *jobRepository) GetStep(ctx context.Context, jobID uuid.UUID, name string) (*entities.JobStep, error) {
	var step entities.JobStep
	err := r.db.WithContext(ctx).
		Where("job_id = ? AND name = ?", jobID, name).
		First(&step).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &step, nil
}

// SaveStep upserts a step result keyed on (jobID, name). Re-running a step on
// redelivery overwrites with an equivalent result, so the upsert keeps step
// persistence idempotent.
func (r *jobRepository) SaveStep(ctx context.Context, step *entities.JobStep) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"result", "completed_at"}),
		}).
		Create(step).Error
}
