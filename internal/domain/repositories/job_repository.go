package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/derricker/meetai/internal/domain/entities"
)

// JobRepository defines persistence for background jobs and their memoized
// step results. Claiming is a guarded update so that concurrent workers never
// run the same job twice at the same time; a running job whose lease expired
// is claimable again, which is what makes delivery at-least-once.
type JobRepository interface {
	Create(ctx context.Context, job *entities.ProcessingJob) error

	// FindByID returns entities.ErrJobNotFound when the row is absent.
	FindByID(ctx context.Context, id uuid.UUID) (*entities.ProcessingJob, error)

	// Claim atomically moves one due job to running (incrementing attempts)
	// and returns it, or nil when no job is due. lease bounds how long a
	// claimed job may stay running before it is considered abandoned.
	Claim(ctx context.Context, now time.Time, lease time.Duration) (*entities.ProcessingJob, error)

	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkRetrying(ctx context.Context, id uuid.UUID, nextRunAt time.Time, lastError string) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error

	// GetStep returns the memoized result for (jobID, name), or nil when the
	// step has not completed yet.
	GetStep(ctx context.Context, jobID uuid.UUID, name string) (*entities.JobStep, error)

	// SaveStep upserts a step result keyed on (jobID, name).
	SaveStep(ctx context.Context, step *entities.JobStep) error
}
