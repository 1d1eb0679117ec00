package jobs

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/derricker/meetai/internal/domain/entities"
	"github.com/derricker/meetai/internal/domain/repositories"
)

// wakeList is the redis list workers block on for low-latency job pickup
const wakeList = "meetai:jobs:wake"

// Queue accepts meetings/processing events. The postgres row is the durable,
// at-least-once contract: once Enqueue returns nil the event will eventually
// be executed, even if redis and every worker die first. The redis push only
// shortens pickup latency.
type Queue struct {
	jobs        repositories.JobRepository
	redis       *redis.Client
	maxAttempts int
	logger      *zap.Logger
}

// NewQueue creates a job queue
func NewQueue(jobs repositories.JobRepository, redisClient *redis.Client, maxAttempts int, logger *zap.Logger) *Queue {
	return &Queue{
		jobs:        jobs,
		redis:       redisClient,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Enqueue durably records a meetings/processing event
func (q *Queue) Enqueue(ctx context.Context, meetingID, transcriptURL string) error {
	job := entities.NewProcessingJob(meetingID, transcriptURL, q.maxAttempts)
	if err := q.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("create processing job: %w", err)
	}

	// Best effort: polling picks the job up anyway if the nudge is lost.
	if q.redis != nil {
		if err := q.redis.LPush(ctx, wakeList, job.ID.String()).Err(); err != nil {
			q.logger.Warn("failed to nudge workers via redis",
				zap.String("job_id", job.ID.String()),
				zap.Error(err))
		}
	}

	q.logger.Info("processing job enqueued",
		zap.String("job_id", job.ID.String()),
		zap.String("event", job.Event),
		zap.String("meeting_id", meetingID))
	return nil
}
