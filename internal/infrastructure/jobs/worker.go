package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/derricker/meetai/internal/domain/entities"
	"github.com/derricker/meetai/internal/domain/repositories"
	"github.com/derricker/meetai/pkg/config"
	"github.com/derricker/meetai/pkg/jobcontext"
)

// Runner executes one claimed job to completion
type Runner interface {
	Run(ctx context.Context, job *entities.ProcessingJob) error
}

// Worker drains the job table with a pool of goroutines. Claims are guarded
// updates in postgres, so workers coordinate without any in-process locking;
// redis only wakes idle workers early.
type Worker struct {
	jobs    repositories.JobRepository
	runner  Runner
	redis   *redis.Client
	cfg     config.WorkerConfig
	logger  *zap.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// NewWorker creates a worker pool over the job repository
func NewWorker(jobs repositories.JobRepository, runner Runner, redisClient *redis.Client, cfg config.WorkerConfig, logger *zap.Logger) *Worker {
	return &Worker{
		jobs:   jobs,
		runner: runner,
		redis:  redisClient,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start launches the worker goroutines
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true

	for i := 0; i < w.cfg.Count; i++ {
		w.wg.Add(1)
		go w.loop(ctx, i)
	}
	w.logger.Info("job workers started", zap.Int("count", w.cfg.Count))
}

// Stop signals all workers and waits for in-flight jobs to finish
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info("job workers stopped")
}

func (w *Worker) loop(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.jobs.Claim(ctx, time.Now().UTC(), w.cfg.LeaseTimeout)
		if err != nil {
			w.logger.Error("failed to claim job", zap.Int("worker_id", workerID), zap.Error(err))
			w.idle(ctx)
			continue
		}
		if job == nil {
			w.idle(ctx)
			continue
		}

		w.execute(ctx, workerID, job)
	}
}

// idle blocks until a redis nudge arrives or the poll interval elapses
func (w *Worker) idle(ctx context.Context) {
	if w.redis != nil {
		// BRPOP doubles as the poll sleep; a timeout just means no nudge.
		w.redis.BRPop(ctx, w.cfg.PollInterval, wakeList)
		return
	}

	select {
	case <-time.After(w.cfg.PollInterval):
	case <-w.stopCh:
	case <-ctx.Done():
	}
}

func (w *Worker) execute(parent context.Context, workerID int, job *entities.ProcessingJob) {
	ctx, cancel := jobcontext.JobBegin(parent, job.ID, job.Event, workerID, w.cfg.JobTimeout)
	defer cancel()

	log := w.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.String("event", job.Event),
		zap.String("meeting_id", job.MeetingID),
		zap.Int("worker_id", workerID),
		zap.Int("attempt", job.Attempts),
	)
	log.Info("job started")

	err := w.run(ctx, job)
	if err == nil {
		if markErr := w.jobs.MarkCompleted(parent, job.ID); markErr != nil {
			log.Error("failed to mark job completed", zap.Error(markErr))
		}
		log.Info("job completed")
		return
	}

	if jobcontext.IsRetryableError(err) && job.HasAttemptsLeft() {
		delay := jobcontext.CalculateBackoff(job.Attempts, 5*time.Second)
		nextRun := time.Now().UTC().Add(delay)
		if markErr := w.jobs.MarkRetrying(parent, job.ID, nextRun, err.Error()); markErr != nil {
			log.Error("failed to mark job retrying", zap.Error(markErr))
		}
		log.Warn("job failed, retry scheduled",
			zap.Duration("delay", delay),
			zap.Error(err))
		return
	}

	// Terminal failure. The meeting stays in processing; this row plus the
	// error log is what operators monitor for stuck meetings.
	if markErr := w.jobs.MarkFailed(parent, job.ID, err.Error()); markErr != nil {
		log.Error("failed to mark job failed", zap.Error(markErr))
	}
	log.Error("job failed permanently", zap.Error(err))
}

// run isolates panics so one poisoned job cannot take down the pool
func (w *Worker) run(ctx context.Context, job *entities.ProcessingJob) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &panicError{value: p}
		}
	}()
	return w.runner.Run(ctx, job)
}

type panicError struct {
	value interface{}
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic recovered during job execution: %v", e.value)
}
