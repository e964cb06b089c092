package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/metrics"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/queue"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/webhook"
)

// Worker drains moderation events from the outbox and delivers them to the
// moderation webhook.
type Worker struct {
	id           int
	queue        queue.TaskQueue
	notifier     webhook.Service
	taskTimeout  time.Duration
	pollInterval time.Duration
	log          zerolog.Logger
	stopChan     chan struct{}
}

// NewWorker creates a new background worker.
func NewWorker(
	id int,
	taskQueue queue.TaskQueue,
	notifier webhook.Service,
	taskTimeout time.Duration,
	pollInterval time.Duration,
	log zerolog.Logger,
) *Worker {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Worker{
		id:           id,
		queue:        taskQueue,
		notifier:     notifier,
		taskTimeout:  taskTimeout,
		pollInterval: pollInterval,
		log:          log.With().Int("worker_id", id).Str("component", "worker").Logger(),
		stopChan:     make(chan struct{}),
	}
}

// Start begins processing tasks from the outbox.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info().Msg("worker started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("worker stopped by context")
			return
		case <-w.stopChan:
			w.log.Info().Msg("worker stopped")
			return
		case <-ticker.C:
			w.processNextTask(ctx)
		}
	}
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	close(w.stopChan)
}

func (w *Worker) processNextTask(ctx context.Context) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to dequeue task")
		return
	}
	if task == nil {
		return
	}

	w.log.Info().
		Str("task_id", task.PublicID).
		Str("message_id", task.MessagePublicID).
		Str("event", task.EventType).
		Msg("delivering moderation event")

	if err := w.queue.MarkProcessing(ctx, task.PublicID); err != nil {
		w.log.Error().Err(err).Str("task_id", task.PublicID).Msg("failed to mark processing")
		return
	}

	taskCtx, cancel := context.WithTimeout(ctx, w.taskTimeout)
	defer cancel()

	event := &webhook.ModerationEvent{
		TaskID:         task.PublicID,
		Event:          task.EventType,
		MessageID:      task.MessagePublicID,
		ConversationID: task.ConversationPublicID,
		ActorID:        task.ActorID,
		OccurredAt:     task.QueuedAt,
	}

	if err := w.notifier.NotifyModerationDeleted(taskCtx, event); err != nil {
		w.log.Error().Err(err).Str("task_id", task.PublicID).Msg("moderation event delivery failed")
		metrics.RecordWebhookDelivery("failed")
		if markErr := w.queue.MarkFailed(ctx, task.PublicID, err); markErr != nil {
			w.log.Error().Err(markErr).Str("task_id", task.PublicID).Msg("failed to mark task as failed")
		}
		return
	}
	metrics.RecordWebhookDelivery("delivered")

	if err := w.queue.MarkCompleted(ctx, task.PublicID); err != nil {
		w.log.Error().Err(err).Str("task_id", task.PublicID).Msg("failed to mark task as completed")
		return
	}

	w.log.Info().Str("task_id", task.PublicID).Msg("moderation event delivered")
}
