// Package worker contains the cleanup consumer: it takes image-deletion tasks from the queue and purges them from providers
package worker

import (
	"context"
	"encoding/json"

	"github.com/UnendingLoop/ListingImages/internal/model"
	"github.com/UnendingLoop/ListingImages/internal/mwlogger"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/helpers"
	"github.com/wb-go/wbf/zlog"
)

type Committer interface {
	Commit(ctx context.Context, msg kafkago.Message) error
}

type ImagePurger interface {
	Purge(ctx context.Context, urls []string)
}

type Worker struct {
	purger   ImagePurger
	queue    <-chan kafkago.Message
	consumer Committer
}

func NewWorkerInstance(p ImagePurger, q <-chan kafkago.Message, cons Committer) *Worker {
	return &Worker{purger: p, queue: q, consumer: cons}
}

func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				zlog.Logger.Info().Msg("Queue channel closed, stopping worker...")
				return
			}
			w.handle(ctx, msg)
		}
	}
}

// handle - сообщение коммитится в любом случае: битую задачу повторять бессмысленно, а ошибки удаления уже залогированы
func (w *Worker) handle(ctx context.Context, msg kafkago.Message) {
	logger := zlog.Logger.With().
		Str("task_id", helpers.CreateUUID()).
		Str("listing_id", string(msg.Key)).
		Int64("offset", msg.Offset).
		Logger()
	ctx = mwlogger.WithLogger(ctx, logger)

	var task model.CleanupTask
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		logger.Error().Err(err).Msg("Malformed cleanup task, skipping")
	} else {
		logger.Info().Int("urls", len(task.URLs)).Msg("Cleanup task received")
		w.purger.Purge(ctx, task.URLs)
	}

	if err := w.consumer.Commit(ctx, msg); err != nil {
		logger.Error().Err(err).Msg("Failed to commit queue-message")
	}
}
