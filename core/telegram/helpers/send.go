package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/triviabot/core/logger"
	"github.com/m3rciful/triviabot/core/telegram/sender"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by Deliver.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

// Deliver queues job on the shared dispatcher. Without a dispatcher, or when
// its queue is full or closed, the job runs synchronously instead.
func Deliver(ctx context.Context, job sender.Job) error {
	if ctx == nil {
		ctx = context.Background()
	}
	disp := globalDispatcher.Load()
	if disp == nil {
		return job.Run(ctx)
	}

	err := disp.Enqueue(ctx, job)
	if err == nil {
		return nil
	}
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", job.Action),
			slog.String("endpoint", job.Endpoint),
			slog.String("err", err.Error()),
		)
		return disp.Execute(ctx, job)
	}
	return err
}
