package event

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/stagelink/modgate/internal/infra"
)

type worker struct {
	subscriptions map[string][]func(event Queueable)
}

var (
	instance = &worker{
		subscriptions: map[string][]func(event Queueable){},
	}
	l = log.WithField("context", "event_worker")
)

// Subscribe registers a handler for an event type. Call before RunWorker,
// the subscription map is not guarded after the worker starts.
func Subscribe(eventType string, handler func(event Queueable)) {
	instance.subscriptions[eventType] = append(instance.subscriptions[eventType], handler)
}

func RunWorker(ctx context.Context) context.CancelFunc {
	runCtx, cancelFunc := context.WithCancel(ctx)
	instance.Run(runCtx)
	return cancelFunc
}

func (w *worker) Run(ctx context.Context) {
	done := ctx.Done()

	// A panicking subscriber must not take the whole worker down.
	go infra.GoRecoverable(-1, "event_worker", func() {
		l.Trace("events runner go")
		var event Queueable
		for {
			select {
			case <-done:
				l.Info("shutting down event worker by cancelled context")
				return
			default:
				time.Sleep(1 * time.Millisecond)
				event = Bus.Dequeue()
				if event == nil {
					continue
				}

				if event.Expired() {
					continue
				}

				subscribers, ok := w.subscriptions[event.Type()]
				if !ok {
					Bus.Enqueue(event)
					continue
				}
				for _, sub := range subscribers {
					sub(event)
					if event.IsDropped() {
						break
					}
				}

				if event.IsDropped() {
					continue
				}
				if !event.IsProcessed() {
					Bus.Enqueue(event)
				}
			}
		}
	})
}
