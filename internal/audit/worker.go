package audit

import "context"

// Worker drains buffered events to the configured sinks so sink latency
// (Kafka produce, consortium export) never sits on the request path.
// Events reach the Worker only after the store append succeeded.
type Worker struct {
	sinks []Sink
	inbox <-chan Event
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			for _, sink := range w.sinks {
				_ = sink.Publish(ctx, event)
			}
		}
	}
}
