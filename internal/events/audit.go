package events

import (
	"context"
	"log/slog"
	"sync"
)

// RunAuditLog consumes every account topic of an in-process publisher and
// writes one log line per event until ctx is done.
func RunAuditLog(ctx context.Context, p *Publisher, logger *slog.Logger) error {
	var wg sync.WaitGroup
	for _, topic := range Topics() {
		msgs, err := p.Subscribe(ctx, topic)
		if err != nil {
			return err
		}

		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			for msg := range msgs {
				ev, err := Decode(msg)
				if err != nil {
					logger.Warn("discarding malformed account event", "topic", topic, "error", err)
					msg.Nack()
					continue
				}
				logger.Info("account event",
					"topic", topic,
					"user_id", ev.UserID.String(),
					"email", ev.Email,
				)
				msg.Ack()
			}
		}(topic)
	}

	go func() {
		wg.Wait()
		logger.Info("account audit log stopped")
	}()
	return nil
}
