package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/joao-fontenele/restaurant-pos/internal/audit"
	"github.com/joao-fontenele/restaurant-pos/internal/messaging"
)

type OutboxStore interface {
	Claim(ctx context.Context, limit int, fn func(ctx context.Context, msgs []audit.OutboxMessage) error) error
	Delete(ctx context.Context, id int64) error
	Reschedule(ctx context.Context, id int64, attempts int, lastError string, next time.Time) error
}

type Sender interface {
	Send(ctx context.Context, msg messaging.Message) error
}

type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
}

// Relay moves audit events from the outbox table to Kafka. A message is deleted
// only after the broker acknowledged it, so delivery is at-least-once.
type Relay struct {
	outbox OutboxStore
	sender Sender
	cfg    RelayConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewRelay(outbox OutboxStore, sender Sender, cfg RelayConfig, logger *slog.Logger) *Relay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Minute
	}
	return &Relay{
		outbox: outbox,
		sender: sender,
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started", "poll_interval", r.cfg.PollInterval, "batch_size", r.cfg.BatchSize)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("outbox relay pass failed", "error", err)
			}
		}
	}
}

// RunOnce publishes one batch and reports how many messages were delivered.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	var published int
	err := r.outbox.Claim(ctx, r.cfg.BatchSize, func(ctx context.Context, msgs []audit.OutboxMessage) error {
		for _, msg := range msgs {
			sendErr := r.sender.Send(ctx, messaging.Message{
				Key:     msg.Key,
				Value:   msg.Payload,
				Headers: msg.Headers,
			})
			if sendErr != nil {
				attempts := msg.Attempts + 1
				next := r.now().Add(r.backoff(attempts))
				r.logger.Warn("failed to publish audit event, will retry",
					"outbox_id", msg.ID, "event_id", msg.EventID, "attempts", attempts, "next_attempt_at", next, "error", sendErr)
				if err := r.outbox.Reschedule(ctx, msg.ID, attempts, sendErr.Error(), next); err != nil {
					return err
				}
				continue
			}

			if err := r.outbox.Delete(ctx, msg.ID); err != nil {
				return err
			}
			published++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if published > 0 {
		r.logger.Info("audit events published", "count", published)
	}
	return published, nil
}

// backoff doubles from BaseBackoff per attempt, capped at MaxBackoff.
func (r *Relay) backoff(attempts int) time.Duration {
	d := r.cfg.BaseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= r.cfg.MaxBackoff {
			return r.cfg.MaxBackoff
		}
	}
	return min(d, r.cfg.MaxBackoff)
}
