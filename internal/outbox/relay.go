package outbox

import (
	"context"
	"io"
	"log"
	"time"

	"storefront/internal/events"
)

type Store interface {
	FetchPending(ctx context.Context, limit int) ([]Record, error)
	MarkSent(ctx context.Context, id int64) error
}

// Relay polls pending records and publishes them in id order. A record that fails to
// publish stops the batch so later events for the same order are not sent ahead of it.
type Relay struct {
	store     Store
	publisher events.Publisher
	interval  time.Duration
	batch     int
	logger    *log.Logger
}

func NewRelay(store Store, publisher events.Publisher, interval time.Duration, logger *log.Logger) *Relay {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Relay{store: store, publisher: publisher, interval: interval, batch: 100, logger: logger}
}

// Run blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
				r.logger.Printf("outbox relay: flush error=%v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Flush publishes one batch and returns how many records were sent.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	records, err := r.store.FetchPending(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, rec := range records {
		msg := events.Message{
			EventID: rec.EventID,
			Type:    rec.Topic,
			Key:     rec.Key,
			Payload: rec.Payload,
			Time:    rec.CreatedAt,
		}
		if err := r.publisher.Publish(ctx, msg); err != nil {
			r.logger.Printf("outbox relay: publish id=%d type=%s error=%v", rec.ID, rec.Topic, err)
			return sent, err
		}
		if err := r.store.MarkSent(ctx, rec.ID); err != nil {
			r.logger.Printf("outbox relay: mark sent id=%d error=%v", rec.ID, err)
			return sent, err
		}
		sent++
	}
	if sent > 0 {
		r.logger.Printf("outbox relay: published %d events", sent)
	}
	return sent, nil
}
