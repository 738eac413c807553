// Package fetcher drains a Thing's broker queues on a schedule and
// hands received payloads to the inbox store. It decides nothing about
// message content; interpretation happens downstream.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/HomerusJa/experiment-coordinator-dashboard/internal/store"
	"github.com/HomerusJa/experiment-coordinator-dashboard/s3i"
)

// Broker is the subset of the broker client the fetcher needs.
type Broker interface {
	Receive(ctx context.Context, event, all bool) (json.RawMessage, error)
}

// Inbox persists received payloads.
type Inbox interface {
	SaveMessage(rec store.Record) error
	SaveEvent(rec store.Record) error
}

// Fetcher performs single fetch passes over the message and event
// queues. It never retries; a failed pass is reported and the next tick
// tries again.
type Fetcher struct {
	broker Broker
	inbox  Inbox
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Fetcher. A nil logger selects slog.Default().
func New(broker Broker, inbox Inbox, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		broker: broker,
		inbox:  inbox,
		logger: logger,
		now:    time.Now,
	}
}

// FetchOnce receives once from the message queue and once from the
// event queue, persisting whatever arrived. An empty queue is a clean
// no-op; any other failure aborts the pass.
func (f *Fetcher) FetchOnce(ctx context.Context) error {
	if err := f.fetchQueue(ctx, false); err != nil {
		return fmt.Errorf("fetching messages: %w", err)
	}

	if err := f.fetchQueue(ctx, true); err != nil {
		return fmt.Errorf("fetching events: %w", err)
	}

	return nil
}

func (f *Fetcher) fetchQueue(ctx context.Context, event bool) error {
	raw, err := f.broker.Receive(ctx, event, false)
	if err != nil {
		if isQueueEmpty(err) {
			f.logger.Debug("queue empty", "event", event)
			return nil
		}

		return err
	}

	env := s3i.NewEnvelope(raw)
	if env.Empty() {
		f.logger.Debug("queue returned empty payload", "event", event)
		return nil
	}

	rec := store.Record{
		ID:         env.Identifier(),
		ReceivedAt: f.now(),
		Payload:    raw,
	}

	// Not every broker payload carries an identifier; synthesize one so
	// the store key stays unique.
	if rec.ID == "" {
		rec.ID = s3i.NewMessageID()
	}

	if event {
		err = f.inbox.SaveEvent(rec)
	} else {
		err = f.inbox.SaveMessage(rec)
	}

	if err != nil {
		return err
	}

	f.logger.Info("payload stored",
		"id", rec.ID,
		"event", event,
		"sender", env.Sender(),
		"bytes", len(raw),
	)

	return nil
}

// isQueueEmpty reports whether err is the broker's "no message
// available" signal rather than a genuine fault. The broker answers an
// empty queue with 404 on its receive endpoints.
func isQueueEmpty(err error) bool {
	be, ok := s3i.AsBrokerError(err)
	if !ok {
		return false
	}

	return be.StatusCode == http.StatusNotFound
}

// Run fetches on a fixed interval until ctx is cancelled. Failures are
// logged and the loop keeps ticking; cancellation returns nil.
func (f *Fetcher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := f.FetchOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			f.logger.Error("fetch pass failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
