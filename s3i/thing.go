package s3i

import "log/slog"

// Thing identifies an agent in the S3I network: its id and secret for
// the identity provider, and its two inbound broker queues. Queue names
// are fixed at construction; defaulting happens exactly once.
type Thing struct {
	ID           string
	Secret       string
	MessageQueue string
	EventQueue   string
}

// NewThing builds a Thing identity. Empty queue names are defaulted to
// the S3I conventions "s3ibs://{id}" and "s3ib://{id}/event"; each
// synthesized default is reported at warning level so misconfiguration
// is visible to operators. A nil logger selects slog.Default().
func NewThing(logger *slog.Logger, id, secret, messageQueue, eventQueue string) Thing {
	if logger == nil {
		logger = slog.Default()
	}

	if messageQueue == "" {
		messageQueue = "s3ibs://" + id
		logger.Warn("no message queue provided, generated default", "message_queue", messageQueue)
	}

	if eventQueue == "" {
		eventQueue = "s3ib://" + id + "/event"
		logger.Warn("no event queue provided, generated default", "event_queue", eventQueue)
	}

	return Thing{
		ID:           id,
		Secret:       secret,
		MessageQueue: messageQueue,
		EventQueue:   eventQueue,
	}
}
