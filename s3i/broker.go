package s3i

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// DefaultBrokerURL is the REST surface of the S3I message broker.
const DefaultBrokerURL = "https://broker.s3i.vswf.dev"

// BrokerClient sends and receives messages through the S3I broker on
// behalf of one Thing. It holds no state beyond its configuration; every
// call obtains a token from the TokenSource and issues one HTTP request.
type BrokerClient struct {
	tokens       TokenSource
	baseURL      string
	messageQueue string
	eventQueue   string
	httpClient   *http.Client
	ownsClient   bool
	logger       *slog.Logger
}

// NewBrokerClient creates a client for thing's queues. If httpClient is
// nil, a client with a 30-second timeout is created and owned by the
// BrokerClient. An empty brokerURL selects DefaultBrokerURL; a nil
// logger selects slog.Default().
func NewBrokerClient(thing Thing, tokens TokenSource, httpClient *http.Client, brokerURL string, logger *slog.Logger) *BrokerClient {
	owns := false
	if httpClient == nil {
		httpClient = &http.Client{Timeout: httpClientTimeout}
		owns = true
	}

	if brokerURL == "" {
		brokerURL = DefaultBrokerURL
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &BrokerClient{
		tokens:       tokens,
		baseURL:      brokerURL,
		messageQueue: thing.MessageQueue,
		eventQueue:   thing.EventQueue,
		httpClient:   httpClient,
		ownsClient:   owns,
		logger:       logger,
	}
}

// Send posts message as JSON to {brokerURL}/{endpoint}. The broker
// acknowledges with 201 Created; any other status is a BrokerError
// carrying the response headers, the original message, the status code
// and the raw response text.
func (b *BrokerClient) Send(ctx context.Context, endpoint string, message any) error {
	tok, err := b.tokens.ObtainToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshalling message: %w", err)
	}

	reqURL := b.baseURL + "/" + endpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tok.AuthorizationValue())

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return &BrokerError{ProtocolError{
			Message: fmt.Sprintf("sending message to %s", endpoint),
			Body:    message,
			Err:     err,
		}}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode != http.StatusCreated {
		return &BrokerError{ProtocolError{
			Message:    fmt.Sprintf("failed to send message to %s", endpoint),
			Headers:    resp.Header,
			Body:       message,
			StatusCode: resp.StatusCode,
			Response:   string(respBody),
		}}
	}

	b.logger.Debug("message sent", "endpoint", endpoint)

	return nil
}

// Receive fetches the next payload from one of the Thing's queues: the
// event queue when event is true, the message queue otherwise. When all
// is true a literal "/all" suffix is appended to the endpoint path and
// the broker returns every queued entry at once. The broker answers
// 200 OK with a JSON body; any other status is a BrokerError.
func (b *BrokerClient) Receive(ctx context.Context, event, all bool) (json.RawMessage, error) {
	endpoint := b.messageQueue
	if event {
		endpoint = b.eventQueue
	}

	tok, err := b.tokens.ObtainToken(ctx)
	if err != nil {
		return nil, err
	}

	reqURL := b.baseURL + "/" + endpoint
	if all {
		reqURL += "/all"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", tok.AuthorizationValue())

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &BrokerError{ProtocolError{
			Message: fmt.Sprintf("receiving from %s", endpoint),
			Err:     err,
		}}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &BrokerError{ProtocolError{
			Message:    fmt.Sprintf("reading response from %s", endpoint),
			StatusCode: resp.StatusCode,
			Err:        err,
		}}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &BrokerError{ProtocolError{
			Message:    fmt.Sprintf("failed to get message from %s", endpoint),
			Headers:    resp.Header,
			StatusCode: resp.StatusCode,
			Response:   string(respBody),
		}}
	}

	if !json.Valid(respBody) {
		return nil, &BrokerError{ProtocolError{
			Message:    fmt.Sprintf("broker returned invalid JSON from %s", endpoint),
			StatusCode: resp.StatusCode,
			Response:   string(respBody),
		}}
	}

	b.logger.Debug("message received", "endpoint", endpoint, "bytes", len(respBody))

	return json.RawMessage(respBody), nil
}

// Close releases the HTTP transport if the BrokerClient owns it.
func (b *BrokerClient) Close() {
	if b.ownsClient {
		b.httpClient.CloseIdleConnections()
	}
}
