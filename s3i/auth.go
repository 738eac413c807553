package s3i

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultIdPURL is the token endpoint of the S3I identity provider
// (Keycloak, KWH realm).
const DefaultIdPURL = "https://idp.s3i.vswf.dev/auth/realms/KWH/protocol/openid-connect/token"

const (
	// httpClientTimeout is the timeout for the default HTTP client used
	// when no custom client is provided.
	httpClientTimeout = 30 * time.Second

	// maxResponseBytes caps response body reads. IdP and broker
	// responses are small JSON payloads.
	maxResponseBytes = 1024 * 1024
)

// invalidClientBody is the exact response body Keycloak returns when it
// rejects the client credentials. Matched verbatim to distinguish
// InvalidCredentialsError from other authentication failures.
const invalidClientBody = `{"error":"invalid_client","error_description":"Invalid client credentials"}`

// GrantPayload builds the form fields for the initial token request.
// The refresh grant is not a GrantPayload; the Authenticator issues it
// internally from the cached refresh token.
type GrantPayload interface {
	AuthPayload() url.Values
}

// ClientCredentialsGrant authenticates a Thing with its own id and secret.
type ClientCredentialsGrant struct {
	ID     string
	Secret string
}

func (g ClientCredentialsGrant) AuthPayload() url.Values {
	return url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {g.ID},
		"client_secret": {g.Secret},
	}
}

// PasswordGrant authenticates on behalf of a user account.
type PasswordGrant struct {
	ID       string
	Secret   string
	Username string
	Password string
}

func (g PasswordGrant) AuthPayload() url.Values {
	return url.Values{
		"grant_type":    {"password"},
		"client_id":     {g.ID},
		"client_secret": {g.Secret},
		"username":      {g.Username},
		"password":      {g.Password},
	}
}

// TokenSource yields a currently valid token, refreshing or
// re-authenticating as needed. *Authenticator is the production
// implementation.
type TokenSource interface {
	ObtainToken(ctx context.Context) (Token, error)
}

// Authenticator manages the token lifecycle against the S3I identity
// provider. It caches the last issued Token and decides per call whether
// to return it, refresh it, or request a new one. Safe for concurrent
// use; concurrent callers share a single in-flight IdP request.
type Authenticator struct {
	grant      GrantPayload
	idpURL     string
	httpClient *http.Client
	ownsClient bool
	logger     *slog.Logger
	now        func() time.Time

	mu    sync.Mutex
	token *Token
}

// NewAuthenticator creates an Authenticator for the given grant.
// If httpClient is nil, a client with a 30-second timeout is created and
// owned by the Authenticator; an externally supplied client is never
// closed by it. An empty idpURL selects DefaultIdPURL; a nil logger
// selects slog.Default().
func NewAuthenticator(grant GrantPayload, httpClient *http.Client, idpURL string, logger *slog.Logger) *Authenticator {
	owns := false
	if httpClient == nil {
		httpClient = &http.Client{Timeout: httpClientTimeout}
		owns = true
	}

	if idpURL == "" {
		idpURL = DefaultIdPURL
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Authenticator{
		grant:      grant,
		idpURL:     idpURL,
		httpClient: httpClient,
		ownsClient: owns,
		logger:     logger,
		now:        time.Now,
	}
}

// ObtainToken returns a currently valid token. The cached token is
// returned as long as it has not expired; an expired token with a live
// refresh token is refreshed; otherwise a new token is requested with
// the configured grant. A failed refresh is surfaced as-is (no fallback
// to the primary grant), but the stale token is dropped so the next call
// re-authenticates from scratch.
func (a *Authenticator) ObtainToken(ctx context.Context) (Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()

	switch {
	case a.token != nil && !a.token.ExpiredAt(now):
		a.logger.Debug("token still valid")
		return *a.token, nil

	case a.token != nil && !a.token.RefreshExpiredAt(now):
		a.logger.Debug("token expired, refresh token still valid")

		form := url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {a.token.RefreshToken},
		}

		tok, err := a.requestToken(ctx, form, "could not refresh token from identity provider")
		if err != nil {
			a.token = nil
			return Token{}, err
		}

		a.token = &tok

		return tok, nil

	default:
		a.logger.Debug("token and refresh token expired, re-authenticating")

		tok, err := a.requestToken(ctx, a.grant.AuthPayload(), "could not obtain token from identity provider")
		if err != nil {
			return Token{}, err
		}

		a.token = &tok

		return tok, nil
	}
}

// tokenResponse is the subset of the IdP token response the client consumes.
type tokenResponse struct {
	TokenType        string `json:"token_type"`
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
}

// requestToken performs one form-encoded POST to the token endpoint and
// parses the response into a Token. failMsg is the human-readable prefix
// for authentication errors on this path.
func (a *Authenticator) requestToken(ctx context.Context, form url.Values, failMsg string) (Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.idpURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, &AuthenticationError{ProtocolError{Message: failMsg, Err: err}}
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Token{}, &AuthenticationError{ProtocolError{Message: failMsg, Err: err}}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Token{}, &AuthenticationError{ProtocolError{Message: failMsg, Err: err, StatusCode: resp.StatusCode}}
	}

	if resp.StatusCode >= 400 {
		if string(body) == invalidClientBody {
			return Token{}, &InvalidCredentialsError{AuthenticationError{ProtocolError{
				Message:    "invalid client credentials",
				StatusCode: resp.StatusCode,
				Response:   string(body),
			}}}
		}

		return Token{}, &AuthenticationError{ProtocolError{
			Message:    failMsg,
			StatusCode: resp.StatusCode,
			Response:   string(body),
		}}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Token{}, &AuthenticationError{ProtocolError{
			Message:  "decoding identity provider response",
			Err:      err,
			Response: string(body),
		}}
	}

	if tr.AccessToken == "" {
		return Token{}, &AuthenticationError{ProtocolError{
			Message:  "identity provider response contains no access token",
			Response: string(body),
		}}
	}

	now := a.now()

	return Token{
		AuthScheme:       tr.TokenType,
		Content:          tr.AccessToken,
		ExpiresAt:        now.Add(time.Duration(tr.ExpiresIn) * time.Second),
		RefreshToken:     tr.RefreshToken,
		RefreshExpiresAt: now.Add(time.Duration(tr.RefreshExpiresIn) * time.Second),
	}, nil
}

// Close releases the HTTP transport if the Authenticator owns it.
// Externally supplied clients are left untouched.
func (a *Authenticator) Close() {
	if a.ownsClient {
		a.httpClient.CloseIdleConnections()
	}
}
