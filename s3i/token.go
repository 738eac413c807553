package s3i

import "time"

// Token is an immutable credential snapshot issued by the S3I identity
// provider. A refresh never mutates a Token; the Authenticator replaces
// its cached Token with a new one.
type Token struct {
	AuthScheme       string
	Content          string
	ExpiresAt        time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// ExpiredAt reports whether the access token has expired as of now.
func (t Token) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// RefreshExpiredAt reports whether the refresh token has expired as of now.
func (t Token) RefreshExpiredAt(now time.Time) bool {
	return !now.Before(t.RefreshExpiresAt)
}

// Expired reports whether the access token has expired.
func (t Token) Expired() bool { return t.ExpiredAt(time.Now()) }

// RefreshExpired reports whether the refresh token has expired.
func (t Token) RefreshExpired() bool { return t.RefreshExpiredAt(time.Now()) }

// AuthorizationValue returns the value for the Authorization header,
// e.g. "Bearer eyJhb...".
func (t Token) AuthorizationValue() string {
	return t.AuthScheme + " " + t.Content
}
