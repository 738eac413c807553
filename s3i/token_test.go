package s3i

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToken_ExpiryBookkeeping(t *testing.T) {
	issued := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	tok := Token{
		AuthScheme:       "Bearer",
		Content:          "abc",
		ExpiresAt:        issued.Add(60 * time.Second),
		RefreshToken:     "def",
		RefreshExpiresAt: issued.Add(1800 * time.Second),
	}

	assert.False(t, tok.ExpiredAt(issued))
	assert.False(t, tok.ExpiredAt(issued.Add(59*time.Second)))
	assert.True(t, tok.ExpiredAt(issued.Add(60*time.Second)), "expiry instant counts as expired")
	assert.True(t, tok.ExpiredAt(issued.Add(time.Hour)))

	assert.False(t, tok.RefreshExpiredAt(issued.Add(60*time.Second)))
	assert.True(t, tok.RefreshExpiredAt(issued.Add(1800*time.Second)))
}

func TestToken_AuthorizationValue(t *testing.T) {
	tok := Token{AuthScheme: "Bearer", Content: "eyJhb.xyz"}

	assert.Equal(t, "Bearer eyJhb.xyz", tok.AuthorizationValue())
}
