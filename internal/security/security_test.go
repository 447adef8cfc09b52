package security

import (
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw123")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123", hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, BcryptCost, cost)

	// Same password produces different hashes due to salt
	hash2, err := HashPassword("pw123")
	require.NoError(t, err)
	assert.NotEqual(t, hash, hash2)

	assert.True(t, CheckPassword("pw123", hash))
	assert.False(t, CheckPassword("pw124", hash))
	assert.False(t, CheckPassword("pw123", "not-a-hash"))
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", 7*24*time.Hour)

	token, err := m.Issue("fam-1", "a@x.com")
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "fam-1", claims.FamilyID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "fam-1", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestTokenRejections(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	token, err := m.Issue("fam-1", "a@x.com")
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := m.Verify("  ")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("other", time.Hour)
		_, err := other.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := m.Verify(token + "x")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		late := NewTokenManager("secret", time.Hour)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			FamilyID: "fam-1",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Verify(s)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenFromHeader(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{header: "Bearer abc", want: "abc"},
		{header: "bearer abc", want: "abc"},
		{header: "Basic abc", wantErr: true},
		{header: "Bearer", wantErr: true},
		{header: "", wantErr: true},
		{header: "Bearer a b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := TokenFromHeader(tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3)
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.2.3.4"), "request %d", i)
	}
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))

	var disabled *RateLimiter = NewRateLimiter(0)
	assert.Nil(t, disabled)
	assert.True(t, disabled.Allow("anyone"))
}

func TestClientIP(t *testing.T) {
	_, proxies, err := net.ParseCIDR("10.0.0.0/8")
	require.NoError(t, err)
	trusted := []*net.IPNet{proxies}

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", ClientIP(r, nil))
	assert.Equal(t, "10.0.0.1", ClientIP(r, trusted))

	r.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.1", ClientIP(r, nil), "headers ignored without trusted proxies")
	assert.Equal(t, "10.0.0.2", ClientIP(r, trusted))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.3")
	assert.Equal(t, "10.0.0.1", ClientIP(r, nil))
	assert.Equal(t, "203.0.113.7", ClientIP(r, trusted))

	r.RemoteAddr = "192.0.2.9:5555"
	assert.Equal(t, "192.0.2.9", ClientIP(r, trusted), "peer outside the trusted range")
}
