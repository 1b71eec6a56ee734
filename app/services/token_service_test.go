package services

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "shorty-test"
	testAudience = "shorty-test-api"
	testSecret   = "test-secret-key-for-jwt-signing-32-chars"
)

func hmacTokenService(t testing.TB, accessTTL, refreshTTL time.Duration) TokenService {
	t.Helper()
	ts, err := NewTokenService(accessTTL, refreshTTL, testIssuer, testAudience, false, "", "", testSecret)
	require.NoError(t, err)
	return ts
}

func rsaKeyPEMs(t testing.TB) (string, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub})
	return string(privPEM), string(pubPEM)
}

func TestNewTokenService(t *testing.T) {
	privPEM, pubPEM := rsaKeyPEMs(t)

	tests := []struct {
		name      string
		useRSA    bool
		private   string
		public    string
		secret    string
		expectErr bool
	}{
		{name: "hmac secret", secret: testSecret},
		{name: "hmac without secret", expectErr: true},
		{name: "rsa key pair", useRSA: true, private: privPEM, public: pubPEM},
		{name: "rsa missing public key", useRSA: true, private: privPEM, expectErr: true},
		{name: "rsa keys swapped", useRSA: true, private: pubPEM, public: privPEM, expectErr: true},
		{name: "rsa garbage", useRSA: true, private: "nope", public: "nope", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := NewTokenService(time.Minute, time.Hour, testIssuer, testAudience, tt.useRSA, tt.private, tt.public, tt.secret)
			if tt.expectErr {
				assert.Error(t, err)
				assert.Nil(t, ts)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, ts)
		})
	}
}

func TestTokenService_RoundTrip(t *testing.T) {
	privPEM, pubPEM := rsaKeyPEMs(t)
	rsaService, err := NewTokenService(15*time.Minute, 7*24*time.Hour, testIssuer, testAudience, true, privPEM, pubPEM, "")
	require.NoError(t, err)

	services := map[string]TokenService{
		"hmac": hmacTokenService(t, 15*time.Minute, 7*24*time.Hour),
		"rsa":  rsaService,
	}

	for name, ts := range services {
		t.Run(name, func(t *testing.T) {
			before := time.Now().Add(-time.Second)
			access, refresh, err := ts.GenerateTokens(42)
			require.NoError(t, err)
			assert.NotEqual(t, access, refresh)

			claims, err := ts.ValidateToken(access)
			require.NoError(t, err)
			assert.Equal(t, uint(42), claims.UserID)
			assert.Equal(t, TokenTypeAccess, claims.TokenType)
			assert.Len(t, claims.TokenID, 32)
			assert.True(t, claims.IssuedAt.After(before))
			assert.WithinDuration(t, claims.IssuedAt.Add(15*time.Minute), claims.ExpiresAt, time.Second)

			claims, err = ts.ValidateToken(refresh)
			require.NoError(t, err)
			assert.Equal(t, TokenTypeRefresh, claims.TokenType)
			assert.WithinDuration(t, claims.IssuedAt.Add(7*24*time.Hour), claims.ExpiresAt, time.Second)
		})
	}
}

func TestValidateToken_Rejections(t *testing.T) {
	ts := hmacTokenService(t, time.Minute, time.Hour)
	access, _, err := ts.GenerateTokens(7)
	require.NoError(t, err)

	sign := func(claims jwt.MapClaims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	valid := func() jwt.MapClaims {
		now := time.Now()
		return jwt.MapClaims{
			"user_id":    7,
			"token_type": TokenTypeAccess,
			"jti":        "abc",
			"iat":        now.Unix(),
			"exp":        now.Add(time.Minute).Unix(),
			"iss":        testIssuer,
			"aud":        testAudience,
		}
	}
	without := func(key string) jwt.MapClaims {
		c := valid()
		delete(c, key)
		return c
	}
	with := func(key string, value any) jwt.MapClaims {
		c := valid()
		c[key] = value
		return c
	}

	otherAudience, err := NewTokenService(time.Minute, time.Hour, testIssuer, "someone-else", false, "", "", testSecret)
	require.NoError(t, err)
	foreignAudience, _, err := otherAudience.GenerateTokens(7)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrTokenInvalid},
		{"garbage", "not.a.jwt", ErrTokenInvalid},
		{"tampered signature", access[:len(access)-4] + "AAAA", ErrTokenInvalid},
		{"other secret", sign(valid(), "another-secret-key-that-is-32-chars!"), ErrTokenInvalid},
		{"wrong issuer", sign(with("iss", "elsewhere"), testSecret), ErrTokenInvalid},
		{"wrong audience", foreignAudience, ErrTokenInvalid},
		{"expired", sign(with("exp", time.Now().Add(-time.Minute).Unix()), testSecret), ErrTokenExpired},
		{"missing user", sign(without("user_id"), testSecret), ErrTokenInvalid},
		{"zero user", sign(with("user_id", 0), testSecret), ErrTokenInvalid},
		{"missing type", sign(without("token_type"), testSecret), ErrTokenInvalid},
		{"missing jti", sign(without("jti"), testSecret), ErrTokenInvalid},
		{"missing iat", sign(without("iat"), testSecret), ErrTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ts.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, claims)
		})
	}

	t.Run("hand built token with every claim is accepted", func(t *testing.T) {
		claims, err := ts.ValidateToken(sign(valid(), testSecret))
		require.NoError(t, err)
		assert.Equal(t, uint(7), claims.UserID)
	})
}

func TestRefreshToken(t *testing.T) {
	ts := hmacTokenService(t, time.Minute, time.Hour)

	access, refresh, err := ts.GenerateTokens(5)
	require.NoError(t, err)

	t.Run("refresh token yields a fresh pair for the same user", func(t *testing.T) {
		newAccess, newRefresh, err := ts.RefreshToken(refresh)
		require.NoError(t, err)
		assert.NotEqual(t, access, newAccess)
		assert.NotEqual(t, refresh, newRefresh)

		claims, err := ts.ValidateToken(newAccess)
		require.NoError(t, err)
		assert.Equal(t, uint(5), claims.UserID)
		assert.Equal(t, TokenTypeAccess, claims.TokenType)
	})

	t.Run("access token is refused", func(t *testing.T) {
		_, _, err := ts.RefreshToken(access)
		assert.ErrorIs(t, err, ErrNotRefreshToken)
	})

	t.Run("expired refresh token is refused", func(t *testing.T) {
		shortLived := hmacTokenService(t, time.Minute, -time.Minute)
		_, stale, err := shortLived.GenerateTokens(5)
		require.NoError(t, err)

		_, _, err = ts.RefreshToken(stale)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("garbage is refused", func(t *testing.T) {
		_, _, err := ts.RefreshToken("garbage")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestGenerateTokens_UniqueIDsUnderConcurrency(t *testing.T) {
	ts := hmacTokenService(t, time.Minute, time.Hour)

	const n = 50
	ids := make(chan string, n*2)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			access, refresh, err := ts.GenerateTokens(userID)
			if !assert.NoError(t, err) {
				return
			}
			for _, token := range []string{access, refresh} {
				claims, err := ts.ValidateToken(token)
				if assert.NoError(t, err) {
					assert.Equal(t, userID, claims.UserID)
					ids <- claims.TokenID
				}
			}
		}(uint(i + 1))
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, n*2)
	for id := range ids {
		_, dup := seen[id]
		assert.False(t, dup, "token id %s issued twice", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n*2)
}

func BenchmarkGenerateTokens(b *testing.B) {
	ts := hmacTokenService(b, 15*time.Minute, 7*24*time.Hour)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := ts.GenerateTokens(1); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkValidateToken(b *testing.B) {
	ts := hmacTokenService(b, 15*time.Minute, 7*24*time.Hour)
	access, _, err := ts.GenerateTokens(1)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ts.ValidateToken(access); err != nil {
			b.Fatal(err)
		}
	}
}
