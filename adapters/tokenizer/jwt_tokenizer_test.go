package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/walletlink/core"
)

func newTestTokenizer(t *testing.T) *JWTTokenizer {
	t.Helper()
	key, err := LoadSigningKey("")
	require.NoError(t, err)
	return NewJWTTokenizer(key)
}

func TestSessionRoundTrip(t *testing.T) {
	tk := newTestTokenizer(t)
	now := time.Now().Truncate(time.Second)

	session := &core.Session{
		ID:        "sid-1",
		UserID:    "user-1",
		Address:   "0xabc0000000000000000000000000000000000001",
		IssuedAt:  now,
		ExpiresAt: now.Add(15 * time.Minute),
	}

	token, err := tk.SessionToToken(session)
	require.NoError(t, err)

	got, err := tk.TokenToSession(token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, session.UserID, got.UserID)
	assert.Equal(t, session.Address, got.Address)
	assert.True(t, session.ExpiresAt.Equal(got.ExpiresAt))
}

func TestTokenToSession_Expired(t *testing.T) {
	tk := newTestTokenizer(t)
	past := time.Now().Add(-time.Hour)

	token, err := tk.SessionToToken(&core.Session{UserID: "u", IssuedAt: past, ExpiresAt: past.Add(time.Minute)})
	require.NoError(t, err)

	_, err = tk.TokenToSession(token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestTokenToSession_Rejects(t *testing.T) {
	tk := newTestTokenizer(t)
	other := newTestTokenizer(t)
	now := time.Now()

	foreign, err := other.SessionToToken(&core.Session{UserID: "u", IssuedAt: now, ExpiresAt: now.Add(time.Minute)})
	require.NoError(t, err)

	wrongAudience, err := jwt.NewWithClaims(jwt.SigningMethodES256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			Audience:  jwt.ClaimStrings{"session:access"},
		},
	}).SignedString(tk.signKey)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":        "not-a-token",
		"foreign key":    foreign,
		"wrong audience": wrongAudience,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tk.TokenToSession(token)
			assert.ErrorIs(t, err, core.ErrInvalidToken)
		})
	}
}

func TestLoadSigningKey_FromPEM(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "session.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), 0o600))

	loaded, err := LoadSigningKey(path)
	require.NoError(t, err)
	assert.True(t, key.Equal(loaded))

	_, err = LoadSigningKey(filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)
}
