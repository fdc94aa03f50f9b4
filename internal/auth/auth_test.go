package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewardcoins/coinledger/internal/domain"
)

const (
	testSecret    = "test-session-secret"
	testIdpSecret = "test-idp-secret"
	testIssuer    = "accounts.example.com"
	testAudience  = "reward-coins-app"
)

func providerToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestProviderDisabledFallsBackToDemoIdentity(t *testing.T) {
	p := NewProvider("", testIssuer, testAudience, nil)

	identity, err := p.SignIn("whatever")
	require.NoError(t, err)
	assert.Equal(t, DemoIdentity, identity)
	assert.Equal(t, "demo@rewardcoins.app", identity.Email)
}

func TestProviderVerifiesToken(t *testing.T) {
	p := NewProvider(testIdpSecret, testIssuer, testAudience, nil)
	token := providerToken(t, testIdpSecret, jwt.MapClaims{
		"iss":     testIssuer,
		"aud":     testAudience,
		"exp":     time.Now().Add(time.Hour).Unix(),
		"email":   "sarah@example.com",
		"name":    "Sarah",
		"picture": "https://example.com/sarah.png",
	})

	identity, err := p.SignIn(token)
	require.NoError(t, err)
	assert.Equal(t, "sarah@example.com", identity.Email)
	assert.Equal(t, "Sarah", identity.Name)
	assert.Equal(t, "https://example.com/sarah.png", identity.Picture)
}

func TestProviderRejectsBadSignature(t *testing.T) {
	p := NewProvider(testIdpSecret, testIssuer, testAudience, nil)
	token := providerToken(t, "wrong-secret", jwt.MapClaims{
		"iss":   testIssuer,
		"aud":   testAudience,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"email": "sarah@example.com",
	})

	_, err := p.SignIn(token)
	assert.ErrorIs(t, err, domain.ErrIdentityProvider)
}

func TestProviderRejectsMissingEmail(t *testing.T) {
	p := NewProvider(testIdpSecret, testIssuer, testAudience, nil)
	token := providerToken(t, testIdpSecret, jwt.MapClaims{
		"iss": testIssuer,
		"aud": testAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := p.SignIn(token)
	assert.ErrorIs(t, err, domain.ErrIdentityProvider)
}

func TestSessionRoundTrip(t *testing.T) {
	s := NewSessions(testSecret, time.Hour)

	token, issued, err := s.Issue(Identity{
		Email:   "sarah@example.com",
		Name:    "Sarah",
		Picture: "https://example.com/sarah.png",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, issued, parsed)
	assert.NotEmpty(t, parsed.ID)
}

func TestSessionUniquePerIssue(t *testing.T) {
	s := NewSessions(testSecret, time.Hour)

	_, first, err := s.Issue(DemoIdentity)
	require.NoError(t, err)
	_, second, err := s.Issue(DemoIdentity)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestSessionExpires(t *testing.T) {
	s := NewSessions(testSecret, time.Hour)
	token, _, err := s.Issue(DemoIdentity)
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionRejectsWrongSecret(t *testing.T) {
	s := NewSessions(testSecret, time.Hour)
	token, _, err := s.Issue(DemoIdentity)
	require.NoError(t, err)

	other := NewSessions("another-secret", time.Hour)
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestMiddlewareInjectsSession(t *testing.T) {
	s := NewSessions(testSecret, time.Hour)
	token, issued, err := s.Issue(DemoIdentity)
	require.NoError(t, err)

	var got Session
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = SessionFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	s.Middleware(nil)(next).ServeHTTP(rec, req)

	require.True(t, ok)
	assert.Equal(t, issued, got)
}

func TestMiddlewareRejectsMissingAndBadTokens(t *testing.T) {
	s := NewSessions(testSecret, time.Hour)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	})
	handler := s.Middleware(nil)(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
