package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionIssuer = "coinledger"

// Session is the authenticated caller of one API request. ID is unique per
// issued token and scopes the in-memory de-dup sets held by the services.
type Session struct {
	ID      string
	Email   string
	Name    string
	Picture string
}

var ErrInvalidSession = errors.New("invalid session token")

type sessionClaims struct {
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Sessions issues and parses the HMAC session tokens returned by sign-in.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue mints a session token for the identity. The token ID doubles as the
// session identifier.
func (s *Sessions) Issue(id Identity) (token string, session Session, err error) {
	now := s.now()
	session = Session{
		ID:      uuid.NewString(),
		Email:   id.Email,
		Name:    id.Name,
		Picture: id.Picture,
	}
	claims := sessionClaims{
		Name:    id.Name,
		Picture: id.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   id.Email,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("signing session token: %w", err)
	}
	return token, session, nil
}

// Parse validates a session token and returns the session it carries.
func (s *Sessions) Parse(token string) (Session, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return Session{}, fmt.Errorf("%w: missing subject or token id", ErrInvalidSession)
	}
	return Session{
		ID:      claims.ID,
		Email:   claims.Subject,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}
