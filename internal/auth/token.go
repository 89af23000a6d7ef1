package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenManager issues and decodes the signed session tokens handed out at
// login. Tokens are self-contained: there is no server-side session record,
// validity is decided entirely by signature and expiry at decode time.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a manager with the given validity window in days.
func NewTokenManager(secret string, ttlDays int) *TokenManager {
	if ttlDays <= 0 {
		ttlDays = 30
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlDays) * 24 * time.Hour}
}

// Claims describes the JWT payload. CorrelationID holds the caller-chosen
// client request id the token is bound to for its whole lifetime.
type Claims struct {
	UserID        string `json:"id"`
	Username      string `json:"username"`
	CorrelationID string `json:"clientRequestId"`
	jwt.RegisteredClaims
}

// Issue builds and signs a token for the subject, embedding the correlation id.
func (tm *TokenManager) Issue(userID, username, correlationID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		UserID:        userID,
		Username:      username,
		CorrelationID: correlationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Decode parses and verifies a token string. It returns nil when the string
// is malformed, carries a wrong signature or algorithm, or has expired;
// callers branch on the nil sentinel rather than an error. Decode is pure
// and never touches the user store.
func (tm *TokenManager) Decode(tokenStr string) *Claims {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil
	}
	return claims
}
