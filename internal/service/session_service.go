package service

import (
	"github.com/spec-kit/highscore-service/internal/auth"
	apperrors "github.com/spec-kit/highscore-service/pkg/util"
)

// SessionService checks the binding between a caller-presented correlation
// id and the copy embedded in a signed token at issuance. It holds no
// mutable state: the token under verification always arrives as an explicit
// argument, so concurrent verifications for different users never interfere.
type SessionService struct {
	tokens *auth.TokenManager
}

// NewSessionService builds the service.
func NewSessionService(tokens *auth.TokenManager) *SessionService {
	return &SessionService{tokens: tokens}
}

// Verify decodes the supplied token and compares the presented correlation
// id against the embedded one with exact string equality. On success the
// same token string is returned; it is not reissued.
func (s *SessionService) Verify(correlationID, tokenStr string) (string, error) {
	claims := s.tokens.Decode(tokenStr)
	if claims == nil {
		return "", apperrors.NewTokenUnreadable()
	}
	if correlationID != claims.CorrelationID {
		return "", apperrors.NewCorrelationMismatch()
	}
	return tokenStr, nil
}
