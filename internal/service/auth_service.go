package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/highscore-service/internal/auth"
	"github.com/spec-kit/highscore-service/internal/domain"
	"github.com/spec-kit/highscore-service/internal/repository"
	apperrors "github.com/spec-kit/highscore-service/pkg/util"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager, bcryptCost int) *AuthService {
	return &AuthService{users: users, tokens: tokens, bcryptCost: bcryptCost}
}

// Register creates a new player account. The plaintext password is hashed
// and discarded; neither it nor the hash ever appears in a response or log.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewDuplicateUsername(username)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates a player and issues a token bound to the caller's
// correlation id. Unknown usernames and wrong passwords produce the same
// error so the response never reveals which usernames exist.
func (s *AuthService) Login(ctx context.Context, username, password, correlationID string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NewInvalidCredentials()
		}
		return "", err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return "", apperrors.NewInvalidCredentials()
	}

	token, _, err := s.tokens.Issue(user.ID, user.Username, correlationID)
	if err != nil {
		return "", err
	}
	return token, nil
}
