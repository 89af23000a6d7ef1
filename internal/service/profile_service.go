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

// ProfileService resolves a token's subject against the user store to read
// or update the player's high score. The cache is optional and best-effort;
// cache failures fall through to the store.
type ProfileService struct {
	users  repository.UserRepository
	cache  repository.ProfileCache
	tokens *auth.TokenManager
}

// NewProfileService builds the service. cache may be nil.
func NewProfileService(users repository.UserRepository, cache repository.ProfileCache, tokens *auth.TokenManager) *ProfileService {
	return &ProfileService{users: users, cache: cache, tokens: tokens}
}

// GetProfile decodes the token and returns the subject's profile. A valid
// token whose user has since been deleted yields not-found; with no
// revocation mechanism that case is expected, not a fault.
func (s *ProfileService) GetProfile(ctx context.Context, tokenStr string) (*domain.User, error) {
	claims := s.tokens.Decode(tokenStr)
	if claims == nil {
		return nil, apperrors.NewInvalidToken()
	}

	if s.cache != nil {
		if cached, err := s.cache.GetProfile(ctx, claims.UserID); err == nil && cached != nil {
			return cached, nil
		}
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}

	// Repopulate only if the entry is still absent: this read may have
	// raced a score update, and its snapshot must never replace the value
	// the update installed.
	if s.cache != nil {
		_ = s.cache.SetProfileIfAbsent(ctx, user)
	}
	return user, nil
}

// UpdateHighScore overwrites the subject's score with the caller-supplied
// value. Scores are not range-checked and may decrease; concurrent updates
// for the same user are last-writer-wins.
func (s *ProfileService) UpdateHighScore(ctx context.Context, tokenStr string, score int64) (int64, error) {
	claims := s.tokens.Decode(tokenStr)
	if claims == nil {
		return 0, apperrors.NewInvalidToken()
	}

	// Drop the cache entry before the write; reads after UpdateHighScore
	// must see the new score.
	if s.cache != nil {
		_ = s.cache.DeleteProfile(ctx, claims.UserID)
	}

	if err := s.users.UpdateHighScore(ctx, claims.UserID, score); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.NewNotFound("user", nil)
		}
		return 0, err
	}

	// Install the committed value. Readers only fill absent entries, so a
	// stale snapshot from a read that overlapped this update cannot
	// displace it.
	if s.cache != nil {
		_ = s.cache.SetProfile(ctx, &domain.User{
			ID:        claims.UserID,
			Username:  claims.Username,
			HighScore: score,
		})
	}
	return score, nil
}
