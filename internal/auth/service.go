// backend/internal/auth/service.go
package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"lesson-system/internal/apierr"
	"lesson-system/internal/models"
	"lesson-system/pkg/logger"
)

var (
	ErrInvalidCredentials      = apierr.Authentication("Invalid identifier or password")
	ErrInvalidToken            = apierr.New(http.StatusBadRequest, "invalid_token", errors.New("Invalid refresh token"))
	ErrRevokedToken            = apierr.New(http.StatusUnauthorized, "revoked_token", errors.New("Refresh token revoked"))
	ErrExpiredToken            = apierr.New(http.StatusUnauthorized, "expired_token", errors.New("Refresh token expired"))
	ErrAlreadyUsed             = apierr.New(http.StatusConflict, "token_already_used", errors.New("Refresh token already used"))
	ErrInvalidOrAlreadyRevoked = apierr.New(http.StatusBadRequest, "invalid_or_revoked_token", errors.New("Invalid or already revoked token"))
	ErrUserExists              = apierr.Conflict("Username or email already taken")
)

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type Service struct {
	repo       *Repository
	issuer     *TokenIssuer
	refreshTTL time.Duration
	now        func() time.Time
	log        *logger.Logger
}

func NewService(repo *Repository, issuer *TokenIssuer, refreshTTL time.Duration, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		issuer:     issuer,
		refreshTTL: refreshTTL,
		now:        time.Now,
		log:        log.With("service", "auth"),
	}
}

func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{Username: username, Email: email, Password: string(hashed)}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, errDuplicateUser) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	s.log.Info("user registered", "user_id", user.ID)
	return user, nil
}

func (s *Service) Login(ctx context.Context, identifier, password string) (*TokenPair, error) {
	user, err := s.repo.FindUserByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, s.repo, user.ID)
	if err != nil {
		return nil, err
	}
	s.log.Info("user logged in", "user_id", user.ID)
	return pair, nil
}

// Refresh consumes a refresh token and returns its successor. Consuming the
// old token and storing the new one commit together or not at all.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}
	hash := HashToken(refreshToken)

	var pair *TokenPair
	err := s.repo.Transaction(ctx, func(tx *Repository) error {
		stored, err := tx.FindRefreshToken(ctx, hash)
		if err != nil {
			return err
		}
		if stored == nil {
			return ErrInvalidToken
		}
		if stored.IsRevoked {
			return ErrRevokedToken
		}
		if !s.now().Before(stored.ExpiresAt) {
			return ErrExpiredToken
		}

		revoked, err := tx.RevokeRefreshToken(ctx, stored.ID)
		if err != nil {
			return err
		}
		if !revoked {
			return ErrAlreadyUsed
		}

		pair, err = s.issuePair(ctx, tx, stored.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes one session. Other refresh tokens of the user stay valid.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrInvalidOrAlreadyRevoked
	}
	revoked, err := s.repo.RevokeRefreshTokenByHash(ctx, HashToken(refreshToken))
	if err != nil {
		return err
	}
	if !revoked {
		return ErrInvalidOrAlreadyRevoked
	}
	return nil
}

func (s *Service) issuePair(ctx context.Context, repo *Repository, userID uint) (*TokenPair, error) {
	access, err := s.issuer.Issue(userID)
	if err != nil {
		return nil, err
	}
	refresh, err := GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	err = repo.CreateRefreshToken(ctx, &models.RefreshToken{
		UserID:    userID,
		TokenHash: HashToken(refresh),
		ExpiresAt: s.now().Add(s.refreshTTL),
	})
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
