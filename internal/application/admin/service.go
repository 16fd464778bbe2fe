package admin

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jerif/verification-api/internal/config"
	"github.com/jerif/verification-api/internal/domain"
	jwtinfra "github.com/jerif/verification-api/internal/infrastructure/jwt"
)

// RoleAdmin is the only role admin tokens carry.
const RoleAdmin = "admin"

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TokenSigner is satisfied by *jwtinfra.Provider.
type TokenSigner interface {
	Sign(subject, role string) (string, time.Time, error)
	Verify(token string) (*jwtinfra.Claims, error)
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	ListVerifications(ctx context.Context, status, search string) ([]domain.Verification, error)
}

type service struct {
	user          string
	passHash      []byte
	tokens        TokenSigner
	verifications domain.VerificationRepository
}

// NewService prefers cfg.PassHash; otherwise cfg.Pass is hashed once here.
func NewService(cfg config.AdminConfig, tokens TokenSigner, verifications domain.VerificationRepository) (Service, error) {
	hash := []byte(cfg.PassHash)
	if len(hash) == 0 {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(cfg.Pass), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("ADMIN_PASS_HASH is not a bcrypt hash: %w", err)
	}
	return &service{
		user:          cfg.User,
		passHash:      hash,
		tokens:        tokens,
		verifications: verifications,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.user)) == 1
	passErr := bcrypt.CompareHashAndPassword(s.passHash, []byte(req.Password))
	if !userOK || passErr != nil {
		slog.WarnContext(ctx, "admin login rejected", "username", req.Username)
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	token, exp, err := s.tokens.Sign(s.user, RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("sign admin token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: exp}, nil
}

// ListVerifications returns records newest first. status is an exact match on
// the stored result status, so an unknown value yields an empty list; an empty
// status or search lists all.
func (s *service) ListVerifications(ctx context.Context, status, search string) ([]domain.Verification, error) {
	return s.verifications.List(ctx, domain.VerificationFilter{
		Status: domain.ResultStatus(status),
		Search: search,
	})
}
