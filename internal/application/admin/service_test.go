package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jerif/verification-api/internal/config"
	"github.com/jerif/verification-api/internal/domain"
	jwtinfra "github.com/jerif/verification-api/internal/infrastructure/jwt"
	"github.com/jerif/verification-api/internal/infrastructure/memory"
)

func newTestService(t *testing.T, cfg config.AdminConfig) (Service, *jwtinfra.Provider, domain.Repositories) {
	t.Helper()
	tokens, err := jwtinfra.NewProvider([]byte("test-secret"), time.Hour)
	require.NoError(t, err)
	repos := memory.NewStore().Repositories()
	svc, err := NewService(cfg, tokens, repos.Verifications)
	require.NoError(t, err)
	return svc, tokens, repos
}

func TestLogin_PlainPassword(t *testing.T) {
	svc, tokens, _ := newTestService(t, config.AdminConfig{User: "admin", Pass: "admin123"})

	res, err := svc.Login(context.Background(), LoginRequest{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	claims, err := tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestLogin_Rejects(t *testing.T) {
	svc, _, _ := newTestService(t, config.AdminConfig{User: "admin", Pass: "admin123"})
	for _, req := range []LoginRequest{
		{Username: "admin", Password: "wrong"},
		{Username: "root", Password: "admin123"},
	} {
		_, err := svc.Login(context.Background(), req)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	}
}

func TestLogin_PassHashWins(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	svc, _, _ := newTestService(t, config.AdminConfig{User: "admin", Pass: "admin123", PassHash: string(hash)})

	_, err = svc.Login(context.Background(), LoginRequest{Username: "admin", Password: "hashed-pass"})
	assert.NoError(t, err)
	_, err = svc.Login(context.Background(), LoginRequest{Username: "admin", Password: "admin123"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestNewService_BadHash(t *testing.T) {
	tokens, _ := jwtinfra.NewProvider([]byte("x"), time.Hour)
	_, err := NewService(config.AdminConfig{User: "admin", PassHash: "plain"}, tokens, nil)
	assert.Error(t, err)
}

func TestListVerifications(t *testing.T) {
	svc, _, repos := newTestService(t, config.AdminConfig{User: "admin", Pass: "p"})
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repos.Verifications.Create(ctx, &domain.Verification{ID: "1", VerificationID: "abc", ResultStatus: domain.ResultFailed, CreatedAt: base}))
	require.NoError(t, repos.Verifications.Create(ctx, &domain.Verification{ID: "2", VerificationID: "xyz", ResultStatus: domain.ResultVerified, CreatedAt: base.Add(time.Minute)}))

	all, err := svc.ListVerifications(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2", all[0].ID)

	failed, err := svc.ListVerifications(ctx, "FAILED", "")
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "1", failed[0].ID)

	found, err := svc.ListVerifications(ctx, "", "xy")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "2", found[0].ID)
}

func TestListVerifications_StatusIsExactMatch(t *testing.T) {
	svc, _, repos := newTestService(t, config.AdminConfig{User: "admin", Pass: "p"})
	ctx := context.Background()
	require.NoError(t, repos.Verifications.Create(ctx, &domain.Verification{
		ID: "1", VerificationID: "abc", ResultStatus: domain.ResultFailed, CreatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}))

	for _, status := range []string{"failed", " FAILED", "MANUAL_REVIEW"} {
		got, err := svc.ListVerifications(ctx, status, "")
		require.NoError(t, err, status)
		assert.Empty(t, got, status)
	}
}
