package campaign

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerif/verification-api/internal/domain"
	"github.com/jerif/verification-api/internal/infrastructure/memory"
	"github.com/jerif/verification-api/internal/pkg/validate"
)

func newTestService() (domain.Repositories, *service) {
	repos := memory.NewStore().Repositories()
	svc := NewService(repos.Campaigns, repos.Sessions).(*service)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return repos, svc
}

func validRequest() domain.CreateCampaignRequest {
	return domain.CreateCampaignRequest{
		ID:    "spring-2025",
		Title: "Spring",
		FormSchema: domain.FormSchema{Fields: []domain.FormField{
			{Name: "first_name", Type: domain.FieldText, Label: "First", Required: true},
			{Name: "branch", Type: domain.FieldSelect, Label: "Branch", Options: []domain.FieldOption{{Value: "Army", Label: "Army"}}},
		}},
	}
}

func TestCreate(t *testing.T) {
	_, svc := newTestService()
	c, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "spring-2025", c.ID)
	assert.False(t, c.CreatedAt.IsZero())

	_, err = svc.Create(context.Background(), validRequest())
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreate_Invalid(t *testing.T) {
	_, svc := newTestService()
	tests := []struct {
		name  string
		patch func(*domain.CreateCampaignRequest)
	}{
		{"missing id", func(r *domain.CreateCampaignRequest) { r.ID = "" }},
		{"no fields", func(r *domain.CreateCampaignRequest) { r.FormSchema.Fields = nil }},
		{"bad type", func(r *domain.CreateCampaignRequest) { r.FormSchema.Fields[0].Type = "number" }},
		{"select without options", func(r *domain.CreateCampaignRequest) { r.FormSchema.Fields[1].Options = nil }},
		{"duplicate name", func(r *domain.CreateCampaignRequest) { r.FormSchema.Fields[1].Name = "first_name" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.patch(&req)
			_, err := svc.Create(context.Background(), req)
			assert.ErrorIs(t, err, domain.ErrBadRequest)
		})
	}
}

func TestSeed_Idempotent(t *testing.T) {
	repos, svc := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Seed(ctx))
	require.NoError(t, svc.Seed(ctx))

	cs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, DefaultCampaignID, cs[0].ID)
	assert.Len(t, cs[0].FormSchema.Fields, 7)

	sess, err := repos.Sessions.Get(ctx, DemoVerificationID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, sess.Status)
	assert.Equal(t, svc.now().Add(7*24*time.Hour), sess.ExpiresAt)
}

func TestDefaultCampaign_IsValid(t *testing.T) {
	c := DefaultCampaign(time.Now())
	err := validate.Struct(domain.CreateCampaignRequest{
		ID: c.ID, Title: c.Title, FormSchema: c.FormSchema, ProgramInfo: c.ProgramInfo,
	})
	assert.NoError(t, err)
}
