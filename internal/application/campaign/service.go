package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jerif/verification-api/internal/domain"
	"github.com/jerif/verification-api/internal/pkg/validate"
)

type Service interface {
	Create(ctx context.Context, req domain.CreateCampaignRequest) (*domain.Campaign, error)
	Get(ctx context.Context, id string) (*domain.Campaign, error)
	List(ctx context.Context) ([]domain.Campaign, error)
	Seed(ctx context.Context) error
}

type service struct {
	campaigns domain.CampaignRepository
	sessions  domain.SessionRepository
	now       func() time.Time
}

func NewService(campaigns domain.CampaignRepository, sessions domain.SessionRepository) Service {
	return &service{campaigns: campaigns, sessions: sessions, now: time.Now}
}

func (s *service) Create(ctx context.Context, req domain.CreateCampaignRequest) (*domain.Campaign, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	if err := checkFieldNames(req.FormSchema); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	c := &domain.Campaign{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
		FormSchema:  req.FormSchema,
		ProgramInfo: req.ProgramInfo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.campaigns.Create(ctx, c); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "campaign created", "campaign_id", c.ID)
	return c, nil
}

func checkFieldNames(schema domain.FormSchema) error {
	seen := make(map[string]struct{}, len(schema.Fields))
	for _, f := range schema.Fields {
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("duplicate form field %q: %w", f.Name, domain.ErrBadRequest)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

func (s *service) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.campaigns.Get(ctx, id)
}

func (s *service) List(ctx context.Context) ([]domain.Campaign, error) {
	return s.campaigns.List(ctx)
}

// Seed creates the default campaign and the demo session when they are missing.
func (s *service) Seed(ctx context.Context) error {
	now := s.now().UTC()
	c := DefaultCampaign(now)
	err := s.campaigns.Create(ctx, c)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "created default campaign", "campaign_id", c.ID)
	case errors.Is(err, domain.ErrConflict):
	default:
		return fmt.Errorf("seed campaign: %w", err)
	}

	err = s.sessions.Create(ctx, &domain.Session{
		VerificationID: DemoVerificationID,
		CampaignID:     c.ID,
		Status:         domain.SessionActive,
		ExpiresAt:      now.Add(7 * 24 * time.Hour),
		CreatedAt:      now,
	})
	switch {
	case err == nil:
		slog.InfoContext(ctx, "created demo session", "verification_id", DemoVerificationID)
	case errors.Is(err, domain.ErrConflict):
	default:
		return fmt.Errorf("seed session: %w", err)
	}
	return nil
}
