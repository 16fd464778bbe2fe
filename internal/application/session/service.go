package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jerif/verification-api/internal/domain"
	"github.com/jerif/verification-api/internal/pkg/id"
)

// View is the public payload for a verification link: the session joined with
// the campaign fields the form needs.
type View struct {
	VerificationID      string               `json:"verification_id"`
	CampaignID          string               `json:"campaign_id"`
	Status              domain.SessionStatus `json:"status"`
	ExpiresAt           time.Time            `json:"expires_at"`
	UsedAt              *time.Time           `json:"used_at"`
	CreatedAt           time.Time            `json:"created_at"`
	CampaignTitle       string               `json:"campaign_title"`
	CampaignDescription string               `json:"campaign_description"`
	FormSchema          domain.FormSchema    `json:"form_schema"`
	ProgramInfo         *domain.ProgramInfo  `json:"program_info"`
}

// Link is a freshly issued verification link.
type Link struct {
	Link           string    `json:"link"`
	VerificationID string    `json:"verificationId"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

type GenerateLinkRequest struct {
	CampaignID string `json:"campaignId" validate:"required"`
}

type Service interface {
	Lookup(ctx context.Context, campaignID, verificationID string, client domain.Client) (*View, error)
	GenerateLink(ctx context.Context, campaignID string) (*Link, error)
}

type Deps struct {
	Sessions  domain.SessionRepository
	Campaigns domain.CampaignRepository
	Audit     domain.AuditRepository
	BaseURL   string
	LinkTTL   time.Duration
	Now       func() time.Time
}

type service struct {
	sessions  domain.SessionRepository
	campaigns domain.CampaignRepository
	audit     domain.AuditRepository
	baseURL   string
	linkTTL   time.Duration
	now       func() time.Time
}

func NewService(d Deps) Service {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		sessions:  d.Sessions,
		campaigns: d.Campaigns,
		audit:     d.Audit,
		baseURL:   strings.TrimRight(d.BaseURL, "/"),
		linkTTL:   d.LinkTTL,
		now:       now,
	}
}

func (s *service) Lookup(ctx context.Context, campaignID, verificationID string, client domain.Client) (*View, error) {
	if campaignID == "" || verificationID == "" {
		return nil, fmt.Errorf("missing campaignId or verificationId: %w", domain.ErrBadRequest)
	}
	sess, err := s.sessions.Get(ctx, verificationID)
	if err != nil {
		return nil, err
	}
	if sess.CampaignID != campaignID {
		return nil, domain.ErrInvalidLink
	}

	now := s.now()
	v := newView(sess, now)
	if v.Status == domain.SessionExpired {
		return v, nil
	}

	err = s.audit.Create(ctx, &domain.AuditLog{
		ID:             id.New(),
		Action:         domain.AuditSessionAccessed,
		VerificationID: verificationID,
		IP:             client.IP,
		UserAgent:      client.UserAgent,
		CreatedAt:      now.UTC(),
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to write audit log", "action", domain.AuditSessionAccessed, "verification_id", verificationID, "err", err)
	}
	return v, nil
}

func newView(sess *domain.Session, now time.Time) *View {
	v := &View{
		VerificationID: sess.VerificationID,
		CampaignID:     sess.CampaignID,
		Status:         sess.EffectiveStatus(now),
		ExpiresAt:      sess.ExpiresAt,
		UsedAt:         sess.UsedAt,
		CreatedAt:      sess.CreatedAt,
	}
	if c := sess.Campaign; c != nil {
		v.CampaignTitle = c.Title
		v.CampaignDescription = c.Description
		v.FormSchema = c.FormSchema
		v.ProgramInfo = c.ProgramInfo
	}
	return v
}

// GenerateLink issues a new ACTIVE session for campaignID.
func (s *service) GenerateLink(ctx context.Context, campaignID string) (*Link, error) {
	if campaignID == "" {
		return nil, fmt.Errorf("campaignId is required: %w", domain.ErrBadRequest)
	}
	if _, err := s.campaigns.Get(ctx, campaignID); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := &domain.Session{
		VerificationID: id.NewLinkID(),
		CampaignID:     campaignID,
		Status:         domain.SessionActive,
		ExpiresAt:      now.Add(s.linkTTL),
		CreatedAt:      now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	slog.InfoContext(ctx, "verification link generated", "campaign_id", campaignID, "verification_id", sess.VerificationID)
	return &Link{
		Link:           s.linkFor(campaignID, sess.VerificationID),
		VerificationID: sess.VerificationID,
		ExpiresAt:      sess.ExpiresAt,
	}, nil
}

// linkFor renders the applicant-facing URL of a session.
func (s *service) linkFor(campaignID, verificationID string) string {
	return fmt.Sprintf("%s/verify/%s?verificationId=%s",
		s.baseURL, url.PathEscape(campaignID), url.QueryEscape(verificationID))
}
