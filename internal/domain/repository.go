package domain

import (
	"context"
	"time"
)

// CampaignRepository stores campaigns. Campaigns are immutable once created.
type CampaignRepository interface {
	Create(ctx context.Context, c *Campaign) error
	Get(ctx context.Context, id string) (*Campaign, error)
	// List returns all campaigns, newest first.
	List(ctx context.Context) ([]Campaign, error)
}

// SessionRepository stores verification links.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	// Get returns the session joined with its campaign, or ErrNotFound.
	Get(ctx context.Context, verificationID string) (*Session, error)
	// UpdateStatus moves the session to status. Repeating a transition to the
	// status the session already holds is a no-op.
	UpdateStatus(ctx context.Context, verificationID string, status SessionStatus, at time.Time) error
}

// VerificationRepository stores verification outcomes. Records are never updated.
type VerificationRepository interface {
	// Create inserts v and returns ErrConflict if v.ID already exists.
	Create(ctx context.Context, v *Verification) error
	// List returns matching records newest first with CampaignTitle filled.
	List(ctx context.Context, f VerificationFilter) ([]Verification, error)
}

// AuditRepository appends audit events.
type AuditRepository interface {
	Create(ctx context.Context, a *AuditLog) error
}

// Repositories bundles one storage backend.
type Repositories struct {
	Campaigns     CampaignRepository
	Sessions      SessionRepository
	Verifications VerificationRepository
	Audit         AuditRepository
}
