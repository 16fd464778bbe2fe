// Package memory is a process-local storage backend for development and tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jerif/verification-api/internal/domain"
)

// Store keeps every table in maps guarded by one lock so joins see a consistent view.
type Store struct {
	mu            sync.RWMutex
	campaigns     map[string]domain.Campaign
	sessions      map[string]domain.Session
	verifications map[string]domain.Verification
	audit         []domain.AuditLog
}

func NewStore() *Store {
	return &Store{
		campaigns:     make(map[string]domain.Campaign),
		sessions:      make(map[string]domain.Session),
		verifications: make(map[string]domain.Verification),
	}
}

// Repositories exposes the store through the domain repository interfaces.
func (s *Store) Repositories() domain.Repositories {
	return domain.Repositories{
		Campaigns:     &CampaignRepo{s: s},
		Sessions:      &SessionRepo{s: s},
		Verifications: &VerificationRepo{s: s},
		Audit:         &AuditRepo{s: s},
	}
}

// AuditLogs returns a copy of all audit events in insertion order.
func (s *Store) AuditLogs() []domain.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AuditLog, len(s.audit))
	copy(out, s.audit)
	return out
}

type CampaignRepo struct{ s *Store }

func (r *CampaignRepo) Create(_ context.Context, c *domain.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.campaigns[c.ID]; ok {
		return fmt.Errorf("campaign %s exists: %w", c.ID, domain.ErrConflict)
	}
	r.s.campaigns[c.ID] = *c
	return nil
}

func (r *CampaignRepo) Get(_ context.Context, id string) (*domain.Campaign, error) {
	r.s.mu.RLock()
	c, ok := r.s.campaigns[id]
	r.s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("campaign not found: %w", domain.ErrNotFound)
	}
	return &c, nil
}

func (r *CampaignRepo) List(_ context.Context) ([]domain.Campaign, error) {
	r.s.mu.RLock()
	out := make([]domain.Campaign, 0, len(r.s.campaigns))
	for _, c := range r.s.campaigns {
		out = append(out, c)
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

type SessionRepo struct{ s *Store }

func (r *SessionRepo) Create(_ context.Context, sess *domain.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.campaigns[sess.CampaignID]; !ok {
		return fmt.Errorf("campaign %s: %w", sess.CampaignID, domain.ErrNotFound)
	}
	if _, ok := r.s.sessions[sess.VerificationID]; ok {
		return fmt.Errorf("session %s exists: %w", sess.VerificationID, domain.ErrConflict)
	}
	stored := *sess
	stored.Campaign = nil
	r.s.sessions[sess.VerificationID] = stored
	return nil
}

func (r *SessionRepo) Get(_ context.Context, verificationID string) (*domain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sess, ok := r.s.sessions[verificationID]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	c, ok := r.s.campaigns[sess.CampaignID]
	if !ok {
		return nil, fmt.Errorf("campaign %s of session %s: %w", sess.CampaignID, verificationID, domain.ErrNotFound)
	}
	sess.Campaign = &c
	return &sess, nil
}

func (r *SessionRepo) UpdateStatus(_ context.Context, verificationID string, status domain.SessionStatus, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[verificationID]
	if !ok {
		return fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	if sess.Status == status {
		return nil
	}
	sess.Status = status
	if status == domain.SessionUsed {
		sess.UsedAt = &at
	}
	r.s.sessions[verificationID] = sess
	return nil
}

type VerificationRepo struct{ s *Store }

func (r *VerificationRepo) Create(_ context.Context, v *domain.Verification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.verifications[v.ID]; ok {
		return fmt.Errorf("verification %s exists: %w", v.ID, domain.ErrConflict)
	}
	stored := *v
	stored.FormData = maps.Clone(v.FormData)
	stored.RawProviderResponse = maps.Clone(v.RawProviderResponse)
	stored.CampaignTitle = ""
	r.s.verifications[v.ID] = stored
	return nil
}

func (r *VerificationRepo) List(_ context.Context, f domain.VerificationFilter) ([]domain.Verification, error) {
	r.s.mu.RLock()
	out := make([]domain.Verification, 0)
	for _, v := range r.s.verifications {
		if f.Status != "" && v.ResultStatus != f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(v.VerificationID, f.Search) {
			continue
		}
		v.FormData = maps.Clone(v.FormData)
		v.RawProviderResponse = maps.Clone(v.RawProviderResponse)
		if c, ok := r.s.campaigns[v.CampaignID]; ok {
			v.CampaignTitle = c.Title
		}
		out = append(out, v)
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

type AuditRepo struct{ s *Store }

func (r *AuditRepo) Create(_ context.Context, a *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := *a
	stored.Details = maps.Clone(a.Details)
	r.s.audit = append(r.s.audit, stored)
	return nil
}
