package domain

import "time"

type SessionStatus string

const (
	SessionActive SessionStatus = "ACTIVE"
	SessionUsed   SessionStatus = "USED"
	// SessionExpired is never stored; it is derived from ExpiresAt at read time.
	SessionExpired SessionStatus = "EXPIRED"
)

// Session is a single-use verification link scoped to one campaign.
// PK: verification_id.
type Session struct {
	VerificationID string        `json:"verification_id" dynamodbav:"verification_id"`
	CampaignID     string        `json:"campaign_id" dynamodbav:"campaign_id"`
	Status         SessionStatus `json:"status" dynamodbav:"status"`
	ExpiresAt      time.Time     `json:"expires_at" dynamodbav:"expires_at"`
	UsedAt         *time.Time    `json:"used_at,omitempty" dynamodbav:"used_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at" dynamodbav:"created_at"`
	Campaign       *Campaign     `json:"-" dynamodbav:"-"`
}

// Expired reports whether the link is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

// EffectiveStatus returns the status a reader should see at now: EXPIRED once
// ExpiresAt has passed, the stored status otherwise.
func (s *Session) EffectiveStatus(now time.Time) SessionStatus {
	if s.Expired(now) {
		return SessionExpired
	}
	return s.Status
}
