package domain

import "time"

type AuditAction string

const (
	AuditSessionAccessed     AuditAction = "SESSION_ACCESSED"
	AuditRateLimited         AuditAction = "RATE_LIMITED"
	AuditVerificationAttempt AuditAction = "VERIFICATION_ATTEMPT"
	AuditVerificationResult  AuditAction = "VERIFICATION_RESULT"
)

// AuditLog is an append-only event keyed loosely by verification ID.
type AuditLog struct {
	ID             string         `json:"id" dynamodbav:"id"`
	Action         AuditAction    `json:"action" dynamodbav:"action"`
	VerificationID string         `json:"verification_id,omitempty" dynamodbav:"verification_id,omitempty"`
	IP             string         `json:"ip,omitempty" dynamodbav:"ip"`
	UserAgent      string         `json:"user_agent,omitempty" dynamodbav:"user_agent"`
	Details        map[string]any `json:"details,omitempty" dynamodbav:"details,omitempty"`
	CreatedAt      time.Time      `json:"created_at" dynamodbav:"created_at"`
}

// Client identifies the requester for rate limiting and auditing.
type Client struct {
	IP        string
	UserAgent string
}
