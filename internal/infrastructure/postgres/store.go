package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jerif/verification-api/internal/domain"
)

type CampaignRepo struct{ db *sqlx.DB }

const campaignColumns = `id, title, description, form_schema, program_info, created_at, updated_at`

func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	row, err := toCampaignRow(c)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO campaigns (`+campaignColumns+`)
		VALUES (:id, :title, :description, :form_schema, :program_info, :created_at, :updated_at)`, row)
	if pqCode(err) == codeUniqueViolation {
		return fmt.Errorf("campaign %s exists: %w", c.ID, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepo) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	var row campaignRow
	err := r.db.GetContext(ctx, &row, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("campaign not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	c, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepo) List(ctx context.Context) ([]domain.Campaign, error) {
	var rows []campaignRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	out := make([]domain.Campaign, 0, len(rows))
	for _, row := range rows {
		c, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type SessionRepo struct{ db *sqlx.DB }

func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_sessions (verification_id, campaign_id, status, expires_at, used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.VerificationID, s.CampaignID, string(s.Status), s.ExpiresAt.UTC(), s.UsedAt, s.CreatedAt.UTC())
	switch pqCode(err) {
	case codeUniqueViolation:
		return fmt.Errorf("session %s exists: %w", s.VerificationID, domain.ErrConflict)
	case codeForeignKeyViolation:
		return fmt.Errorf("campaign %s: %w", s.CampaignID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Get loads the session joined with its campaign.
func (r *SessionRepo) Get(ctx context.Context, verificationID string) (*domain.Session, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row, `
		SELECT s.verification_id, s.campaign_id, s.status, s.expires_at, s.used_at, s.created_at,
		       c.id AS "c.id", c.title AS "c.title", c.description AS "c.description",
		       c.form_schema AS "c.form_schema", c.program_info AS "c.program_info",
		       c.created_at AS "c.created_at", c.updated_at AS "c.updated_at"
		FROM verification_sessions s
		JOIN campaigns c ON c.id = s.campaign_id
		WHERE s.verification_id = $1`, verificationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	s := row.toDomain()
	c, err := row.Campaign.toDomain()
	if err != nil {
		return nil, err
	}
	s.Campaign = &c
	return &s, nil
}

// UpdateStatus only writes when the status changes, so the USED transition
// happens at most once even under concurrent calls.
func (r *SessionRepo) UpdateStatus(ctx context.Context, verificationID string, status domain.SessionStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE verification_sessions
		SET status = $2,
		    used_at = CASE WHEN $2 = 'USED' THEN $3 ELSE used_at END
		WHERE verification_id = $1 AND status <> $2`,
		verificationID, string(status), at.UTC())
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM verification_sessions WHERE verification_id = $1)`, verificationID); err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if !exists {
		return fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	return nil
}

type VerificationRepo struct{ db *sqlx.DB }

func (r *VerificationRepo) Create(ctx context.Context, v *domain.Verification) error {
	row, err := toVerificationRow(v)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO verification_results (id, verification_id, campaign_id, result_status, reason_code,
			reason_message, reference_id, source, form_data, raw_provider_response, created_at)
		VALUES (:id, :verification_id, :campaign_id, :result_status, :reason_code,
			:reason_message, :reference_id, :source, :form_data, :raw_provider_response, :created_at)`, row)
	if pqCode(err) == codeUniqueViolation {
		return fmt.Errorf("verification %s exists: %w", v.ID, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert verification: %w", err)
	}
	return nil
}

func (r *VerificationRepo) List(ctx context.Context, f domain.VerificationFilter) ([]domain.Verification, error) {
	search := ""
	if f.Search != "" {
		search = containsPattern(f.Search)
	}
	var rows []verificationRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT v.id, v.verification_id, v.campaign_id, v.result_status, v.reason_code, v.reason_message,
		       v.reference_id, v.source, v.form_data, v.raw_provider_response, v.created_at,
		       c.title AS campaign_title
		FROM verification_results v
		LEFT JOIN campaigns c ON c.id = v.campaign_id
		WHERE ($1 = '' OR v.result_status = $1)
		  AND ($2 = '' OR v.verification_id LIKE $2 ESCAPE '\')
		ORDER BY v.created_at DESC, v.id DESC`, string(f.Status), search)
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	out := make([]domain.Verification, 0, len(rows))
	for _, row := range rows {
		v, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

type AuditRepo struct{ db *sqlx.DB }

func (r *AuditRepo) Create(ctx context.Context, a *domain.AuditLog) error {
	details, err := nullJSON(a.Details, a.Details == nil)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	var verificationID *string
	if a.VerificationID != "" {
		verificationID = &a.VerificationID
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, action, verification_id, ip, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, string(a.Action), verificationID, a.IP, a.UserAgent, details, a.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
