package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/jerif/verification-api/internal/domain"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

type campaignRow struct {
	ID          string             `db:"id"`
	Title       string             `db:"title"`
	Description string             `db:"description"`
	FormSchema  types.JSONText     `db:"form_schema"`
	ProgramInfo types.NullJSONText `db:"program_info"`
	CreatedAt   time.Time          `db:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at"`
}

func toCampaignRow(c *domain.Campaign) (campaignRow, error) {
	row := campaignRow{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
	}
	schema, err := json.Marshal(c.FormSchema)
	if err != nil {
		return row, fmt.Errorf("marshal form schema: %w", err)
	}
	row.FormSchema = schema
	if row.ProgramInfo, err = nullJSON(c.ProgramInfo, c.ProgramInfo == nil); err != nil {
		return row, fmt.Errorf("marshal program info: %w", err)
	}
	return row, nil
}

func (r campaignRow) toDomain() (domain.Campaign, error) {
	c := domain.Campaign{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if err := decode(r.FormSchema, &c.FormSchema); err != nil {
		return c, fmt.Errorf("decode form schema of %s: %w", r.ID, err)
	}
	if r.ProgramInfo.Valid {
		var p domain.ProgramInfo
		if err := decode(r.ProgramInfo.JSONText, &p); err != nil {
			return c, fmt.Errorf("decode program info of %s: %w", r.ID, err)
		}
		c.ProgramInfo = &p
	}
	return c, nil
}

type sessionRow struct {
	VerificationID string      `db:"verification_id"`
	CampaignID     string      `db:"campaign_id"`
	Status         string      `db:"status"`
	ExpiresAt      time.Time   `db:"expires_at"`
	UsedAt         pq.NullTime `db:"used_at"`
	CreatedAt      time.Time   `db:"created_at"`
	Campaign       campaignRow `db:"c"`
}

func (r sessionRow) toDomain() domain.Session {
	s := domain.Session{
		VerificationID: r.VerificationID,
		CampaignID:     r.CampaignID,
		Status:         domain.SessionStatus(r.Status),
		ExpiresAt:      r.ExpiresAt.UTC(),
		CreatedAt:      r.CreatedAt.UTC(),
	}
	if r.UsedAt.Valid {
		t := r.UsedAt.Time.UTC()
		s.UsedAt = &t
	}
	return s
}

type verificationRow struct {
	ID                  string             `db:"id"`
	VerificationID      string             `db:"verification_id"`
	CampaignID          string             `db:"campaign_id"`
	ResultStatus        string             `db:"result_status"`
	ReasonCode          string             `db:"reason_code"`
	ReasonMessage       string             `db:"reason_message"`
	ReferenceID         string             `db:"reference_id"`
	Source              string             `db:"source"`
	FormData            types.JSONText     `db:"form_data"`
	RawProviderResponse types.NullJSONText `db:"raw_provider_response"`
	CreatedAt           time.Time          `db:"created_at"`
	CampaignTitle       *string            `db:"campaign_title"`
}

func toVerificationRow(v *domain.Verification) (verificationRow, error) {
	row := verificationRow{
		ID:             v.ID,
		VerificationID: v.VerificationID,
		CampaignID:     v.CampaignID,
		ResultStatus:   string(v.ResultStatus),
		ReasonCode:     v.ReasonCode,
		ReasonMessage:  v.ReasonMessage,
		ReferenceID:    v.ReferenceID,
		Source:         string(v.Source),
		CreatedAt:      v.CreatedAt.UTC(),
	}
	form := v.FormData
	if form == nil {
		form = map[string]string{}
	}
	b, err := json.Marshal(form)
	if err != nil {
		return row, fmt.Errorf("marshal form data: %w", err)
	}
	row.FormData = b
	if row.RawProviderResponse, err = nullJSON(v.RawProviderResponse, v.RawProviderResponse == nil); err != nil {
		return row, fmt.Errorf("marshal provider response: %w", err)
	}
	return row, nil
}

func (r verificationRow) toDomain() (domain.Verification, error) {
	v := domain.Verification{
		ID:             r.ID,
		VerificationID: r.VerificationID,
		CampaignID:     r.CampaignID,
		ResultStatus:   domain.ResultStatus(r.ResultStatus),
		ReasonCode:     r.ReasonCode,
		ReasonMessage:  r.ReasonMessage,
		ReferenceID:    r.ReferenceID,
		Source:         domain.ResultSource(r.Source),
		CreatedAt:      r.CreatedAt.UTC(),
	}
	if r.CampaignTitle != nil {
		v.CampaignTitle = *r.CampaignTitle
	}
	if err := decode(r.FormData, &v.FormData); err != nil {
		return v, fmt.Errorf("decode form data of %s: %w", r.ID, err)
	}
	if r.RawProviderResponse.Valid {
		if err := decode(r.RawProviderResponse.JSONText, &v.RawProviderResponse); err != nil {
			return v, fmt.Errorf("decode provider response of %s: %w", r.ID, err)
		}
	}
	return v, nil
}

func nullJSON(v any, isNil bool) (types.NullJSONText, error) {
	if isNil {
		return types.NullJSONText{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return types.NullJSONText{}, err
	}
	return types.NullJSONText{JSONText: b, Valid: true}, nil
}

func decode(j types.JSONText, v any) error {
	if len(j) == 0 || string(j) == "null" {
		return nil
	}
	return json.Unmarshal(j, v)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s literally anywhere.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
