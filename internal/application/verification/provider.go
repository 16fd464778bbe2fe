package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jerif/verification-api/internal/domain"
	"github.com/jerif/verification-api/internal/infrastructure/veterans"
)

// RecordSearcher is the part of the veteran-records client the provider needs.
type RecordSearcher interface {
	Search(ctx context.Context, q veterans.SearchQuery) ([]domain.Veteran, error)
}

// Provider verifies applicants against the veteran-records service.
type Provider struct {
	records RecordSearcher
	now     func() time.Time
}

func NewProvider(records RecordSearcher) *Provider {
	return &Provider{records: records, now: time.Now}
}

// Verify looks the applicant up remotely. A reachable service always yields a
// result; an unreachable one yields an error wrapping domain.ErrProviderUnavailable
// and no result.
func (p *Provider) Verify(ctx context.Context, sess *domain.Session, form domain.FormData) (domain.VerificationResult, error) {
	candidates, err := p.records.Search(ctx, veterans.SearchQuery{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Status:    form.Status,
		Branch:    form.BranchOfService,
	})
	var se *veterans.StatusError
	switch {
	case errors.As(err, &se):
		return domain.VerificationResult{
			Status:          domain.ResultFailed,
			ReasonCode:      domain.ReasonAPIError,
			ReasonMessage:   "Unable to connect to verification service. Please try again later.",
			Source:          domain.SourceProvider,
			ProviderPayload: map[string]any{"error": se.Status, "status_code": se.StatusCode},
		}, nil
	case err != nil:
		if !errors.Is(err, domain.ErrProviderUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
		}
		return domain.VerificationResult{}, fmt.Errorf("verify session %s: %w", sess.VerificationID, err)
	}

	if len(candidates) == 0 {
		return domain.VerificationResult{
			Status:          domain.ResultFailed,
			ReasonCode:      domain.ReasonNoMatch,
			ReasonMessage:   "We could not verify your military service with the information provided. Please check your details and try again.",
			Source:          domain.SourceProvider,
			ProviderPayload: map[string]any{"veterans_found": 0},
		}, nil
	}

	for _, v := range candidates {
		if v.DateOfBirth == form.DateOfBirth && v.DischargeDate == form.DischargeDate {
			return domain.VerificationResult{
				Status:        domain.ResultVerified,
				ReasonCode:    domain.ReasonMatchFound,
				ReasonMessage: "Your military service has been verified successfully.",
				ReferenceID:   fmt.Sprintf("VET-%s-%d", v.ID, p.now().UnixMilli()),
				Source:        domain.SourceProvider,
				ProviderPayload: map[string]any{
					"veteran_id": v.ID,
					"branch":     v.BranchOfService,
					"status":     v.Status,
				},
			}, nil
		}
	}

	return domain.VerificationResult{
		Status:          domain.ResultFailed,
		ReasonCode:      domain.ReasonDateMismatch,
		ReasonMessage:   "The dates provided do not match our records. Please verify your date of birth and discharge date.",
		Source:          domain.SourceProvider,
		ProviderPayload: map[string]any{"partial_match": true, "candidates": len(candidates)},
	}, nil
}
