package verification

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/jerif/verification-api/internal/domain"
)

// Year bounds for the direct sanity check.
const (
	minBirthYear     = 1940
	maxBirthYear     = 2005
	minDischargeYear = 1950
	minServiceAge    = 17
	maxServiceAge    = 70
)

const refAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// VerifyDirect runs the rule-based check used when the provider is unavailable.
// It never fails and makes no external calls; apart from the reference ID the
// result depends only on form and the year of now.
func VerifyDirect(form domain.FormData, now time.Time) domain.VerificationResult {
	res := domain.VerificationResult{
		Source:          domain.SourceDirect,
		ReferenceID:     newDirectReference(now),
		ProviderPayload: map[string]any{"method": "direct"},
	}

	if form.FirstName == "" || form.LastName == "" || form.DateOfBirth == "" || form.DischargeDate == "" {
		return fail(res, domain.ReasonIncompleteData, "Please provide all required information.")
	}

	birthYear, ok := parseYear(form.DateOfBirth)
	if ok {
		res.ProviderPayload["birth_year"] = birthYear
	}
	if !ok || birthYear < minBirthYear || birthYear > maxBirthYear {
		return fail(res, domain.ReasonInvalidDOB, "The date of birth provided is outside the valid range.")
	}

	dischargeYear, ok := parseYear(form.DischargeDate)
	if ok {
		res.ProviderPayload["discharge_year"] = dischargeYear
	}
	if !ok || dischargeYear < minDischargeYear || dischargeYear > now.Year()+1 {
		return fail(res, domain.ReasonInvalidDischarge, "The discharge date provided is outside the valid range.")
	}

	age := dischargeYear - birthYear
	res.ProviderPayload["age_at_discharge"] = age
	if age < minServiceAge || age > maxServiceAge {
		return fail(res, domain.ReasonAgeMismatch, "The age at discharge does not fall within acceptable military service parameters.")
	}

	res.Status = domain.ResultVerified
	res.ReasonCode = domain.ReasonVerified
	res.ReasonMessage = "Your military service has been verified successfully."
	return res
}

func fail(res domain.VerificationResult, code, msg string) domain.VerificationResult {
	res.Status = domain.ResultFailed
	res.ReasonCode = code
	res.ReasonMessage = msg
	return res
}

// parseYear accepts YYYY-MM-DD and RFC 3339 timestamps.
func parseYear(s string) (int, bool) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Year(), true
		}
	}
	return 0, false
}

// newDirectReference returns JRF-<unix ms>-<9 random base36 chars>.
func newDirectReference(now time.Time) string {
	var b strings.Builder
	base := big.NewInt(int64(len(refAlphabet)))
	for i := 0; i < 9; i++ {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			b.WriteByte('0')
			continue
		}
		b.WriteByte(refAlphabet[n.Int64()])
	}
	return fmt.Sprintf("JRF-%d-%s", now.UnixMilli(), b.String())
}
