package verification

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jerif/verification-api/internal/domain"
)

var directNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func directForm(dob, discharge string) domain.FormData {
	return domain.FormData{
		FirstName:     "John",
		LastName:      "Smith",
		DateOfBirth:   dob,
		DischargeDate: discharge,
	}
}

func TestVerifyDirect(t *testing.T) {
	tests := []struct {
		name   string
		form   domain.FormData
		status domain.ResultStatus
		reason string
	}{
		{"valid", directForm("1985-03-15", "2010-06-01"), domain.ResultVerified, domain.ReasonVerified},
		{"birth too early", directForm("1930-01-01", "1960-01-01"), domain.ResultFailed, domain.ReasonInvalidDOB},
		{"birth too late", directForm("2006-01-01", "2024-01-01"), domain.ResultFailed, domain.ReasonInvalidDOB},
		{"discharge in future", directForm("1985-01-01", "2029-01-01"), domain.ResultFailed, domain.ReasonInvalidDischarge},
		{"discharge next year allowed", directForm("1985-01-01", "2025-01-01"), domain.ResultVerified, domain.ReasonVerified},
		{"discharge too early", directForm("1941-01-01", "1949-01-01"), domain.ResultFailed, domain.ReasonInvalidDischarge},
		{"too young at discharge", directForm("1990-01-01", "1995-01-01"), domain.ResultFailed, domain.ReasonAgeMismatch},
		{"too old at discharge", directForm("1940-01-01", "2011-01-01"), domain.ResultFailed, domain.ReasonAgeMismatch},
		{"missing discharge", directForm("1985-01-01", ""), domain.ResultFailed, domain.ReasonIncompleteData},
		{"missing name", domain.FormData{LastName: "Smith", DateOfBirth: "1985-01-01", DischargeDate: "2010-01-01"}, domain.ResultFailed, domain.ReasonIncompleteData},
		{"unparseable birth", directForm("March 1985", "2010-01-01"), domain.ResultFailed, domain.ReasonInvalidDOB},
		{"unparseable discharge", directForm("1985-01-01", "soon"), domain.ResultFailed, domain.ReasonInvalidDischarge},
		{"rfc3339 accepted", directForm("1985-03-15T00:00:00Z", "2010-06-01T00:00:00Z"), domain.ResultVerified, domain.ReasonVerified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := VerifyDirect(tt.form, directNow)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.reason, res.ReasonCode)
			assert.Equal(t, domain.SourceDirect, res.Source)
			assert.NotEmpty(t, res.ReasonMessage)
			assert.Equal(t, "direct", res.ProviderPayload["method"])
		})
	}
}

func TestVerifyDirect_NeverPending(t *testing.T) {
	for _, f := range []domain.FormData{
		{},
		directForm("x", "y"),
		directForm("1985-03-15", "2010-06-01"),
	} {
		assert.NotEqual(t, domain.ResultPending, VerifyDirect(f, directNow).Status)
	}
}

func TestVerifyDirect_Deterministic(t *testing.T) {
	f := directForm("1990-01-01", "1995-01-01")
	a := VerifyDirect(f, directNow)
	b := VerifyDirect(f, directNow)
	assert.Equal(t, a.Status, b.Status)
	assert.Equal(t, a.ReasonCode, b.ReasonCode)
	assert.Equal(t, a.ReasonMessage, b.ReasonMessage)
	assert.Equal(t, 5, a.ProviderPayload["age_at_discharge"])
}

func TestVerifyDirect_ReferenceFormat(t *testing.T) {
	res := VerifyDirect(directForm("1985-03-15", "2010-06-01"), directNow)
	assert.Regexp(t, regexp.MustCompile(`^JRF-\d+-[0-9A-Z]{9}$`), res.ReferenceID)
	assert.Contains(t, res.ReferenceID, "JRF-1717236000000-")
}
