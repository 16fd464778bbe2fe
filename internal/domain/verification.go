package domain

import "time"

type ResultStatus string

const (
	ResultVerified ResultStatus = "VERIFIED"
	ResultPending  ResultStatus = "PENDING"
	ResultFailed   ResultStatus = "FAILED"
)

// Valid reports whether s is one of the known result statuses.
func (s ResultStatus) Valid() bool {
	switch s {
	case ResultVerified, ResultPending, ResultFailed:
		return true
	}
	return false
}

// Reason codes produced by the provider adapter and direct verification.
const (
	ReasonMatchFound       = "MATCH_FOUND"
	ReasonDateMismatch     = "DATE_MISMATCH"
	ReasonNoMatch          = "NO_MATCH"
	ReasonAPIError         = "API_ERROR"
	ReasonIncompleteData   = "INCOMPLETE_DATA"
	ReasonInvalidDOB       = "INVALID_DOB"
	ReasonInvalidDischarge = "INVALID_DISCHARGE"
	ReasonAgeMismatch      = "AGE_MISMATCH"
	ReasonVerified         = "VERIFIED"
)

type ResultSource string

const (
	SourceProvider ResultSource = "provider"
	SourceDirect   ResultSource = "direct"
)

// VerificationResult is the outcome of one provider or direct check.
type VerificationResult struct {
	Status          ResultStatus
	ReasonCode      string
	ReasonMessage   string
	ReferenceID     string
	Source          ResultSource
	ProviderPayload map[string]any
}

// Verification is the append-only record of one verification attempt.
// PK: id (ULID). GSI: verification_id.
type Verification struct {
	ID                  string            `json:"id" dynamodbav:"id"`
	VerificationID      string            `json:"verification_id" dynamodbav:"verification_id"`
	CampaignID          string            `json:"campaign_id" dynamodbav:"campaign_id"`
	ResultStatus        ResultStatus      `json:"result_status" dynamodbav:"result_status"`
	ReasonCode          string            `json:"reason_code,omitempty" dynamodbav:"reason_code"`
	ReasonMessage       string            `json:"reason_message,omitempty" dynamodbav:"reason_message"`
	ReferenceID         string            `json:"reference_id,omitempty" dynamodbav:"reference_id"`
	Source              ResultSource      `json:"source" dynamodbav:"source"`
	FormData            map[string]string `json:"form_data" dynamodbav:"form_data"`
	RawProviderResponse map[string]any    `json:"raw_provider_response" dynamodbav:"raw_provider_response"`
	CreatedAt           time.Time         `json:"created_at" dynamodbav:"created_at"`
	CampaignTitle       string            `json:"campaign_title,omitempty" dynamodbav:"-"`
}

// VerificationFilter narrows admin verification listings.
// Status is an exact match, Search a substring of the verification ID.
type VerificationFilter struct {
	Status ResultStatus
	Search string
}
