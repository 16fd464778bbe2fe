package domain

import "encoding/json"

// FormData is the typed view of the identity fields the provider checks.
// Field names follow the default campaign schema.
type FormData struct {
	Status          string `json:"status"`
	BranchOfService string `json:"branch_of_service"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	DateOfBirth     string `json:"date_of_birth"`
	DischargeDate   string `json:"discharge_date"`
	Email           string `json:"email,omitempty"`
}

// FormDataFromValues maps sanitized form values onto FormData.
func FormDataFromValues(v map[string]string) FormData {
	return FormData{
		Status:          v["status"],
		BranchOfService: v["branch_of_service"],
		FirstName:       v["first_name"],
		LastName:        v["last_name"],
		DateOfBirth:     v["date_of_birth"],
		DischargeDate:   v["discharge_date"],
		Email:           v["email"],
	}
}

// Veteran is a candidate record returned by the veteran-records service.
type Veteran struct {
	ID              string `json:"id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	DateOfBirth     string `json:"date_of_birth"`
	Status          string `json:"status"`
	BranchOfService string `json:"branch_of_service"`
	DischargeDate   string `json:"discharge_date"`
	// RawID is the id exactly as the records service sent it (number or string).
	RawID json.RawMessage `json:"-"`
}

// VeteranSummary is the auto-fill view of a Veteran. ID echoes the upstream
// id with its original JSON type.
type VeteranSummary struct {
	Veteran
	ID          json.RawMessage `json:"id"`
	DisplayName string          `json:"display_name"`
}
