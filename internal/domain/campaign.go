package domain

import "time"

type FieldType string

const (
	FieldText   FieldType = "text"
	FieldSelect FieldType = "select"
	FieldDate   FieldType = "date"
	FieldEmail  FieldType = "email"
)

type FieldOption struct {
	Value string `json:"value" dynamodbav:"value" validate:"required"`
	Label string `json:"label" dynamodbav:"label" validate:"required"`
}

// FormField describes one input of a campaign's verification form.
type FormField struct {
	Name        string        `json:"name" dynamodbav:"name" validate:"required"`
	Type        FieldType     `json:"type" dynamodbav:"type" validate:"required,oneof=text select date email"`
	Label       string        `json:"label" dynamodbav:"label" validate:"required"`
	Required    bool          `json:"required" dynamodbav:"required"`
	Options     []FieldOption `json:"options,omitempty" dynamodbav:"options,omitempty" validate:"required_if=Type select,dive"`
	Placeholder string        `json:"placeholder,omitempty" dynamodbav:"placeholder,omitempty"`
	Hint        string        `json:"hint,omitempty" dynamodbav:"hint,omitempty"`
}

type FormSchema struct {
	Fields []FormField `json:"fields" dynamodbav:"fields" validate:"required,min=1,dive"`
}

type ProgramInfo struct {
	Benefits    []string `json:"benefits" dynamodbav:"benefits"`
	Terms       string   `json:"terms" dynamodbav:"terms"`
	PrivacyNote string   `json:"privacy_note" dynamodbav:"privacy_note"`
}

type Campaign struct {
	ID          string       `json:"id" dynamodbav:"id"`
	Title       string       `json:"title" dynamodbav:"title"`
	Description string       `json:"description,omitempty" dynamodbav:"description"`
	FormSchema  FormSchema   `json:"form_schema" dynamodbav:"form_schema"`
	ProgramInfo *ProgramInfo `json:"program_info" dynamodbav:"program_info"`
	CreatedAt   time.Time    `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" dynamodbav:"updated_at"`
}

// CreateCampaignRequest is the admin payload for a new campaign.
type CreateCampaignRequest struct {
	ID          string       `json:"id" validate:"required,max=64"`
	Title       string       `json:"title" validate:"required"`
	Description string       `json:"description"`
	FormSchema  FormSchema   `json:"form_schema" validate:"required"`
	ProgramInfo *ProgramInfo `json:"program_info"`
}
