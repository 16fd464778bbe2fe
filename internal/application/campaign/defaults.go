package campaign

import (
	"time"

	"github.com/jerif/verification-api/internal/domain"
)

const (
	DefaultCampaignID  = "military-discount-2024"
	DemoVerificationID = "demo-verification-001"
)

// DefaultCampaign is the military discount program created on first start.
func DefaultCampaign(now time.Time) *domain.Campaign {
	return &domain.Campaign{
		ID:          DefaultCampaignID,
		Title:       "Military Discount Program",
		Description: "Exclusive discounts for U.S. military servicemembers and veterans. Verify your service to unlock special offers.",
		FormSchema: domain.FormSchema{Fields: []domain.FormField{
			{
				Name: "status", Type: domain.FieldSelect, Label: "Status", Required: true,
				Options: []domain.FieldOption{
					{Value: "Active", Label: "Active Duty"},
					{Value: "Retired", Label: "Retired"},
					{Value: "Discharged", Label: "Veteran/Discharged"},
				},
			},
			{
				Name: "branch_of_service", Type: domain.FieldSelect, Label: "Branch of Service", Required: true,
				Options: []domain.FieldOption{
					{Value: "Army", Label: "Army"},
					{Value: "Navy", Label: "Navy"},
					{Value: "Air Force", Label: "Air Force"},
					{Value: "Marines", Label: "Marines"},
					{Value: "Coast Guard", Label: "Coast Guard"},
					{Value: "Space Force", Label: "Space Force"},
				},
			},
			{Name: "first_name", Type: domain.FieldText, Label: "First Name", Required: true, Placeholder: "Enter your first name"},
			{Name: "last_name", Type: domain.FieldText, Label: "Last Name", Required: true, Placeholder: "Enter your last name"},
			{Name: "date_of_birth", Type: domain.FieldDate, Label: "Date of Birth", Required: true, Hint: "Used for verification purposes only"},
			{Name: "discharge_date", Type: domain.FieldDate, Label: "Discharge Date", Required: true, Hint: "Used for verification purposes only"},
			{Name: "email", Type: domain.FieldEmail, Label: "Email Address", Placeholder: "your@email.com", Hint: "Personal email address is recommended"},
		}},
		ProgramInfo: &domain.ProgramInfo{
			Benefits: []string{
				"Up to 20% discount on all products",
				"Free shipping on orders over $50",
				"Exclusive access to member-only sales",
			},
			Terms:       "Offer valid for verified U.S. military servicemembers and veterans only.",
			PrivacyNote: "Your information is securely processed and will not be shared with third parties.",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
