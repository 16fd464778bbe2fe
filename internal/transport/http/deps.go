package http

import (
	"github.com/jerif/verification-api/internal/application/admin"
	"github.com/jerif/verification-api/internal/application/campaign"
	"github.com/jerif/verification-api/internal/application/session"
	"github.com/jerif/verification-api/internal/application/verification"
	"github.com/jerif/verification-api/internal/application/veteran"
	"github.com/jerif/verification-api/internal/transport/http/middleware"
)

// Deps holds the application services the router exposes.
type Deps struct {
	Verification verification.Service
	Sessions     session.Service
	Campaigns    campaign.Service
	Veterans     veteran.Service
	Admin        admin.Service
	Tokens       middleware.TokenVerifier
}
