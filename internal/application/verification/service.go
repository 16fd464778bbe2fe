// Package verification runs the applicant verification pipeline: rate check,
// session lookup and validation, input sanitizing, the provider call with its
// direct fallback, persistence and the one-time session transition.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jerif/verification-api/internal/domain"
	"github.com/jerif/verification-api/internal/metrics"
	"github.com/jerif/verification-api/internal/pkg/id"
	"github.com/jerif/verification-api/internal/pkg/ratelimit"
)

const rateLimitAction = "verify"

var defaultMessages = map[domain.ResultStatus]string{
	domain.ResultVerified: "Your military service has been verified successfully.",
	domain.ResultPending:  "Your verification is being processed. You will receive an email once the review is complete.",
	domain.ResultFailed:   "We could not verify your military service with the information provided.",
}

// Request is the parsed body of a verification submission.
type Request struct {
	CampaignID     string         `json:"campaignId" validate:"required"`
	VerificationID string         `json:"verificationId" validate:"required"`
	FormData       map[string]any `json:"formData" validate:"required"`
}

// Response is what the applicant sees.
type Response struct {
	Status      domain.ResultStatus `json:"status"`
	Message     string              `json:"message"`
	ReferenceID string              `json:"referenceId"`
}

// RateLimiter is satisfied by *ratelimit.Limiter.
type RateLimiter interface {
	Check(key string, window time.Duration, maxRequests int) ratelimit.Decision
}

// RecordsProvider is satisfied by *Provider.
type RecordsProvider interface {
	Verify(ctx context.Context, sess *domain.Session, form domain.FormData) (domain.VerificationResult, error)
}

// ResultNotifier delivers the outcome to the applicant's email address.
type ResultNotifier interface {
	NotifyResult(ctx context.Context, to, campaignTitle string, status domain.ResultStatus, message, referenceID string) error
}

type Service interface {
	Verify(ctx context.Context, req Request, client domain.Client) (*Response, error)
	// Close stops new notifications and waits for in-flight ones until ctx is done.
	Close(ctx context.Context) error
}

// ServiceDeps wires a Service. Notifier is optional.
type ServiceDeps struct {
	Sessions        domain.SessionRepository
	Verifications   domain.VerificationRepository
	Audit           domain.AuditRepository
	Limiter         RateLimiter
	Provider        RecordsProvider
	Notifier        ResultNotifier
	Window          time.Duration
	MaxRequests     int
	ProviderTimeout time.Duration
	Now             func() time.Time
}

type service struct {
	sessions        domain.SessionRepository
	verifications   domain.VerificationRepository
	audit           domain.AuditRepository
	limiter         RateLimiter
	provider        RecordsProvider
	notifier        ResultNotifier
	window          time.Duration
	maxRequests     int
	providerTimeout time.Duration
	now             func() time.Time

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

func NewService(d ServiceDeps) Service {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		sessions:        d.Sessions,
		verifications:   d.Verifications,
		audit:           d.Audit,
		limiter:         d.Limiter,
		provider:        d.Provider,
		notifier:        d.Notifier,
		window:          d.Window,
		maxRequests:     d.MaxRequests,
		providerTimeout: d.ProviderTimeout,
		now:             now,
	}
}

func (s *service) Verify(ctx context.Context, req Request, client domain.Client) (*Response, error) {
	start := s.now()

	d := s.limiter.Check(rateLimitAction+":"+client.IP, s.window, s.maxRequests)
	if !d.Allowed {
		metrics.RecordRateLimited()
		s.log(ctx, domain.AuditRateLimited, req.VerificationID, client, map[string]any{
			"reset_at": d.ResetAt.UTC().Format(time.RFC3339),
		})
		return nil, &domain.RateLimitError{Remaining: d.Remaining, ResetAt: d.ResetAt}
	}

	sess, err := s.sessions.Get(ctx, req.VerificationID)
	if err != nil {
		return nil, err
	}
	if err := validateSession(sess, req.CampaignID, start); err != nil {
		return nil, err
	}

	values, err := Sanitize(sess.Campaign.FormSchema, req.FormData)
	if err != nil {
		return nil, err
	}
	form := domain.FormDataFromValues(values)

	// From here on the request runs to completion even if the client goes away.
	ctx = context.WithoutCancel(ctx)

	s.log(ctx, domain.AuditVerificationAttempt, sess.VerificationID, client, map[string]any{
		"campaign_id": sess.CampaignID,
	})

	result := s.check(ctx, sess, form)

	rec := &domain.Verification{
		ID:                  id.New(),
		VerificationID:      sess.VerificationID,
		CampaignID:          sess.CampaignID,
		ResultStatus:        result.Status,
		ReasonCode:          result.ReasonCode,
		ReasonMessage:       result.ReasonMessage,
		ReferenceID:         result.ReferenceID,
		Source:              result.Source,
		FormData:            values,
		RawProviderResponse: result.ProviderPayload,
		CreatedAt:           s.now().UTC(),
	}
	persistErr := s.verifications.Create(ctx, rec)
	if persistErr != nil {
		slog.ErrorContext(ctx, "failed to persist verification", "verification_id", sess.VerificationID, "err", persistErr)
	}
	s.log(ctx, domain.AuditVerificationResult, sess.VerificationID, client, map[string]any{
		"status":      string(result.Status),
		"reason_code": result.ReasonCode,
		"source":      string(result.Source),
		"record_id":   rec.ID,
		"persisted":   persistErr == nil,
	})
	if persistErr != nil {
		return nil, fmt.Errorf("persist verification: %w", persistErr)
	}

	if result.Status == domain.ResultVerified {
		if err := s.sessions.UpdateStatus(ctx, sess.VerificationID, domain.SessionUsed, s.now().UTC()); err != nil {
			slog.ErrorContext(ctx, "failed to mark session used", "verification_id", sess.VerificationID, "err", err)
		}
	}

	resp := &Response{
		Status:      result.Status,
		Message:     result.ReasonMessage,
		ReferenceID: result.ReferenceID,
	}
	if resp.Message == "" {
		resp.Message = defaultMessages[result.Status]
	}
	if resp.ReferenceID == "" {
		resp.ReferenceID = rec.ID
	}

	metrics.RecordResult(string(result.Status), result.ReasonCode, string(result.Source), s.now().Sub(start).Seconds())
	s.notify(ctx, form.Email, sess, resp)
	return resp, nil
}

func validateSession(sess *domain.Session, campaignID string, now time.Time) error {
	if sess.CampaignID != campaignID {
		return domain.ErrInvalidLink
	}
	if sess.Status == domain.SessionUsed {
		return domain.ErrSessionUsed
	}
	if sess.Expired(now) {
		return domain.ErrSessionExpired
	}
	if sess.Campaign == nil {
		return fmt.Errorf("session %s loaded without campaign", sess.VerificationID)
	}
	return nil
}

// check asks the provider and falls back to VerifyDirect on any provider error.
func (s *service) check(ctx context.Context, sess *domain.Session, form domain.FormData) domain.VerificationResult {
	pctx := ctx
	if s.providerTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, s.providerTimeout)
		defer cancel()
	}
	res, err := s.provider.Verify(pctx, sess, form)
	if err == nil {
		return res
	}
	slog.WarnContext(ctx, "provider unavailable, using direct verification",
		"verification_id", sess.VerificationID,
		"unavailable", errors.Is(err, domain.ErrProviderUnavailable),
		"err", err)
	metrics.RecordProviderFallback()
	return VerifyDirect(form, s.now())
}

// log writes an audit event. Audit failures never abort the pipeline.
func (s *service) log(ctx context.Context, action domain.AuditAction, verificationID string, client domain.Client, details map[string]any) {
	err := s.audit.Create(ctx, &domain.AuditLog{
		ID:             id.New(),
		Action:         action,
		VerificationID: verificationID,
		IP:             client.IP,
		UserAgent:      client.UserAgent,
		Details:        details,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to write audit log", "action", action, "verification_id", verificationID, "err", err)
	}
}

func (s *service) notify(ctx context.Context, to string, sess *domain.Session, resp *Response) {
	if s.notifier == nil || to == "" {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		slog.WarnContext(ctx, "service closing, result notification skipped", "verification_id", sess.VerificationID)
		return
	}
	s.pending.Add(1)
	s.mu.Unlock()

	title := sess.Campaign.Title
	r := *resp
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer s.pending.Done()
		if err := s.notifier.NotifyResult(ctx, to, title, r.Status, r.Message, r.ReferenceID); err != nil {
			slog.WarnContext(ctx, "failed to send result notification", "verification_id", sess.VerificationID, "err", err)
		}
	}()
}

func (s *service) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for notifications: %w", ctx.Err())
	}
}
