package verification

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jerif/verification-api/internal/config"
	"github.com/jerif/verification-api/internal/domain"
	"github.com/jerif/verification-api/internal/infrastructure/memory"
	"github.com/jerif/verification-api/internal/infrastructure/veterans"
	"github.com/jerif/verification-api/internal/pkg/ratelimit"
)

var svcNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

type mockProvider struct{ mock.Mock }

func (m *mockProvider) Verify(ctx context.Context, sess *domain.Session, form domain.FormData) (domain.VerificationResult, error) {
	args := m.Called(ctx, sess.VerificationID, form)
	return args.Get(0).(domain.VerificationResult), args.Error(1)
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) NotifyResult(_ context.Context, to, _ string, status domain.ResultStatus, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, to+":"+string(status))
	return nil
}

func (n *recordingNotifier) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

type failingVerifications struct{}

func (failingVerifications) Create(context.Context, *domain.Verification) error {
	return errors.New("write timeout")
}

func (failingVerifications) List(context.Context, domain.VerificationFilter) ([]domain.Verification, error) {
	return nil, nil
}

type fixture struct {
	store    *memory.Store
	repos    domain.Repositories
	provider *mockProvider
	notifier *recordingNotifier
	svc      Service
}

func newFixture(t *testing.T, maxRequests int) *fixture {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	ctx := context.Background()
	require.NoError(t, repos.Campaigns.Create(ctx, &domain.Campaign{
		ID:         "military-discount-2024",
		Title:      "Military Discount",
		FormSchema: defaultTestSchema(),
		CreatedAt:  svcNow,
	}))
	require.NoError(t, repos.Sessions.Create(ctx, &domain.Session{
		VerificationID: "v-1",
		CampaignID:     "military-discount-2024",
		Status:         domain.SessionActive,
		ExpiresAt:      svcNow.Add(24 * time.Hour),
		CreatedAt:      svcNow,
	}))

	f := &fixture{store: store, repos: repos, provider: new(mockProvider), notifier: &recordingNotifier{}}
	f.svc = f.build(repos.Verifications, maxRequests)
	return f
}

func (f *fixture) build(v domain.VerificationRepository, maxRequests int) Service {
	return NewService(ServiceDeps{
		Sessions:      f.repos.Sessions,
		Verifications: v,
		Audit:         f.repos.Audit,
		Limiter:       ratelimit.New(time.Minute, ratelimit.WithClock(func() time.Time { return svcNow })),
		Provider:      f.provider,
		Notifier:      f.notifier,
		Window:        15 * time.Minute,
		MaxRequests:   maxRequests,
		Now:           func() time.Time { return svcNow },
	})
}

func defaultTestSchema() domain.FormSchema {
	return domain.FormSchema{Fields: []domain.FormField{
		{Name: "first_name", Type: domain.FieldText, Label: "First", Required: true},
		{Name: "last_name", Type: domain.FieldText, Label: "Last", Required: true},
		{Name: "date_of_birth", Type: domain.FieldDate, Label: "DOB", Required: true},
		{Name: "discharge_date", Type: domain.FieldDate, Label: "Discharge", Required: true},
		{Name: "email", Type: domain.FieldEmail, Label: "Email"},
	}}
}

func validRequest() Request {
	return Request{
		CampaignID:     "military-discount-2024",
		VerificationID: "v-1",
		FormData: map[string]any{
			"first_name":     "John",
			"last_name":      "Smith",
			"date_of_birth":  "1975-03-15",
			"discharge_date": "2015-06-01",
			"email":          "john@example.com",
		},
	}
}

var client = domain.Client{IP: "203.0.113.7", UserAgent: "test"}

func auditActions(s *memory.Store) []domain.AuditAction {
	var out []domain.AuditAction
	for _, l := range s.AuditLogs() {
		out = append(out, l.Action)
	}
	return out
}

func verified() domain.VerificationResult {
	return domain.VerificationResult{
		Status:        domain.ResultVerified,
		ReasonCode:    domain.ReasonMatchFound,
		ReasonMessage: "Your military service has been verified successfully.",
		ReferenceID:   "VET-42-1",
		Source:        domain.SourceProvider,
	}
}

func TestVerify_VerifiedMarksSessionUsed(t *testing.T) {
	f := newFixture(t, 5)
	f.provider.On("Verify", mock.Anything, "v-1", mock.Anything).Return(verified(), nil).Once()

	resp, err := f.svc.Verify(context.Background(), validRequest(), client)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultVerified, resp.Status)
	assert.Equal(t, "VET-42-1", resp.ReferenceID)

	sess, err := f.repos.Sessions.Get(context.Background(), "v-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionUsed, sess.Status)
	require.NotNil(t, sess.UsedAt)

	recs, err := f.repos.Verifications.List(context.Background(), domain.VerificationFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "John", recs[0].FormData["first_name"])
	assert.Equal(t, domain.SourceProvider, recs[0].Source)

	assert.Equal(t, []domain.AuditAction{domain.AuditVerificationAttempt, domain.AuditVerificationResult}, auditActions(f.store))
	assert.Eventually(t, func() bool {
		return len(f.notifier.Calls()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "john@example.com:VERIFIED", f.notifier.Calls()[0])

	_, err = f.svc.Verify(context.Background(), validRequest(), client)
	assert.ErrorIs(t, err, domain.ErrSessionUsed)
	f.provider.AssertNumberOfCalls(t, "Verify", 1)
}

func TestVerify_FailedKeepsSessionActive(t *testing.T) {
	f := newFixture(t, 5)
	f.provider.On("Verify", mock.Anything, "v-1", mock.Anything).Return(domain.VerificationResult{
		Status:     domain.ResultFailed,
		ReasonCode: domain.ReasonNoMatch,
		Source:     domain.SourceProvider,
	}, nil)

	resp, err := f.svc.Verify(context.Background(), validRequest(), client)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultFailed, resp.Status)
	assert.NotEmpty(t, resp.Message)
	assert.NotEmpty(t, resp.ReferenceID, "falls back to the record id")

	sess, err := f.repos.Sessions.Get(context.Background(), "v-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, sess.Status)

	_, err = f.svc.Verify(context.Background(), validRequest(), client)
	require.NoError(t, err)
	recs, _ := f.repos.Verifications.List(context.Background(), domain.VerificationFilter{})
	assert.Len(t, recs, 2)
}

func TestVerify_FallbackToDirect(t *testing.T) {
	f := newFixture(t, 5)
	f.provider.On("Verify", mock.Anything, "v-1", mock.Anything).
		Return(domain.VerificationResult{}, domain.ErrProviderUnavailable)

	resp, err := f.svc.Verify(context.Background(), validRequest(), client)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultVerified, resp.Status)
	assert.Regexp(t, `^JRF-`, resp.ReferenceID)

	recs, err := f.repos.Verifications.List(context.Background(), domain.VerificationFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.SourceDirect, recs[0].Source)
	assert.Equal(t, "direct", recs[0].RawProviderResponse["method"])
}

func TestVerify_FallbackNeverPending(t *testing.T) {
	f := newFixture(t, 5)
	f.provider.On("Verify", mock.Anything, "v-1", mock.Anything).
		Return(domain.VerificationResult{}, errors.New("boom"))

	req := validRequest()
	req.FormData["date_of_birth"] = "1990-01-01"
	req.FormData["discharge_date"] = "1995-01-01"
	resp, err := f.svc.Verify(context.Background(), req, client)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultFailed, resp.Status)
	assert.NotEqual(t, domain.ResultPending, resp.Status)
}

func TestVerify_RejectsBadSessions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *fixture) Request
		want  error
	}{
		{"unknown session", func(t *testing.T, f *fixture) Request {
			r := validRequest()
			r.VerificationID = "missing"
			return r
		}, domain.ErrNotFound},
		{"campaign mismatch", func(t *testing.T, f *fixture) Request {
			r := validRequest()
			r.CampaignID = "other"
			return r
		}, domain.ErrInvalidLink},
		{"used session", func(t *testing.T, f *fixture) Request {
			require.NoError(t, f.repos.Sessions.UpdateStatus(context.Background(), "v-1", domain.SessionUsed, svcNow))
			return validRequest()
		}, domain.ErrSessionUsed},
		{"expired session", func(t *testing.T, f *fixture) Request {
			require.NoError(t, f.repos.Sessions.Create(context.Background(), &domain.Session{
				VerificationID: "v-old",
				CampaignID:     "military-discount-2024",
				Status:         domain.SessionActive,
				ExpiresAt:      svcNow.Add(-time.Minute),
				CreatedAt:      svcNow.Add(-48 * time.Hour),
			}))
			r := validRequest()
			r.VerificationID = "v-old"
			return r
		}, domain.ErrSessionExpired},
		{"missing field", func(t *testing.T, f *fixture) Request {
			r := validRequest()
			delete(r.FormData, "last_name")
			return r
		}, domain.ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 5)
			req := tt.setup(t, f)
			_, err := f.svc.Verify(context.Background(), req, client)
			assert.ErrorIs(t, err, tt.want)
			f.provider.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
			recs, _ := f.repos.Verifications.List(context.Background(), domain.VerificationFilter{})
			assert.Empty(t, recs)
		})
	}
}

func TestVerify_RateLimited(t *testing.T) {
	f := newFixture(t, 2)
	f.provider.On("Verify", mock.Anything, "v-1", mock.Anything).Return(domain.VerificationResult{
		Status: domain.ResultFailed, ReasonCode: domain.ReasonNoMatch, Source: domain.SourceProvider,
	}, nil)

	for i := 0; i < 2; i++ {
		_, err := f.svc.Verify(context.Background(), validRequest(), client)
		require.NoError(t, err)
	}
	_, err := f.svc.Verify(context.Background(), validRequest(), client)
	var rl *domain.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 0, rl.Remaining)
	assert.Equal(t, svcNow.Add(15*time.Minute), rl.ResetAt)

	actions := auditActions(f.store)
	assert.Equal(t, domain.AuditRateLimited, actions[len(actions)-1])
	f.provider.AssertNumberOfCalls(t, "Verify", 2)

	other := domain.Client{IP: "198.51.100.1"}
	_, err = f.svc.Verify(context.Background(), validRequest(), other)
	assert.NoError(t, err)
}

func TestVerify_PersistFailureStillAudits(t *testing.T) {
	f := newFixture(t, 5)
	f.provider.On("Verify", mock.Anything, "v-1", mock.Anything).Return(verified(), nil)
	svc := f.build(failingVerifications{}, 5)

	_, err := svc.Verify(context.Background(), validRequest(), client)
	require.Error(t, err)

	logs := f.store.AuditLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, domain.AuditVerificationResult, logs[1].Action)
	assert.Equal(t, false, logs[1].Details["persisted"])

	sess, err := f.repos.Sessions.Get(context.Background(), "v-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, sess.Status)
}

func TestVerify_RunsAfterClientCancel(t *testing.T) {
	f := newFixture(t, 5)
	f.provider.On("Verify", mock.Anything, "v-1", mock.Anything).Return(verified(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	f.provider.ExpectedCalls[0].Run(func(mock.Arguments) { cancel() })

	resp, err := f.svc.Verify(ctx, validRequest(), client)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultVerified, resp.Status)
	sess, err := f.repos.Sessions.Get(context.Background(), "v-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionUsed, sess.Status)
}

func TestVerify_ProviderTimeoutFallsBackToDirect(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	f := newFixture(t, 5)
	svc := NewService(ServiceDeps{
		Sessions:        f.repos.Sessions,
		Verifications:   f.repos.Verifications,
		Audit:           f.repos.Audit,
		Limiter:         ratelimit.New(time.Minute),
		Provider:        NewProvider(veterans.NewClient(config.ProviderConfig{URL: srv.URL, Timeout: 10 * time.Second, RetryMax: 2})),
		Window:          15 * time.Minute,
		MaxRequests:     5,
		ProviderTimeout: 200 * time.Millisecond,
		Now:             func() time.Time { return svcNow },
	})

	start := time.Now()
	resp, err := svc.Verify(context.Background(), validRequest(), client)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, domain.ResultVerified, resp.Status)
	assert.Regexp(t, `^JRF-`, resp.ReferenceID)
	assert.Less(t, elapsed, 2*time.Second)

	recs, err := f.repos.Verifications.List(context.Background(), domain.VerificationFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.SourceDirect, recs[0].Source)
}

type blockingNotifier struct {
	started chan struct{}
	release chan struct{}
	sent    atomic.Int32
}

func (n *blockingNotifier) NotifyResult(context.Context, string, string, domain.ResultStatus, string, string) error {
	close(n.started)
	<-n.release
	n.sent.Add(1)
	return nil
}

func TestClose_WaitsForPendingNotifications(t *testing.T) {
	f := newFixture(t, 5)
	f.provider.On("Verify", mock.Anything, "v-1", mock.Anything).Return(verified(), nil)
	n := &blockingNotifier{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(ServiceDeps{
		Sessions:      f.repos.Sessions,
		Verifications: f.repos.Verifications,
		Audit:         f.repos.Audit,
		Limiter:       ratelimit.New(time.Minute),
		Provider:      f.provider,
		Notifier:      n,
		Window:        15 * time.Minute,
		MaxRequests:   5,
		Now:           func() time.Time { return svcNow },
	})

	_, err := svc.Verify(context.Background(), validRequest(), client)
	require.NoError(t, err)
	<-n.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Close(ctx), context.DeadlineExceeded)
	assert.Equal(t, int32(0), n.sent.Load())

	close(n.release)
	require.NoError(t, svc.Close(context.Background()))
	assert.Equal(t, int32(1), n.sent.Load())
}

func TestClose_SkipsNotificationsAfterClose(t *testing.T) {
	f := newFixture(t, 5)
	f.provider.On("Verify", mock.Anything, "v-1", mock.Anything).Return(verified(), nil)
	require.NoError(t, f.svc.Close(context.Background()))

	resp, err := f.svc.Verify(context.Background(), validRequest(), client)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultVerified, resp.Status)
	require.NoError(t, f.svc.Close(context.Background()))
	assert.Empty(t, f.notifier.Calls())
}
