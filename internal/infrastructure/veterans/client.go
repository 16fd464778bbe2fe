// Package veterans talks to the external veteran-records service.
package veterans

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/jerif/verification-api/internal/config"
	"github.com/jerif/verification-api/internal/domain"
)

// SearchQuery filters the records lookup.
type SearchQuery struct {
	FirstName string
	LastName  string
	Status    string
	Branch    string
}

// StatusError is returned when the service answered with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("veteran records service returned %s", e.Status)
}

// Client calls the veteran-records service with bounded retries.
// Transport failures and undecodable bodies are reported as
// domain.ErrProviderUnavailable; non-2xx answers as *StatusError.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	maxBody int64
}

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 4 << 20

func NewClient(cfg config.ProviderConfig) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = slog.Default()
	// Hand the last response back as-is so a 5xx stays a status, not a transport error.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return &Client{baseURL: strings.TrimRight(cfg.URL, "/"), http: rc, maxBody: maxResponseBytes}
}

// Search looks up candidate records by name, status and branch.
func (c *Client) Search(ctx context.Context, q SearchQuery) ([]domain.Veteran, error) {
	params := url.Values{}
	params.Set("first_name", q.FirstName)
	params.Set("last_name", q.LastName)
	params.Set("status", q.Status)
	params.Set("branch", q.Branch)
	return c.getVeterans(ctx, c.baseURL+"/veterans/search?"+params.Encode())
}

// List returns up to limit candidate records.
func (c *Client) List(ctx context.Context, limit int) ([]domain.Veteran, error) {
	return c.getVeterans(ctx, c.baseURL+"/veterans?limit="+strconv.Itoa(limit))
}

func (c *Client) getVeterans(ctx context.Context, target string) ([]domain.Veteran, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		req.Header.Set(middleware.RequestIDHeader, reqID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("can not close veteran records body", "err", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrProviderUnavailable, err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", domain.ErrProviderUnavailable, c.maxBody)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var records []record
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", domain.ErrProviderUnavailable, err)
	}
	out := make([]domain.Veteran, 0, len(records))
	for _, r := range records {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// record mirrors the service payload; id may be a JSON number or string.
type record struct {
	ID              json.RawMessage `json:"id"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	DateOfBirth     string          `json:"date_of_birth"`
	Status          string          `json:"status"`
	BranchOfService string          `json:"branch_of_service"`
	DischargeDate   string          `json:"discharge_date"`
}

func (r record) toDomain() domain.Veteran {
	return domain.Veteran{
		ID:              rawID(r.ID),
		RawID:           r.ID,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		DateOfBirth:     r.DateOfBirth,
		Status:          r.Status,
		BranchOfService: r.BranchOfService,
		DischargeDate:   r.DischargeDate,
	}
}

func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
