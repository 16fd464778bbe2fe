package veteran

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jerif/verification-api/internal/domain"
)

const listCacheKey = "veterans:list"

// Lister is satisfied by *veterans.Client.
type Lister interface {
	List(ctx context.Context, limit int) ([]domain.Veteran, error)
}

type Service interface {
	Candidates(ctx context.Context) ([]domain.VeteranSummary, error)
}

type service struct {
	records Lister
	limit   int
	cache   *cache.Cache
}

// NewService caches the candidate list for ttl. A non-positive ttl disables caching.
func NewService(records Lister, limit int, ttl time.Duration) Service {
	s := &service{records: records, limit: limit}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

// Candidates returns the auto-fill list. Upstream errors are returned as-is so
// the transport can mirror the upstream status.
func (s *service) Candidates(ctx context.Context) ([]domain.VeteranSummary, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(listCacheKey); ok {
			return v.([]domain.VeteranSummary), nil
		}
	}
	records, err := s.records.List(ctx, s.limit)
	if err != nil {
		slog.WarnContext(ctx, "failed to fetch veterans", "err", err)
		return nil, err
	}
	out := make([]domain.VeteranSummary, 0, len(records))
	for _, r := range records {
		id := r.RawID
		if len(id) == 0 {
			id, _ = json.Marshal(r.ID)
		}
		out = append(out, domain.VeteranSummary{
			Veteran:     r,
			ID:          id,
			DisplayName: fmt.Sprintf("%s %s (%s)", r.FirstName, r.LastName, r.BranchOfService),
		})
	}
	if s.cache != nil {
		s.cache.SetDefault(listCacheKey, out)
	}
	return out, nil
}
