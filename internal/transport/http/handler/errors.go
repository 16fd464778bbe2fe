package handler

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jerif/verification-api/internal/domain"
)

const (
	msgInternal    = "Internal server error. Please try again later."
	msgRateLimited = "Too many verification attempts. Please try again later."
)

// httpError maps domain errors to status codes. notFound is the message sent
// for domain.ErrNotFound.
func httpError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var rl *domain.RateLimitError
	var fe *domain.FieldError
	switch {
	case errors.As(err, &rl):
		writeRateLimited(w, rl)
	case errors.As(err, &fe):
		writeError(w, http.StatusBadRequest, fe.Error())
	case errors.Is(err, domain.ErrInvalidLink):
		writeError(w, http.StatusBadRequest, "Invalid verification link.")
	case errors.Is(err, domain.ErrSessionUsed):
		writeError(w, http.StatusBadRequest, "This verification link has already been used.")
	case errors.Is(err, domain.ErrSessionExpired):
		writeError(w, http.StatusBadRequest, "This verification link has expired.")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, trimSentinel(err, domain.ErrBadRequest))
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, trimSentinel(err, domain.ErrConflict))
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

func writeRateLimited(w http.ResponseWriter, rl *domain.RateLimitError) {
	retry := int(math.Ceil(time.Until(rl.ResetAt).Seconds()))
	if retry < 1 {
		retry = 1
	}
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(rl.ResetAt.Unix(), 10))
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	writeJSON(w, http.StatusTooManyRequests, RateLimitEnvelope{
		Error:     msgRateLimited,
		Remaining: rl.Remaining,
		ResetAt:   rl.ResetAt.UTC(),
	})
}

// trimSentinel drops the trailing ": <sentinel>" added by %w wrapping.
func trimSentinel(err, sentinel error) string {
	return strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
}
