package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopgenie/shopgenie/internal/core"
	"github.com/shopgenie/shopgenie/internal/core/engine"
	apperrors "github.com/shopgenie/shopgenie/internal/errors"
)

// DefaultMaxRequestBytes bounds the body of a search request.
const DefaultMaxRequestBytes = 16 << 10

// SearchRunner executes one query for a user.
type SearchRunner interface {
	Run(ctx context.Context, userID string, raw string) (*engine.Outcome, error)
}

// Budget exposes a user's remaining admission allowance.
type Budget interface {
	Remaining(key string) int
	ResetIn(key string) time.Duration
}

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
}

// SearchResponse mirrors a successful pipeline run.
type SearchResponse struct {
	Query   string              `json:"query"`
	Count   int                 `json:"count"`
	Results core.ResultSet      `json:"results"`
	Parts   []core.OutboundPart `json:"parts"`
}

// BudgetResponse is the body of GET /v1/rate-limit/{user}.
type BudgetResponse struct {
	UserID         string `json:"user_id"`
	Remaining      int    `json:"remaining"`
	ResetInSeconds int    `json:"reset_in_seconds"`
}

// SearchHandler serves the JSON search API.
type SearchHandler struct {
	Pipeline     SearchRunner
	Budget       Budget
	MaxBodyBytes int64
}

// Search handles POST /v1/search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Pipeline == nil {
		respondWithError(w, r, apperrors.Wrap(r.Context(), apperrors.CodeUnavailable, errors.New("pipeline not configured"), "search is not available"))
		return
	}

	var req SearchRequest
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxRequestBytes
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, limit))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("request body must be a JSON object with user_id and query"))
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		respondWithError(w, r, apperrors.NewValidationError("user_id is required"))
		return
	}

	outcome, err := h.Pipeline.Run(r.Context(), userID, req.Query)
	if err != nil {
		var limited *core.RateLimitError
		if errors.As(err, &limited) {
			w.Header().Set("Retry-After", strconv.Itoa(ceilSeconds(limited.RetryAfter)))
		}
		respondWithError(w, r, apperrors.FromSearchError(r.Context(), err))
		return
	}

	parts := make([]core.OutboundPart, 0, len(outcome.Chunks))
	for _, chunk := range outcome.Chunks {
		parts = append(parts, core.OutboundPart{Text: chunk, ParseMode: core.ParseModeHTML})
	}

	results := outcome.Results
	if results == nil {
		results = core.ResultSet{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Query:   outcome.Query,
		Count:   len(results),
		Results: results,
		Parts:   parts,
	})
}

// RemainingBudget handles GET /v1/rate-limit/{user}.
func (h *SearchHandler) RemainingBudget(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Budget == nil {
		respondWithError(w, r, apperrors.Wrap(r.Context(), apperrors.CodeUnavailable, errors.New("rate limiter not configured"), "rate limit status is not available"))
		return
	}

	userID := strings.TrimSpace(chi.URLParam(r, "user"))
	if userID == "" {
		respondWithError(w, r, apperrors.NewValidationError("user is required"))
		return
	}

	resetIn := 0
	if wait := h.Budget.ResetIn(userID); wait > 0 {
		resetIn = ceilSeconds(wait)
	}
	writeJSON(w, http.StatusOK, BudgetResponse{
		UserID:         userID,
		Remaining:      h.Budget.Remaining(userID),
		ResetInSeconds: resetIn,
	})
}

func ceilSeconds(d time.Duration) int {
	seconds := int((d + time.Second - 1) / time.Second)
	if seconds < 1 {
		return 1
	}
	return seconds
}
