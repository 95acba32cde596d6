package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/shopgenie/shopgenie/internal/core"
	"github.com/shopgenie/shopgenie/internal/metrics"
)

// DefaultMaxMessageLength is the transport limit for one outbound message.
const DefaultMaxMessageLength = 4096

// DefaultMaxResults caps the number of records shown per query.
const DefaultMaxResults = 4

// User-facing notices. They never carry URLs, selectors or error text.
const (
	NoticeEmptyQuery  = "Please send me a product name to search for."
	NoticeRateLimited = "⏳ Too many searches. You can search again in %d seconds."
	NoticeNetwork     = "🌐 I couldn't reach the marketplace right now. Please try again in a few minutes."
	NoticeTimeout     = "⏰ The search took too long. Please try again with a different search term."
	NoticeInternal    = "❌ Something went wrong while searching. Please try again."
)

// Searcher fetches and extracts products for a query.
type Searcher interface {
	Search(ctx context.Context, query string) (core.ResultSet, error)
}

// Renderer turns a result set into one rich-text message.
type Renderer interface {
	Render(results core.ResultSet, query string) string
}

// Splitter breaks a message into transport-sized chunks.
type Splitter func(text string, maxLen int) []string

// Admitter decides whether a user may run another search.
type Admitter interface {
	Admit(key string) bool
	ResetIn(key string) time.Duration
}

// Pipeline runs one query through admission, extraction, rendering and chunking.
type Pipeline struct {
	Limiter          Admitter
	Searcher         Searcher
	Renderer         Renderer
	Split            Splitter
	Ranking          string
	MaxResults       int
	MaxMessageLength int
	Logger           *logging.Logger
	Clock            func() time.Time
}

// Outcome is the result of a successful pipeline run.
type Outcome struct {
	Query   string         `json:"query"`
	Results core.ResultSet `json:"results"`
	Message string         `json:"message"`
	Chunks  []string       `json:"chunks"`
}

// NormalizeQuery trims the raw text and collapses inner whitespace.
func NormalizeQuery(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// Run returns typed errors: core.ErrValidation, *core.RateLimitError,
// *core.NetworkError, or an internal error. An empty result is not an error.
func (p *Pipeline) Run(ctx context.Context, userID string, raw string) (*Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	query := NormalizeQuery(raw)
	if query == "" {
		return nil, core.ErrValidation
	}

	if p.Searcher == nil || p.Renderer == nil {
		return nil, fmt.Errorf("search pipeline is not configured")
	}

	if p.Limiter != nil {
		allowed := p.Limiter.Admit(userID)
		metrics.RecordAdmission(allowed)
		if !allowed {
			return nil, &core.RateLimitError{RetryAfter: p.Limiter.ResetIn(userID)}
		}
	}

	results, err := p.Searcher.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	results = Rank(results, p.Ranking).Cap(p.maxResults())
	message := p.Renderer.Render(results, query)
	chunks := p.split(message)
	metrics.RecordChunks(len(chunks))

	return &Outcome{
		Query:   query,
		Results: results,
		Message: message,
		Chunks:  chunks,
	}, nil
}

// HandleSearch is the chat entry point. It never panics and always returns at
// least one part: HTML chunks on success, a plain notice otherwise.
func (p *Pipeline) HandleSearch(ctx context.Context, userID string, raw string) (parts []core.OutboundPart) {
	start := p.now()
	outcome := metrics.OutcomeInternal

	defer func() {
		if rec := recover(); rec != nil {
			metrics.RecordPanic("pipeline")
			p.logError("Search panicked", zap.String("user_id", userID), zap.Any("panic", rec))
			outcome = metrics.OutcomeInternal
			parts = plain(NoticeInternal)
		}
		metrics.RecordSearch(outcome, p.now().Sub(start))
	}()

	result, err := p.Run(ctx, userID, raw)
	if err != nil {
		outcome = outcomeFor(err)
		return p.notice(userID, err)
	}

	outcome = metrics.OutcomeResults
	if len(result.Results) == 0 {
		outcome = metrics.OutcomeEmpty
	}
	if p.Logger != nil {
		p.Logger.Info("Search completed",
			zap.String("user_id", userID),
			zap.String("query", result.Query),
			zap.Int("results", len(result.Results)),
			zap.Int("chunks", len(result.Chunks)),
			zap.Duration("duration", p.now().Sub(start)))
	}

	parts = make([]core.OutboundPart, 0, len(result.Chunks))
	for _, chunk := range result.Chunks {
		parts = append(parts, core.OutboundPart{Text: chunk, ParseMode: core.ParseModeHTML})
	}
	return parts
}

func (p *Pipeline) notice(userID string, err error) []core.OutboundPart {
	var limited *core.RateLimitError
	var netErr *core.NetworkError

	switch {
	case errors.Is(err, core.ErrValidation):
		return plain(NoticeEmptyQuery)
	case errors.As(err, &limited):
		if p.Logger != nil {
			p.Logger.Info("Search rate limited",
				zap.String("user_id", userID),
				zap.Duration("retry_after", limited.RetryAfter))
		}
		return plain(fmt.Sprintf(NoticeRateLimited, retrySeconds(limited.RetryAfter)))
	case errors.As(err, &netErr):
		if p.Logger != nil {
			p.Logger.Warn("Marketplace fetch failed",
				zap.String("user_id", userID),
				zap.String("url", netErr.URL),
				zap.Int("status", netErr.StatusCode),
				zap.Error(err))
		}
		if netErr.Timeout() {
			return plain(NoticeTimeout)
		}
		return plain(NoticeNetwork)
	default:
		p.logError("Search failed", zap.String("user_id", userID), zap.Error(err))
		return plain(NoticeInternal)
	}
}

func outcomeFor(err error) string {
	var limited *core.RateLimitError
	switch {
	case errors.Is(err, core.ErrValidation):
		return metrics.OutcomeInvalid
	case errors.As(err, &limited):
		return metrics.OutcomeRateLimited
	case core.IsNetworkError(err):
		return metrics.OutcomeNetwork
	default:
		return metrics.OutcomeInternal
	}
}

func (p *Pipeline) split(message string) []string {
	if p.Split == nil {
		return []string{strings.TrimSpace(message)}
	}
	return p.Split(message, p.maxMessageLength())
}

func (p *Pipeline) maxResults() int {
	if p.MaxResults <= 0 {
		return DefaultMaxResults
	}
	return p.MaxResults
}

func (p *Pipeline) maxMessageLength() int {
	if p.MaxMessageLength <= 0 {
		return DefaultMaxMessageLength
	}
	return p.MaxMessageLength
}

func (p *Pipeline) now() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now()
}

func (p *Pipeline) logError(msg string, fields ...zap.Field) {
	if p.Logger != nil {
		p.Logger.Error(msg, fields...)
	}
}

func plain(text string) []core.OutboundPart {
	return []core.OutboundPart{{Text: text, ParseMode: core.ParseModePlain}}
}

// retrySeconds rounds up so users are never told to retry too early.
func retrySeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
