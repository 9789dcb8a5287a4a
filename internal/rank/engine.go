// Package rank scores full-text candidates into ordered search results.
package rank

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/webdex/webdex/internal/crawl"
)

// ErrEmptyQuery is returned for empty or whitespace-only queries. Callers
// are expected to guard against these before reaching the engine.
var ErrEmptyQuery = errors.New("empty search query")

// DefaultPageSize bounds one result page.
const DefaultPageSize = 15

// ScoredDocument pairs an indexed document with its composite score.
type ScoredDocument struct {
	crawl.SiteDocument
	Score float64 `json:"score"`
}

// Result is one page of ranked search output.
type Result struct {
	Query        string           `json:"query"`
	Page         int              `json:"page"`
	PageSize     int              `json:"page_size"`
	TotalMatches int              `json:"total_matches"`
	TotalPages   int              `json:"total_pages"`
	Documents    []ScoredDocument `json:"documents"`
}

// Engine computes composite relevance over site index candidates.
type Engine struct {
	index    crawl.SiteIndex
	pageSize int
}

// New builds an Engine. A non-positive pageSize falls back to
// DefaultPageSize.
func New(index crawl.SiteIndex, pageSize int) *Engine {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Engine{index: index, pageSize: pageSize}
}

// Search returns the requested page of candidates ordered by descending
// composite score. The total match count is a plain count of text-matching
// documents, independent of the scored window.
func (e *Engine) Search(ctx context.Context, query string, page int) (Result, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return Result{}, ErrEmptyQuery
	}
	if page < 1 {
		page = 1
	}

	total, err := e.index.CountMatches(ctx, trimmed)
	if err != nil {
		return Result{}, fmt.Errorf("count matches: %w", err)
	}
	candidates, err := e.index.SearchCandidates(ctx, trimmed)
	if err != nil {
		return Result{}, fmt.Errorf("search candidates: %w", err)
	}

	// QuoteMeta keeps adversarial queries with pattern metacharacters from
	// producing a malformed expression.
	titleRe, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(trimmed))
	if err != nil {
		return Result{}, fmt.Errorf("compile title pattern: %w", err)
	}
	slug := strings.ToLower(strings.Join(strings.Fields(trimmed), "-"))

	scored := make([]ScoredDocument, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, ScoredDocument{
			SiteDocument: c,
			Score:        compositeScore(c, titleRe, slug),
		})
	}
	// Stable sort: equal scores retain the index's candidate order.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	skip := (page - 1) * e.pageSize
	if skip > len(scored) {
		skip = len(scored)
	}
	end := skip + e.pageSize
	if end > len(scored) {
		end = len(scored)
	}

	return Result{
		Query:        trimmed,
		Page:         page,
		PageSize:     e.pageSize,
		TotalMatches: total,
		TotalPages:   (total + e.pageSize - 1) / e.pageSize,
		Documents:    scored[skip:end],
	}, nil
}

// compositeScore multiplies the base text relevance by the depth penalty,
// the logarithmic authority boost (external backlinks worth ten internal
// ones, +10 floor keeping the log positive), and the exact title and URL
// slug heuristics.
func compositeScore(doc crawl.SiteDocument, titleRe *regexp.Regexp, slug string) float64 {
	score := doc.TextScore
	score *= 1 / float64(doc.Depth+1)
	score *= math.Log10(float64(doc.ExternalBacklinks)*10 + float64(doc.InternalBacklinks) + 10)
	if titleRe.MatchString(doc.Title) {
		score *= 3
	}
	if slug != "" && strings.Contains(strings.ToLower(doc.URL), slug) {
		score *= 2
	}
	return score
}
