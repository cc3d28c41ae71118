package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	ErrDataSourceUnavailable = errors.New("failed to fetch updates")
	ErrInvalidRequest        = errors.New("invalid request")
)

const (
	searchPages    = 3
	searchMaxItems = 5
)

// UpdateRepository reads update records. Query honours the criteria window;
// Count ignores it.
type UpdateRepository interface {
	Query(ctx context.Context, criteria Criteria) ([]UpdateRecord, error)
	Count(ctx context.Context, criteria Criteria) (int, error)
}

type Service struct {
	repo        UpdateRepository
	transformer *Transformer
}

func NewService(repo UpdateRepository) *Service {
	return &Service{
		repo:        repo,
		transformer: NewTransformer(),
	}
}

// Fetch returns one page of the feed together with its pagination metadata.
func (s *Service) Fetch(ctx context.Context, req Request) (*Response, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	criteria := NewCriteria(req)

	records, err := s.repo.Query(ctx, criteria)
	if err != nil {
		slog.Error("Database error", "operation", "query_updates", "product", req.Product, "language", req.Language, "update_type", string(req.UpdateType), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrDataSourceUnavailable, err)
	}

	updates := s.transformer.Run(records, req.UpdateType)

	total, err := s.repo.Count(ctx, criteria.Unpaged())
	if err != nil {
		slog.Error("Database error", "operation", "count_updates", "product", req.Product, "language", req.Language, "update_type", string(req.UpdateType), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrDataSourceUnavailable, err)
	}

	slog.Debug("Feed page assembled",
		"product", req.Product,
		"language", req.Language,
		"update_type", string(req.UpdateType),
		"page", req.Page,
		"records", len(records),
		"updates", len(updates),
		"total", total)

	return &Response{
		Updates:    updates,
		Pagination: NewPagination(req.Page, total),
	}, nil
}

// Search scans the first pages of the single-update feed for a keyword in the
// title or summary and returns the match count with the first few matches.
func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	keyword := strings.ToLower(req.Keyword)
	result := &SearchResult{
		Keyword: req.Keyword,
		Updates: []FeedItem{},
	}

	for page := 1; page <= searchPages; page++ {
		resp, err := s.Fetch(ctx, Request{
			Product:    req.Product,
			Language:   req.Language,
			Page:       page,
			UpdateType: UpdateTypeSingle,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Updates) == 0 {
			break
		}

		for _, item := range resp.Updates {
			text := strings.ToLower(item.Title + " " + item.GptSummary)
			if !strings.Contains(text, keyword) {
				continue
			}
			result.Total++
			if len(result.Updates) < searchMaxItems {
				result.Updates = append(result.Updates, item)
			}
		}

		if page >= resp.Pagination.TotalPages {
			break
		}
	}

	return result, nil
}
