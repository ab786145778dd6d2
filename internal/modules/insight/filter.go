package insight

import (
	"strings"
	"time"

	"github.com/subsight/core/internal/models"
	"github.com/subsight/core/internal/pkg/response"
)

// PageSize is the fixed listing page size.
const PageSize = 12

const dateLayout = "2006-01-02"

// ListFilter is the client-observable filter contract: case-insensitive
// keyword substring on title or URL, plus an inclusive creation-date range.
type ListFilter struct {
	Keyword   string
	StartDate *time.Time // inclusive lower bound (midnight)
	EndDate   *time.Time // inclusive upper bound (last instant of the day)
}

// ParseStartDate parses an inclusive lower bound at midnight. Empty input
// means unbounded.
func ParseStartDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseEndDate parses an inclusive upper bound extended to the last instant
// of that calendar day. Empty input means unbounded.
func ParseEndDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return nil, err
	}
	end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return &end, nil
}

// Apply filters an already-fetched full list. An empty keyword matches all;
// an absent date bound is unbounded on that side.
func (f ListFilter) Apply(items []models.SavedAnalysisModel) []models.SavedAnalysisModel {
	keyword := strings.ToLower(strings.TrimSpace(f.Keyword))

	out := []models.SavedAnalysisModel{}
	for _, item := range items {
		if keyword != "" &&
			!strings.Contains(strings.ToLower(item.Title), keyword) &&
			!strings.Contains(strings.ToLower(item.URL), keyword) {
			continue
		}
		if f.StartDate != nil && item.CreatedAt.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && item.CreatedAt.After(*f.EndDate) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Page slices one page out of a filtered list. Pages are 1-based; an
// out-of-range page yields an empty slice.
func Page(items []models.SavedAnalysisModel, page int) ([]models.SavedAnalysisModel, response.Pagination) {
	if page < 1 {
		page = 1
	}
	total := len(items)
	totalPage := (total + PageSize - 1) / PageSize

	start := (page - 1) * PageSize
	end := start + PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return items[start:end], response.Pagination{
		Total:       total,
		CurrentPage: page,
		TotalPage:   totalPage,
		Size:        PageSize,
		HasNextPage: page < totalPage,
	}
}
