package insight

import (
	"errors"

	"github.com/subsight/core/internal/models"
	"github.com/subsight/core/internal/pkg/response"
)

var (
	// ErrExtraction means the generation call failed or returned output that
	// does not satisfy the insight schema. Never retried.
	ErrExtraction = errors.New("insight extraction failed")
	// ErrNotFound means no saved analysis exists under the given id.
	ErrNotFound = errors.New("analysis not found")
	// ErrForbidden means the analysis exists but belongs to another identity.
	ErrForbidden = errors.New("analysis owned by another identity")
)

type saveAnalysisDTO struct {
	URL      string                `json:"url"`
	Title    string                `json:"title"`
	Insights *models.InsightResult `json:"insights"`
}

type deleteAnalysisDTO struct {
	ID string `json:"id"`
}

type savedResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type listResponse struct {
	Responses  []models.SavedAnalysisModel `json:"responses"`
	Pagination *response.Pagination        `json:"pagination,omitempty"`
}
