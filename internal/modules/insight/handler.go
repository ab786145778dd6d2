package insight

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/subsight/core/internal/middleware"
	"github.com/subsight/core/internal/modules/reddit"
	"github.com/subsight/core/internal/pkg/response"
	"go.uber.org/zap"
)

type Handler struct {
	fetcher   *reddit.Client
	extractor *Extractor
	svc       *Service
	logger    *zap.Logger
}

func NewHandler(fetcher *reddit.Client, extractor *Extractor, svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{fetcher: fetcher, extractor: extractor, svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/analyze", authMW, h.analyze)

	g := rg.Group("/insights", authMW)
	g.POST("", h.save)
	g.GET("/list", h.list)
	g.GET("/:id", h.get)
	g.DELETE("", h.delete)
}

// GET /analyze?url= — fetch, extract, save as a best effort. A failed save
// never fails the analysis; the caller already holds the result.
func (h *Handler) analyze(c *gin.Context) {
	url := strings.TrimSpace(c.Query("url"))
	if url == "" {
		response.BadRequest(c, "URL parameter required")
		return
	}
	if !reddit.IsValidURL(url) {
		response.BadRequest(c, "Invalid Reddit URL")
		return
	}

	thread, err := h.fetcher.Fetch(c.Request.Context(), url)
	if err != nil {
		var upstream *reddit.UpstreamError
		switch {
		case errors.Is(err, reddit.ErrInvalidURL):
			response.BadRequest(c, "Invalid Reddit URL")
		case errors.Is(err, reddit.ErrPostNotFound):
			response.NotFound(c, "Post content not found")
		case errors.As(err, &upstream):
			response.InternalError(c, "Failed to fetch data from Reddit", upstream)
		default:
			response.InternalError(c, "Internal server error", err)
		}
		return
	}

	result, err := h.extractor.Extract(c.Request.Context(), thread)
	if err != nil {
		response.InternalError(c, "Failed to analyze discussion", err)
		return
	}

	subject := middleware.CurrentSubject(c)
	if _, err := h.svc.Save(subject, middleware.CurrentEmail(c), url, result.Title, *result); err != nil {
		h.logger.Warn("best-effort save after analyze failed",
			zap.String("subject", subject),
			zap.String("url", url),
			zap.Error(err),
		)
	}

	response.OK(c, result)
}

// POST /insights — persist an analysis the client already holds.
func (h *Handler) save(c *gin.Context) {
	var dto saveAnalysisDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(dto.URL) == "" || dto.Insights == nil {
		response.BadRequest(c, "Missing required fields")
		return
	}

	id, err := h.svc.Save(middleware.CurrentSubject(c), middleware.CurrentEmail(c), dto.URL, dto.Title, *dto.Insights)
	if err != nil {
		response.InternalError(c, "Failed to save insights", err)
		return
	}
	response.Created(c, savedResponse{Success: true, ID: id})
}

// GET /insights/:id — owner-only point lookup.
func (h *Handler) get(c *gin.Context) {
	row, err := h.svc.Get(c.Param("id"), middleware.CurrentSubject(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(c, "Not found")
		case errors.Is(err, ErrForbidden):
			response.Forbidden(c, "Forbidden")
		default:
			response.InternalError(c, "Failed to fetch insight", err)
		}
		return
	}
	response.OK(c, gin.H{"response": row})
}

// GET /insights/list — the full owned list, newest first. When any filter or
// page parameter is present the filter contract is applied server-side and
// pagination metadata is included.
func (h *Handler) list(c *gin.Context) {
	rows, err := h.svc.List(middleware.CurrentSubject(c))
	if err != nil {
		response.InternalError(c, "Failed to fetch insights", err)
		return
	}

	keyword := c.Query("keyword")
	startRaw := c.Query("start")
	endRaw := c.Query("end")
	pageRaw := c.Query("page")
	if keyword == "" && startRaw == "" && endRaw == "" && pageRaw == "" {
		response.OK(c, listResponse{Responses: rows})
		return
	}

	start, err := ParseStartDate(startRaw)
	if err != nil {
		response.BadRequest(c, "Invalid start date, expected YYYY-MM-DD")
		return
	}
	end, err := ParseEndDate(endRaw)
	if err != nil {
		response.BadRequest(c, "Invalid end date, expected YYYY-MM-DD")
		return
	}

	filtered := ListFilter{Keyword: keyword, StartDate: start, EndDate: end}.Apply(rows)
	page := 1
	if pageRaw != "" {
		if n, convErr := parsePositiveInt(pageRaw); convErr == nil {
			page = n
		}
	}
	paged, pagination := Page(filtered, page)
	response.OK(c, listResponse{Responses: paged, Pagination: &pagination})
}

// DELETE /insights — owner-only hard delete.
func (h *Handler) delete(c *gin.Context) {
	var dto deleteAnalysisDTO
	if err := c.ShouldBindJSON(&dto); err != nil || strings.TrimSpace(dto.ID) == "" {
		response.BadRequest(c, "Missing insight ID")
		return
	}

	if err := h.svc.Delete(dto.ID, middleware.CurrentSubject(c)); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "Insight not found")
			return
		}
		response.InternalError(c, "Failed to delete insight", err)
		return
	}
	response.OK(c, gin.H{"success": true})
}

func parsePositiveInt(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errors.New("not a number")
		}
		n = n*10 + int(r-'0')
		if n > 1<<20 {
			return 0, errors.New("out of range")
		}
	}
	if n < 1 {
		return 0, errors.New("not positive")
	}
	return n, nil
}
