package identity

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subsight/core/internal/middleware"
	"github.com/subsight/core/internal/models"
	"github.com/subsight/core/internal/pkg/response"
	"gorm.io/gorm"
)

type Handler struct {
	svc *Service
	db  *gorm.DB
}

func NewHandler(svc *Service, db *gorm.DB) *Handler {
	return &Handler{svc: svc, db: db}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/user", authMW, h.current)

	tok := rg.Group("/user/tokens", authMW)
	tok.GET("", h.listTokens)
	tok.POST("", h.createToken)
	tok.DELETE("/:id", h.deleteToken)
}

type createTokenDTO struct {
	Name      string     `json:"name"`
	ExpiredAt *time.Time `json:"expiredAt"`
}

func (h *Handler) listTokens(c *gin.Context) {
	tokens, err := h.svc.ListTokens(middleware.CurrentSubject(c))
	if err != nil {
		response.InternalError(c, "Failed to list tokens", err)
		return
	}
	response.OK(c, gin.H{"tokens": tokens})
}

func (h *Handler) createToken(c *gin.Context) {
	var dto createTokenDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, err := h.svc.CreateToken(middleware.CurrentSubject(c), dto.Name, dto.ExpiredAt)
	if err != nil {
		response.InternalError(c, "Failed to create token", err)
		return
	}
	response.Created(c, token)
}

func (h *Handler) deleteToken(c *gin.Context) {
	if err := h.svc.DeleteToken(middleware.CurrentSubject(c), c.Param("id")); err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			response.NotFound(c, "Token not found")
			return
		}
		response.InternalError(c, "Failed to delete token", err)
		return
	}
	response.OK(c, gin.H{"success": true})
}

// GET /user — the resolved identity plus its analysis count.
func (h *Handler) current(c *gin.Context) {
	u, err := h.svc.GetByExternalID(middleware.CurrentSubject(c))
	if err != nil {
		response.InternalError(c, "Failed to resolve user", err)
		return
	}
	if u == nil {
		response.NotFound(c, "User not found")
		return
	}

	var count int64
	if err := h.db.Model(&models.SavedAnalysisModel{}).Where("user_id = ?", u.ID).Count(&count).Error; err != nil {
		response.InternalError(c, "Failed to resolve user", err)
		return
	}
	response.OK(c, gin.H{"user": u, "analysisCount": count})
}
