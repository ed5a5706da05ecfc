package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yourorg/popularity-vision/internal/models"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Workflow Popularity API"})
}

func (h *Handler) Healthz(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetWorkflows lists popularity rows, optionally narrowed by platform and
// country. An empty result is a 404, matching the contract consumers
// already depend on.
func (h *Handler) GetWorkflows(c *gin.Context) {
	query := h.db.Model(&models.Workflow{})

	if platform := c.Query("platform"); platform != "" {
		query = query.Where("platform = ?", platform)
	}
	if country := c.Query("country"); country != "" {
		query = query.Where("country = ?", country)
	}
	if search := c.Query("q"); search != "" {
		query = query.Where("workflow_name ILIKE ?", "%"+search+"%")
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var workflows []models.Workflow
	err := query.Order("last_updated desc").Limit(limit).Offset((page - 1) * limit).Find(&workflows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(workflows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No workflows found"})
		return
	}

	c.JSON(http.StatusOK, workflows)
}

func (h *Handler) GetWorkflow(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}

	var workflow models.Workflow
	if err := h.db.First(&workflow, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Workflow not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, workflow)
}

// GetPlatformStats returns per-platform row counts and freshness.
func (h *Handler) GetPlatformStats(c *gin.Context) {
	type PlatformStat struct {
		Platform    string `json:"platform"`
		Count       int64  `json:"count"`
		LastUpdated string `json:"last_updated"`
	}

	var stats []PlatformStat
	err := h.db.Raw(`
		SELECT
			platform,
			COUNT(*) as count,
			MAX(last_updated) as last_updated
		FROM workflows
		GROUP BY platform
		ORDER BY count DESC, platform ASC
	`).Scan(&stats).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"platform_stats": stats})
}
