package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chart-race/internal/models"
)

// StatsHandler reports on the stored catalogue and past play-throughs.
type StatsHandler struct {
	db *gorm.DB
}

func NewStatsHandler(db *gorm.DB) *StatsHandler {
	return &StatsHandler{db: db}
}

type statusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// GetStats returns aggregated dashboard statistics.
func (h *StatsHandler) GetStats(c *gin.Context) {
	var totalTracks, totalSources int64
	h.db.Model(&models.Track{}).Count(&totalTracks)
	h.db.Model(&models.Track{}).Distinct("source").Count(&totalSources)

	var runs []statusCount
	if err := h.db.Model(&models.PlayThrough{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&runs).Error; err != nil {
		slog.Error("failed to count play-throughs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	var last models.PlayThrough
	lastRun := any(nil)
	if err := h.db.Order("started_at DESC").Order("id DESC").First(&last).Error; err == nil {
		lastRun = last
	}

	c.JSON(http.StatusOK, gin.H{
		"stats": gin.H{
			"total_tracks":  totalTracks,
			"total_sources": totalSources,
			"play_throughs": runs,
		},
		"last_run": lastRun,
	})
}

// GetHistory lists recent play-throughs, newest first.
func (h *StatsHandler) GetHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	if limit > 100 {
		limit = 100
	}

	var runs []models.PlayThrough
	if err := h.db.Order("started_at DESC").Order("id DESC").Limit(limit).Find(&runs).Error; err != nil {
		slog.Error("failed to fetch play-throughs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": runs})
}
