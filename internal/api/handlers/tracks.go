package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chart-race/internal/models"
)

// TrackHandler exposes the imported datasets.
type TrackHandler struct {
	db *gorm.DB
}

func NewTrackHandler(db *gorm.DB) *TrackHandler {
	return &TrackHandler{db: db}
}

// LibraryTrack keeps bookkeeping columns out of the listing.
type LibraryTrack struct {
	TrackName   string    `json:"track_name"`
	ReleaseDate time.Time `json:"release_date"`
	Popularity  float64   `json:"popularity"`
	Source      string    `json:"source"`
	Position    int       `json:"position"`
}

// GetTracks returns a paginated list of stored tracks.
func (h *TrackHandler) GetTracks(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	search := c.Query("search")
	source := c.Query("source")
	sortBy := c.DefaultQuery("sort", "position")

	if limit < 1 || limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	query := h.db.Model(&models.Track{})
	if source != "" {
		query = query.Where("source = ?", source)
	}
	if search != "" {
		query = query.Where("LOWER(track_name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	query.Count(&total)

	switch sortBy {
	case "popularity":
		query = query.Order("popularity DESC").Order("position ASC")
	case "release":
		query = query.Order("release_date ASC").Order("position ASC")
	default:
		query = query.Order("source ASC").Order("position ASC")
	}

	var tracks []LibraryTrack
	result := query.Select("track_name, release_date, popularity, source, position").
		Limit(limit).
		Offset(offset).
		Find(&tracks)
	if result.Error != nil {
		slog.Error("Failed to fetch tracks", "error", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": tracks,
		"meta": gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

type sourceSummary struct {
	Source string `json:"source"`
	Tracks int64  `json:"tracks"`
}

// GetSources lists every imported dataset with its row count.
func (h *TrackHandler) GetSources(c *gin.Context) {
	var sources []sourceSummary
	err := h.db.Model(&models.Track{}).
		Select("source, COUNT(*) AS tracks").
		Group("source").
		Order("source").
		Scan(&sources).Error
	if err != nil {
		slog.Error("Failed to list sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sources})
}
