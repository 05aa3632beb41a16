package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chart-race/internal/series"
)

// SeriesHandler serves the static line chart, built once at startup.
type SeriesHandler struct {
	series series.Series
}

func NewSeriesHandler(s series.Series) *SeriesHandler {
	return &SeriesHandler{series: s}
}

func (h *SeriesHandler) GetSeries(c *gin.Context) {
	c.JSON(http.StatusOK, h.series)
}
