package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chart-race/internal/race"
	"chart-race/internal/render"
)

// RaceController is what the HTTP layer needs from the sequencer.
type RaceController interface {
	Send(ctx context.Context, cmd race.Command) (race.State, error)
	State() race.State
	Years() []int
	Frame(index int) (race.Frame, error)
}

type RaceHandler struct {
	race RaceController
}

func NewRaceHandler(rc RaceController) *RaceHandler {
	return &RaceHandler{race: rc}
}

// GetState returns the play state and the label of the play/pause control.
func (h *RaceHandler) GetState(c *gin.Context) {
	st := h.race.State()
	years := h.race.Years()

	resp := gin.H{
		"state":      render.NewStateView(st),
		"year_count": len(years),
	}
	if st.YearIndex < len(years) {
		resp["year"] = years[st.YearIndex]
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RaceHandler) GetYears(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.race.Years()})
}

// GetFrame returns one frame with the diff against the frame before it, as
// a play-through would have drawn it.
func (h *RaceHandler) GetFrame(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid frame index"})
		return
	}

	frame, err := h.race.Frame(index)
	if err != nil {
		if errors.Is(err, race.ErrNoFrames) || errors.Is(err, race.ErrIndexOutOfRange) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		slog.Error("failed to build frame", "index", index, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Frame error"})
		return
	}

	var previous []string
	if index > 0 {
		if prev, err := h.race.Frame(index - 1); err == nil {
			previous = prev.Keys()
		}
	}

	c.JSON(http.StatusOK, render.NewFrameView(frame, race.Reconcile(previous, frame.Keys()), 0))
}

// Control applies play, pause, toggle or reset.
func (h *RaceHandler) Control(c *gin.Context) {
	cmd, err := race.ParseCommand(c.Param("command"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st, err := h.race.Send(c.Request.Context(), cmd)
	if err != nil {
		slog.Error("race command failed", "command", cmd.String(), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Race is not running"})
		return
	}

	slog.Info("race command", "command", cmd.String(), "user", c.GetString("user_id"), "playing", st.Playing)
	c.JSON(http.StatusOK, gin.H{"state": render.NewStateView(st)})
}
