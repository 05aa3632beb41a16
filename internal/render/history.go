package render

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"chart-race/internal/models"
	"chart-race/internal/race"
)

const historyQueueSize = 64

var ErrHistoryBacklog = errors.New("history: event queue full")

type historyEvent struct {
	frame *race.Frame
	state *race.State
	at    time.Time
}

// History persists one PlayThrough row per run. RenderFrame and ObserveState
// only enqueue; Run does the database work on its own goroutine.
type History struct {
	db     *gorm.DB
	now    func() time.Time
	events chan historyEvent

	current string // run id, owned by Run
}

func NewHistory(db *gorm.DB) *History {
	return &History{
		db:     db,
		now:    time.Now,
		events: make(chan historyEvent, historyQueueSize),
	}
}

func (h *History) RenderFrame(ctx context.Context, frame race.Frame, diff race.Diff) error {
	return h.enqueue(historyEvent{frame: &frame, at: h.now()})
}

// ObserveState has the signature of a sequencer observer.
func (h *History) ObserveState(st race.State) {
	if err := h.enqueue(historyEvent{state: &st, at: h.now()}); err != nil {
		log.Printf("⚠️ History: %v", err)
	}
}

func (h *History) enqueue(ev historyEvent) error {
	select {
	case h.events <- ev:
		return nil
	default:
		historyDropped.Inc()
		return ErrHistoryBacklog
	}
}

// Run drains the queue until ctx is cancelled.
func (h *History) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.events:
			var err error
			if ev.frame != nil {
				err = h.recordFrame(*ev.frame, ev.at)
			} else {
				err = h.recordState(*ev.state, ev.at)
			}
			if err != nil {
				log.Printf("❌ History: %v", err)
			}
		}
	}
}

// Recent returns the latest play-throughs, newest first.
func (h *History) Recent(limit int) ([]models.PlayThrough, error) {
	var runs []models.PlayThrough
	err := h.db.Order("started_at DESC").Order("id DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

func (h *History) recordFrame(frame race.Frame, at time.Time) error {
	if frame.YearIndex == 0 {
		if err := h.startRun(frame.RunID, at); err != nil {
			return err
		}
	}

	updates := map[string]interface{}{
		"frames_emitted": gorm.Expr("frames_emitted + 1"),
		"last_year":      frame.Year,
		"updated_at":     at,
	}
	if frame.Final {
		updates["status"] = models.PlayThroughFinished
		updates["finished_at"] = at
	}
	return h.db.Model(&models.PlayThrough{}).Where("run_id = ?", frame.RunID).Updates(updates).Error
}

// startRun closes the run that was still going and opens a new one.
func (h *History) startRun(runID string, at time.Time) error {
	if h.current != "" && h.current != runID {
		err := h.db.Model(&models.PlayThrough{}).
			Where("run_id = ? AND status = ?", h.current, models.PlayThroughPlaying).
			Updates(map[string]interface{}{"status": models.PlayThroughReset, "updated_at": at}).Error
		if err != nil {
			return err
		}
	}

	h.current = runID
	return h.db.Create(&models.PlayThrough{
		RunID:     runID,
		StartedAt: at,
		Status:    models.PlayThroughPlaying,
	}).Error
}

func (h *History) recordState(st race.State, at time.Time) error {
	if h.current == "" || st.Playing || st.Finished {
		return nil
	}

	status := models.PlayThroughPaused
	if st.YearIndex == 0 {
		status = models.PlayThroughReset
	}
	return h.db.Model(&models.PlayThrough{}).
		Where("run_id = ? AND status = ?", h.current, models.PlayThroughPlaying).
		Updates(map[string]interface{}{"status": status, "updated_at": at}).Error
}
