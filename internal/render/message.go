package render

import (
	"time"

	"chart-race/internal/race"
)

const (
	MessageHello = "hello"
	MessageFrame = "frame"
	MessageState = "state"
	MessageError = "error"
)

// Message is the envelope of everything the hub writes to a websocket client.
type Message struct {
	Type     string     `json:"type" jsonschema:"enum=hello,enum=frame,enum=state,enum=error"`
	ClientID string     `json:"client_id,omitempty" jsonschema:"description=Assigned on connect"`
	Frame    *FrameView `json:"frame,omitempty"`
	State    *StateView `json:"state,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// ClientCommand is what a websocket client sends to drive the race.
type ClientCommand struct {
	Command string `json:"command" jsonschema:"enum=play,enum=pause,enum=toggle,enum=reset"`
}

type Bar struct {
	Rank        int     `json:"rank"`
	TrackName   string  `json:"track_name"`
	Popularity  float64 `json:"popularity"`
	ReleaseDate string  `json:"release_date" jsonschema:"format=date"`
}

// FrameView is a frame flattened for drawing: ranked bars plus the
// enter/update/exit sets and how long the bar transition should take.
type FrameView struct {
	RunID        string   `json:"run_id"`
	Year         int      `json:"year"`
	YearIndex    int      `json:"year_index"`
	YearCount    int      `json:"year_count"`
	Final        bool     `json:"final"`
	Bars         []Bar    `json:"bars"`
	Enter        []string `json:"enter"`
	Update       []string `json:"update"`
	Exit         []string `json:"exit"`
	TransitionMs int64    `json:"transition_ms"`
}

type StateView struct {
	YearIndex int    `json:"year_index"`
	Playing   bool   `json:"playing"`
	Finished  bool   `json:"finished"`
	Label     string `json:"label" jsonschema:"enum=Play,enum=Pause"`
}

func NewFrameView(frame race.Frame, diff race.Diff, transition time.Duration) *FrameView {
	bars := make([]Bar, len(frame.Tracks))
	for i, t := range frame.Tracks {
		bars[i] = Bar{
			Rank:        i + 1,
			TrackName:   t.TrackName,
			Popularity:  t.Popularity,
			ReleaseDate: t.ReleaseDate.UTC().Format("2006-01-02"),
		}
	}
	return &FrameView{
		RunID:        frame.RunID,
		Year:         frame.Year,
		YearIndex:    frame.YearIndex,
		YearCount:    frame.YearCount,
		Final:        frame.Final,
		Bars:         bars,
		Enter:        diff.Enter,
		Update:       diff.Update,
		Exit:         diff.Exit,
		TransitionMs: transition.Milliseconds(),
	}
}

func NewStateView(st race.State) *StateView {
	return &StateView{
		YearIndex: st.YearIndex,
		Playing:   st.Playing,
		Finished:  st.Finished,
		Label:     st.Label(),
	}
}
