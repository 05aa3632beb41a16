package race

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownCommand = errors.New("race: unknown command")

// Command is a user-facing control action.
type Command int

const (
	CommandPlay Command = iota + 1
	CommandPause
	CommandToggle
	CommandReset
)

func (c Command) String() string {
	switch c {
	case CommandPlay:
		return "play"
	case CommandPause:
		return "pause"
	case CommandToggle:
		return "toggle"
	case CommandReset:
		return "reset"
	default:
		return fmt.Sprintf("command(%d)", int(c))
	}
}

func ParseCommand(s string) (Command, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "play", "start":
		return CommandPlay, nil
	case "pause":
		return CommandPause, nil
	case "toggle":
		return CommandToggle, nil
	case "reset", "stop":
		return CommandReset, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
	}
}

// State is the sequencer's position. Transitions never mutate the receiver.
//
// Generation changes on every Play, Pause and Reset; a scheduled advance
// only applies when it carries the current generation.
type State struct {
	YearIndex  int    `json:"year_index"`
	Playing    bool   `json:"playing"`
	Finished   bool   `json:"finished"`
	Generation uint64 `json:"generation"`
}

// Label is the text of the toggle control for this state.
func (s State) Label() string {
	if s.Playing {
		return "Pause"
	}
	return "Play"
}

// Apply returns the state after cmd on a dataset of yearCount years, and
// whether the frame at the new YearIndex has to be emitted now.
//
// Play always restarts from year index 0, also when coming out of a pause.
func (s State) Apply(cmd Command, yearCount int) (State, bool) {
	switch cmd {
	case CommandPlay:
		if yearCount == 0 {
			return s, false
		}
		return State{YearIndex: 0, Playing: true, Generation: s.Generation + 1}, true
	case CommandPause:
		if !s.Playing {
			return s, false
		}
		return State{YearIndex: s.YearIndex, Playing: false, Generation: s.Generation + 1}, false
	case CommandToggle:
		if s.Playing {
			return s.Apply(CommandPause, yearCount)
		}
		return s.Apply(CommandPlay, yearCount)
	case CommandReset:
		return State{Generation: s.Generation + 1}, false
	default:
		return s, false
	}
}

// Advance handles a timer fire scheduled under generation gen. It reports
// false for stale fires (paused, restarted or reset since) and when there is
// no next year.
func (s State) Advance(gen uint64, yearCount int) (State, bool) {
	if gen != s.Generation || !s.Playing {
		return s, false
	}
	if s.YearIndex+1 >= yearCount {
		return s.Finish(), false
	}
	s.YearIndex++
	return s, true
}

// Finish marks the play-through as complete after the last frame.
func (s State) Finish() State {
	s.Playing = false
	s.Finished = true
	return s
}
