package render

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"chart-race/internal/race"
)

// Console prints every frame as a ranked table. Used by `race simulate`.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) RenderFrame(ctx context.Context, frame race.Frame, diff race.Diff) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entered := make(map[string]bool, len(diff.Enter))
	for _, name := range diff.Enter {
		entered[name] = true
	}

	fmt.Fprintf(c.w, "\n--- 📊 %d (%d/%d) ---\n", frame.Year, frame.YearIndex+1, frame.YearCount)

	w := tabwriter.NewWriter(c.w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "RANK\t\tTRACK\tPOPULARITY\tRELEASED")
	fmt.Fprintln(w, "----\t\t-----\t----------\t--------")
	for i, t := range frame.Tracks {
		marker := "="
		if entered[t.TrackName] {
			marker = "+"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.0f\t%s\n",
			i+1,
			marker,
			truncate(t.TrackName, 40),
			t.Popularity,
			t.ReleaseDate.UTC().Format("2006-01-02"),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(diff.Exit) > 0 {
		fmt.Fprintf(c.w, "out: %s\n", strings.Join(diff.Exit, ", "))
	}
	if frame.Final {
		fmt.Fprintln(c.w, "\n🏁 Race complete.")
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}
