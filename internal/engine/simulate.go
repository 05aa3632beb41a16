package engine

import (
	"context"
	"fmt"
	"io"
	"sync"

	"chart-race/internal/models"
	"chart-race/internal/race"
	"chart-race/internal/render"
)

// Simulate plays the dataset once and prints every frame to w. No database,
// no network. It returns after the final frame.
func Simulate(ctx context.Context, w io.Writer, tracks []models.Track, opts ...race.Option) error {
	fmt.Fprintf(w, "\n--- 🧪 RACE SIMULATION ---\n")
	fmt.Fprintf(w, "%d tracks\n", len(tracks))

	finished := make(chan struct{})
	var once sync.Once
	console := render.NewConsole(w)
	renderer := render.Func(func(ctx context.Context, frame race.Frame, diff race.Diff) error {
		err := console.RenderFrame(ctx, frame, diff)
		if frame.Final {
			once.Do(func() { close(finished) })
		}
		return err
	})

	seq := race.New(tracks, renderer, opts...)
	if seq.YearCount() == 0 {
		fmt.Fprintln(w, "Nothing to play: the dataset has no usable rows.")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- seq.Run(ctx) }()

	if _, err := seq.Play(ctx); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
