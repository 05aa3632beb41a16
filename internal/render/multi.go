package render

import (
	"context"
	"errors"

	"chart-race/internal/race"
)

// Multi fans a frame out to several renderers. Every renderer is called even
// when an earlier one fails.
type Multi []race.Renderer

func (m Multi) RenderFrame(ctx context.Context, frame race.Frame, diff race.Diff) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.RenderFrame(ctx, frame, diff); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Func adapts a plain function to race.Renderer.
type Func func(ctx context.Context, frame race.Frame, diff race.Diff) error

func (f Func) RenderFrame(ctx context.Context, frame race.Frame, diff race.Diff) error {
	return f(ctx, frame, diff)
}
