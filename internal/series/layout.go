package series

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type Margin struct {
	Top    int `yaml:"top" json:"top"`
	Right  int `yaml:"right" json:"right"`
	Bottom int `yaml:"bottom" json:"bottom"`
	Left   int `yaml:"left" json:"left"`
}

// Layout holds the drawing constants of the line chart.
type Layout struct {
	Width             int    `yaml:"width" json:"width"`
	Height            int    `yaml:"height" json:"height"`
	Margin            Margin `yaml:"margin" json:"margin"`
	XLabel            string `yaml:"x_label" json:"x_label"`
	YLabel            string `yaml:"y_label" json:"y_label"`
	YTickCount        int    `yaml:"y_tick_count" json:"y_tick_count"`
	LineTransitionMs  int    `yaml:"line_transition_ms" json:"line_transition_ms"`
	HoverTransitionMs int    `yaml:"hover_transition_ms" json:"hover_transition_ms"`
	MarkerRadius      int    `yaml:"marker_radius" json:"marker_radius"`
	MarkerHoverRadius int    `yaml:"marker_hover_radius" json:"marker_hover_radius"`
}

func DefaultLayout() Layout {
	return Layout{
		Width:             1500,
		Height:            600,
		Margin:            Margin{Top: 50, Right: 30, Bottom: 70, Left: 60},
		XLabel:            "Release Date",
		YLabel:            "Popularity",
		YTickCount:        DefaultYTickCount,
		LineTransitionMs:  1500,
		HoverTransitionMs: 200,
		MarkerRadius:      6,
		MarkerHoverRadius: 8,
	}
}

// LoadLayout reads a YAML layout over the defaults; keys missing from the
// file keep their default value. An empty path returns the defaults.
func LoadLayout(path string) (Layout, error) {
	layout := DefaultLayout()
	if path == "" {
		return layout, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return layout, err
	}
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return layout, fmt.Errorf("layout %s: %w", path, err)
	}
	if err := layout.Validate(); err != nil {
		return layout, fmt.Errorf("layout %s: %w", path, err)
	}

	log.Printf("📐 Layout loaded from %s (%dx%d)", path, layout.Width, layout.Height)
	return layout, nil
}

func (l Layout) Validate() error {
	if l.InnerWidth() <= 0 || l.InnerHeight() <= 0 {
		return fmt.Errorf("margins leave no room to draw in %dx%d", l.Width, l.Height)
	}
	if l.MarkerRadius < 0 || l.MarkerHoverRadius < 0 {
		return fmt.Errorf("marker radius must not be negative")
	}
	return nil
}

func (l Layout) InnerWidth() int {
	return l.Width - l.Margin.Left - l.Margin.Right
}

func (l Layout) InnerHeight() int {
	return l.Height - l.Margin.Top - l.Margin.Bottom
}
