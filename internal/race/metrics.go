package race

import "github.com/prometheus/client_golang/prometheus"

var (
	framesEmitted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "race_frames_emitted_total", Help: "Frames handed to the renderer"},
	)
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "race_commands_total", Help: "Control commands processed"},
		[]string{"command"},
	)
	staleTicks = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "race_stale_ticks_total", Help: "Timer fires dropped after pause/restart/reset"},
	)
	renderErrors = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "race_render_errors_total", Help: "Renderer failures"},
	)
	currentYearIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "race_year_index", Help: "Index of the last emitted year"},
	)
)

func RegisterMetrics() {
	prometheus.MustRegister(framesEmitted, commandsTotal, staleTicks, renderErrors, currentYearIndex)
}
