package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/panel.preview/internal/history"
)

// handleHistoryChart renders a quick line plot (HTML) of a panel's reading
// history using go-echarts. This is a debugging-only endpoint (no auth) to
// eyeball traces without the frontend.
// Query params:
//   - panel_id (required)
//   - tag (optional; defaults to all recorded tags)
func (s *Server) handleHistoryChart(w http.ResponseWriter, r *http.Request) {
	panelID := r.URL.Query().Get("panel_id")
	if panelID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'panel_id' parameter")
		return
	}

	tags := s.hist.Tags(panelID)
	if tag := r.URL.Query().Get("tag"); tag != "" {
		tags = []string{tag}
	}
	if len(tags) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "no history recorded for panel")
		return
	}

	line := charts.NewLine()

	// Use the first tag's suggested range for the Y axis; the chart is a
	// debugging aid, not a dashboard.
	lo, hi := history.SuggestRange(s.hist.Stats(panelID, tags[0]))

	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Panel History", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Reading History", Subtitle: fmt.Sprintf("panel=%s tags=%d", panelID, len(tags))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: lo, Max: hi}),
	)

	// X axis from the longest trace's timestamps.
	var axis []string
	for _, tag := range tags {
		samples := s.hist.Samples(panelID, tag)
		if len(samples) > len(axis) {
			axis = axis[:0]
			for _, sm := range samples {
				axis = append(axis, sm.At.Format(time.TimeOnly))
			}
		}
	}
	line.SetXAxis(axis)

	for _, tag := range tags {
		samples := s.hist.Samples(panelID, tag)
		data := make([]opts.LineData, 0, len(samples))
		for _, sm := range samples {
			data = append(data, opts.LineData{Value: sm.Value})
		}
		line.AddSeries(tag, data, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
