package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/collision.report/internal/httputil"
	"github.com/banshee-data/collision.report/internal/vision"
)

// echartsAssetsPrefix serves the chart JS from the go-echarts asset host.
const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// severitySeries fixes series order and color for the alert scatter, from
// least to most severe.
var severitySeries = []struct {
	name  vision.Severity
	color string
}{
	{vision.SeverityLow, "#9e9e9e"},
	{vision.SeverityMedium, "#ffb300"},
	{vision.SeverityHigh, "#ff7043"},
	{vision.SeverityCritical, "#ff5252"},
}

// handleStreamsChart renders a bar chart of confirmed accident counts per
// stream.
func (s *Server) handleStreamsChart(w http.ResponseWriter, r *http.Request) {
	streams, err := s.db.GetAllStreams()
	if err != nil {
		s.writeError(w, err)
		return
	}

	names := make([]string, 0, len(streams))
	counts := make([]opts.BarData, 0, len(streams))
	for _, stream := range streams {
		names = append(names, stream.Name)
		counts = append(counts, opts.BarData{Value: stream.AccidentCount})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "720px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Accidents by Stream", Subtitle: fmt.Sprintf("streams=%d", len(streams))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).AddSeries("accidents", counts,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleAlertsChart renders pending-alert confidence over time, one series
// per severity.
func (s *Server) handleAlertsChart(w http.ResponseWriter, r *http.Request) {
	pending, err := s.db.ListPendingAlerts("")
	if err != nil {
		s.writeError(w, err)
		return
	}

	bySeverity := make(map[vision.Severity][]opts.ScatterData)
	for _, pa := range pending {
		sev := vision.Severity(pa.Severity)
		bySeverity[sev] = append(bySeverity[sev], opts.ScatterData{
			Value: []interface{}{pa.CreatedAt.UTC().Format(time.RFC3339), pa.Confidence},
		})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Pending Alert Confidence", Theme: "dark", Width: "1200px", Height: "720px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Pending Alert Confidence", Subtitle: fmt.Sprintf("pending=%d", len(pending))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "time", Name: "created (UTC)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "confidence", NameLocation: "middle", NameGap: 30}),
	)

	for _, series := range severitySeries {
		pts := bySeverity[series.name]
		if len(pts) == 0 {
			continue
		}
		scatter.AddSeries(string(series.name), pts,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: series.color}),
		)
	}

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
