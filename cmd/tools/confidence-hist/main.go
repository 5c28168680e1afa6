// Command confidence-hist renders a PNG histogram of pending-alert detection
// confidences fetched from a running camwatch daemon. Useful when calibrating
// analyzer confidence thresholds against real traffic.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/url"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/collision.report/internal/api"
	"github.com/banshee-data/collision.report/internal/httputil"
)

var (
	apiBase = flag.String("api", "http://localhost:8080", "Base URL of the camwatch API")
	status  = flag.String("status", "", "Filter by decision status (pending, approved, rejected)")
	out     = flag.String("out", "confidence.png", "Output PNG path")
	bins    = flag.Int("bins", 20, "Number of histogram bins")
)

func main() {
	flag.Parse()

	client := httputil.NewStandardClient(nil)
	summaries, err := fetchPendingAlerts(client, *apiBase, *status)
	if err != nil {
		log.Fatalf("Failed to fetch pending alerts: %v", err)
	}
	if len(summaries) == 0 {
		log.Fatal("No pending alerts to plot")
	}

	values := plotter.Values(lo.Map(summaries, func(pa api.PendingAlertSummary, _ int) float64 {
		return pa.Confidence
	}))

	if err := renderHistogram(values, *bins, *out); err != nil {
		log.Fatalf("Failed to render histogram: %v", err)
	}

	fmt.Printf("alerts=%d mean=%.3f min=%.3f max=%.3f\n",
		len(values), stat.Mean(values, nil), floats.Min(values), floats.Max(values))
	fmt.Printf("wrote %s\n", *out)
}

func fetchPendingAlerts(client httputil.HTTPClient, base, status string) ([]api.PendingAlertSummary, error) {
	endpoint := base + "/api/pending-alerts"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}

	var summaries []api.PendingAlertSummary
	if err := httputil.GetJSON(client, endpoint, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func renderHistogram(values plotter.Values, bins int, path string) error {
	p := plot.New()
	p.Title.Text = "Pending Alert Confidence"
	p.X.Label.Text = "Confidence"
	p.Y.Label.Text = "Alerts"

	h, err := plotter.NewHist(values, bins)
	if err != nil {
		return err
	}
	p.Add(h)

	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}
