// Package report renders the aggregate run summary (spec.md §4.7,
// SPEC_FULL.md §4.9): a styled console table plus an optional JSON
// dump. Reuses this codebase's original summary-card field set,
// re-rendered with charmbracelet/lipgloss instead of an HTML/Chart.js
// template — dropped per SPEC_FULL.md §4.9 since a headless load
// generator has no browser to open the report in.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/riftload/riftload/internal/coordinator"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00d9ff"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	valueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4757"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(1, 2)
)

// JSONReport is the on-disk shape written by SaveJSON — a flat,
// stable encoding of coordinator.AggregateReport.
type JSONReport struct {
	GeneratedAt    string  `json:"generated_at"`
	TotalRPS       float64 `json:"total_rps"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Success        uint64  `json:"success"`
	Error          uint64  `json:"error"`
	SuccessRate    float64 `json:"success_rate"`
	AvgRTTMillis   float64 `json:"avg_rtt_ms"`
	TotalRetry     uint64  `json:"total_retry"`
	WorkersMissing int     `json:"workers_missing"`
}

func toJSONReport(r coordinator.AggregateReport) JSONReport {
	return JSONReport{
		GeneratedAt:    time.Now().Format(time.RFC3339),
		TotalRPS:       r.TotalRPS,
		ElapsedSeconds: r.Elapsed.Seconds(),
		Success:        r.Success,
		Error:          r.Error,
		SuccessRate:    r.SuccessRate(),
		AvgRTTMillis:   r.AvgRTTMillis(),
		TotalRetry:     r.TotalRetry,
		WorkersMissing: r.WorkersMissing,
	}
}

// PrintConsole renders a boxed summary to stdout.
func PrintConsole(r coordinator.AggregateReport) {
	var rows []string
	rows = append(rows, titleStyle.Render("riftload run summary"))
	rows = append(rows, "")
	rows = append(rows, row("Total RPS", fmt.Sprintf("%.1f", r.TotalRPS)))
	rows = append(rows, row("Elapsed", r.Elapsed.Round(time.Millisecond).String()))
	rows = append(rows, row("Success", fmt.Sprintf("%d", r.Success)))
	rows = append(rows, row("Error", fmt.Sprintf("%d", r.Error)))
	rows = append(rows, row("Success rate", fmt.Sprintf("%.2f%%", r.SuccessRate())))
	rows = append(rows, row("Avg RTT", fmt.Sprintf("%.2fms", r.AvgRTTMillis())))
	rows = append(rows, row("Retries", fmt.Sprintf("%d", r.TotalRetry)))
	if r.WorkersMissing > 0 {
		rows = append(rows, errorStyle.Render(fmt.Sprintf("%d worker(s) ended with an error (dial failure, assert_panic or cancellation) and sent no report", r.WorkersMissing)))
	}

	fmt.Println(boxStyle.Render(strings.Join(rows, "\n")))
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-14s", label)) + valueStyle.Render(value)
}

// SaveJSON writes the aggregate report to path as JSON.
func SaveJSON(r coordinator.AggregateReport, path string) error {
	data, err := json.MarshalIndent(toJSONReport(r), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
