package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/StockScout/internal/models"
	"github.com/dyike/StockScout/internal/storage/sqlite"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	insightStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	stanceStyles = map[models.Stance]lipgloss.Style{
		models.StanceBuy:  successStyle.Bold(true),
		models.StanceSell: errorStyle.Bold(true),
		models.StanceHold: warnStyle.Bold(true),
	}
)

func printEvent(ev models.LogEvent) {
	line := ev.Message
	if ev.Agent != "" {
		line = fmt.Sprintf("[%s] %s", ev.Agent, line)
	}
	switch ev.Kind {
	case models.EventError:
		fmt.Println(errorStyle.Render("✗ " + line))
	case models.EventWarning:
		fmt.Println(warnStyle.Render("! " + line))
	case models.EventSuccess:
		fmt.Println(successStyle.Render("✓ " + line))
	case models.EventThinking:
		fmt.Println(dimStyle.Render("… " + line))
	default:
		fmt.Println(dimStyle.Render("• " + line))
	}
}

func printResponse(resp *models.AnalysisResponse) {
	fmt.Println()
	fmt.Println(titleStyle.Render("Analysis Results"))

	for _, insight := range resp.Insights {
		fmt.Println(insightStyle.Render(renderInsight(insight)))
	}

	for _, e := range resp.Errors {
		if e.Ticker != "" {
			fmt.Println(errorStyle.Render(fmt.Sprintf("✗ %s: %s (%s)", e.Ticker, e.Message, e.Kind)))
		} else {
			fmt.Println(errorStyle.Render(fmt.Sprintf("✗ %s (%s)", e.Message, e.Kind)))
		}
	}

	fmt.Println(dimStyle.Render(fmt.Sprintf("Analyzed %d stock(s) in %.0f ms",
		len(resp.TickersAnalyzed), resp.TotalLatencyMS)))
}

func renderInsight(insight models.TickerInsight) string {
	var b strings.Builder

	stance := stanceStyles[insight.Stance].Render(strings.ToUpper(string(insight.Stance)))
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%s)", insight.CompanyName, insight.Ticker)))
	b.WriteString(fmt.Sprintf("  %s, %s confidence\n", stance, insight.Confidence))

	if !insight.CurrentPrice.IsZero() {
		b.WriteString(fmt.Sprintf("Price: $%s", insight.CurrentPrice.StringFixed(2)))
		if insight.Trend != "" {
			b.WriteString(fmt.Sprintf("  Trend: %s", insight.Trend))
		}
		b.WriteString("\n")
	}
	if insight.Summary != "" {
		b.WriteString(insight.Summary + "\n")
	}
	if len(insight.KeyDrivers) > 0 {
		b.WriteString("Drivers: " + strings.Join(insight.KeyDrivers, "; ") + "\n")
	}
	if len(insight.Risks) > 0 {
		b.WriteString("Risks: " + strings.Join(insight.Risks, "; ") + "\n")
	}
	if len(insight.Catalysts) > 0 {
		b.WriteString("Catalysts: " + strings.Join(insight.Catalysts, "; ") + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func printHistory(records []sqlite.RequestRecord) {
	if len(records) == 0 {
		fmt.Println(dimStyle.Render("No analysis runs recorded yet."))
		return
	}

	fmt.Println(titleStyle.Render("Recent Analyses"))
	for _, rec := range records {
		status := successStyle.Render("ok")
		if !rec.Success {
			status = errorStyle.Render("failed")
		}
		fmt.Printf("%s  %s  %s\n",
			dimStyle.Render(rec.CompletedAt),
			status,
			rec.Query)
		if len(rec.TickersAnalyzed) > 0 {
			fmt.Println("    " + dimStyle.Render(strings.Join(rec.TickersAnalyzed, ", ")))
		}
	}
}
