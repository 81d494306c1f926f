// ABOUTME: Terminal dashboard rendering
// ABOUTME: Provides an ASCII overview of leads by stage, source and funnel
package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harperreed/leadpipe/crm"
	"github.com/harperreed/leadpipe/models"
)

// RenderDashboard draws stats as text. Stage bars follow the stage order of
// funnels; stage names shared across funnels are shown once.
func RenderDashboard(stats crm.Stats, funnels []models.Funnel) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  LEADPIPE DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("LEADS BY STAGE\n")
	var stageOrder []string
	seen := make(map[string]bool)
	for _, f := range funnels {
		for _, s := range f.SortedStages() {
			if !seen[s.Name] {
				seen[s.Name] = true
				stageOrder = append(stageOrder, s.Name)
			}
		}
	}
	renderBars(&out, stageOrder, stats.ByStage)
	out.WriteString("\n")

	out.WriteString("LEADS BY SOURCE\n")
	renderBars(&out, []string{models.SourceManual, models.SourceImport, models.SourceWebhook}, stats.BySource)
	out.WriteString("\n")

	out.WriteString("FUNNEL DISTRIBUTION\n")
	names := make([]string, 0, len(stats.ByFunnel))
	for name := range stats.ByFunnel {
		names = append(names, name)
	}
	sort.Strings(names)
	renderBars(&out, names, stats.ByFunnel)
	out.WriteString("\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  👤 %d leads  🪜 %d funnels  📋 %d stages  💬 %d messages  📱 %d connected\n",
		stats.TotalLeads, stats.TotalFunnels, stats.TotalStages, stats.TotalMessages, stats.ConnectedUsers))

	return out.String()
}

func renderBars(out *strings.Builder, order []string, counts map[string]int) {
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, name := range order {
		count := counts[name]
		barLength := (count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		out.WriteString(fmt.Sprintf("  %-15s %s  %2d\n", name, bar, count))
	}
}
