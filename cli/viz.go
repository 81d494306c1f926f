// ABOUTME: Visualization CLI commands
// ABOUTME: Pipeline graph generation and the text dashboard
package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/harperreed/leadpipe/app"
	"github.com/harperreed/leadpipe/viz"
)

// VizPipelineCommand generates a funnel pipeline graph.
func VizPipelineCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("viz pipeline", flag.ExitOnError)
	funnelID := fs.String("funnel", "", "Funnel ID (default: all funnels)")
	output := fs.String("output", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	generator := viz.NewGraphGenerator(a.Repo)
	dot, err := generator.GeneratePipelineGraph(*funnelID)
	if err != nil {
		return err
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(dot), 0644)
	}

	fmt.Fprintln(stdout, dot)
	return nil
}

// VizDashboardCommand prints the text dashboard.
func VizDashboardCommand(a *app.App, args []string) error {
	return StatsCommand(a, args)
}
