// ABOUTME: Web server subcommand
// ABOUTME: Serves the dashboard, webhook intake and live events until interrupted
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/leadpipe/app"
	"github.com/harperreed/leadpipe/web"
)

// WebCommand starts the web server.
func WebCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("web", flag.ExitOnError)
	addr := fs.String("addr", a.Config.WebAddr, "Listen address")
	_ = fs.Parse(args)

	server, err := web.NewServer(a.Repo, a.Log)
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(stdout, "Serving on http://localhost%s (Ctrl+C to stop)\n", *addr)
	return server.Start(ctx, *addr)
}
