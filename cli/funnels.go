// ABOUTME: Funnel and stage CLI commands
// ABOUTME: List, create, rename, delete funnels and edit their stages
package cli

import (
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/harperreed/leadpipe/app"
	"github.com/harperreed/leadpipe/crm"
	"github.com/harperreed/leadpipe/models"
)

// ListFunnelsCommand lists the funnels visible to the current user.
func ListFunnelsCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("funnels", flag.ExitOnError)
	_ = fs.Parse(args)

	funnels := a.Repo.Funnels()
	if u := a.Session.CurrentUser(); u != nil {
		funnels = a.Repo.FunnelsForUser(u)
	}
	if len(funnels) == 0 {
		fmt.Fprintln(stdout, "No funnels found")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTAGES\tLEADS\tWEBHOOK")
	fmt.Fprintln(w, "--\t----\t------\t-----\t-------")
	for _, f := range funnels {
		webhook := "off"
		if f.Webhook != nil && f.Webhook.Active {
			webhook = "on"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", f.ID, f.Name, len(f.Stages), len(a.Repo.LeadsByFunnel(f.ID)), webhook)
	}
	_ = w.Flush()
	fmt.Fprintf(stdout, "\nTotal: %d funnel(s)\n", len(funnels))
	return nil
}

// AddFunnelCommand creates a funnel.
func AddFunnelCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("add-funnel", flag.ExitOnError)
	name := fs.String("name", "", "Funnel name (required)")
	stages := fs.String("stages", "", "Comma-separated stage names (default: standard stages)")
	users := fs.String("users", "", "Comma-separated user IDs allowed to see the funnel (default: everyone)")
	_ = fs.Parse(args)

	var stageList []models.Stage
	for i, s := range splitList(*stages) {
		stageList = append(stageList, models.Stage{Name: s, Order: i})
	}

	f, err := a.Repo.AddFunnel(*name, stageList, splitList(*users))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "  ID: %s\n", f.ID)
	for _, s := range f.SortedStages() {
		fmt.Fprintf(stdout, "  %d. %s\n", s.Order+1, s.Name)
	}
	return nil
}

// RenameFunnelCommand renames a funnel.
func RenameFunnelCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("rename-funnel", flag.ExitOnError)
	name := fs.String("name", "", "New funnel name (required)")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("funnel ID required")
	}
	_, err := a.Repo.RenameFunnel(fs.Arg(0), *name)
	return err
}

// DeleteFunnelCommand deletes a funnel without leads.
func DeleteFunnelCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("delete-funnel", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("funnel ID required")
	}
	return a.Repo.DeleteFunnel(fs.Arg(0))
}

// WebhookCommand turns lead intake for a funnel on or off.
func WebhookCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("webhook", flag.ExitOnError)
	active := fs.Bool("active", true, "Accept leads posted to the funnel webhook")
	url := fs.String("url", "", "Public webhook URL shown to integrators")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("funnel ID required")
	}
	f, err := a.Repo.SetWebhook(fs.Arg(0), *active, *url)
	if err != nil {
		return err
	}
	if *active {
		fmt.Fprintf(stdout, "  POST /webhooks/funnels/%s\n", f.ID)
	}
	return nil
}

// FunnelUsersCommand sets which users may see a funnel.
func FunnelUsersCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("funnel-users", flag.ExitOnError)
	users := fs.String("users", "", "Comma-separated user IDs")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("funnel ID required")
	}
	_, err := a.Repo.SetAllowedUsers(fs.Arg(0), splitList(*users))
	return err
}

// ListStagesCommand shows a funnel's stages in order.
func ListStagesCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("stages", flag.ExitOnError)
	funnelID := fs.String("funnel", "", "Funnel ID (default: first funnel)")
	_ = fs.Parse(args)

	f, err := resolveFunnel(a, *funnelID)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s\n", f.Name)
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tID\tNAME\tLEADS")
	for _, s := range f.SortedStages() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", s.Order+1, s.ID, s.Name, len(a.Repo.LeadsByStage(f.ID, s.ID)))
	}
	return w.Flush()
}

// AddStageCommand appends a stage to a funnel.
func AddStageCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("add-stage", flag.ExitOnError)
	funnelID := fs.String("funnel", "", "Funnel ID (default: first funnel)")
	name := fs.String("name", "", "Stage name (required)")
	_ = fs.Parse(args)

	f, err := resolveFunnel(a, *funnelID)
	if err != nil {
		return err
	}
	s, err := a.Repo.AddStage(f.ID, *name)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "  Stage %s (ID: %s)\n", s.Name, s.ID)
	return nil
}

// DeleteStageCommand removes a stage from a funnel.
func DeleteStageCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("delete-stage", flag.ExitOnError)
	funnelID := fs.String("funnel", "", "Funnel ID (default: first funnel)")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("stage ID required")
	}
	f, err := resolveFunnel(a, *funnelID)
	if err != nil {
		return err
	}
	return a.Repo.DeleteStage(f.ID, fs.Arg(0))
}

// MoveStageCommand moves a stage one position up or down.
func MoveStageCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("move-stage", flag.ExitOnError)
	funnelID := fs.String("funnel", "", "Funnel ID (default: first funnel)")
	dir := fs.String("dir", "up", "Direction: up or down")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("stage ID required")
	}
	var d crm.Direction
	switch strings.ToLower(*dir) {
	case "up":
		d = crm.Up
	case "down":
		d = crm.Down
	default:
		return fmt.Errorf("invalid direction %q (use up or down)", *dir)
	}
	f, err := resolveFunnel(a, *funnelID)
	if err != nil {
		return err
	}
	return a.Repo.MoveStage(f.ID, fs.Arg(0), d)
}

func resolveFunnel(a *app.App, id string) (models.Funnel, error) {
	if id != "" {
		return a.Repo.Funnel(id)
	}
	f, ok := a.Repo.FirstFunnel()
	if !ok {
		return models.Funnel{}, crm.ErrFunnelNotFound
	}
	return f, nil
}
