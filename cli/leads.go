// ABOUTME: Lead CLI commands
// ABOUTME: Add, list, update, move, delete leads plus CSV import/export and stats
package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/harperreed/leadpipe/app"
	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/viz"
)

// AddLeadCommand adds a lead.
func AddLeadCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("add-lead", flag.ExitOnError)
	name := fs.String("name", "", "Lead name (required)")
	phone := fs.String("phone", "", "Phone number (required)")
	email := fs.String("email", "", "Email address")
	notes := fs.String("notes", "", "Notes about the lead")
	funnelID := fs.String("funnel", "", "Funnel ID (default: first funnel)")
	stage := fs.String("stage", "", "Stage ID or name (default: first stage)")
	assign := fs.String("assign", "", "User ID to assign the lead to")
	_ = fs.Parse(args)

	lead := models.Lead{
		Name:       *name,
		Phone:      *phone,
		Email:      *email,
		Notes:      *notes,
		FunnelID:   *funnelID,
		AssignedTo: *assign,
		Source:     models.SourceManual,
	}
	if *stage != "" {
		f, err := resolveFunnel(a, *funnelID)
		if err != nil {
			return err
		}
		s, err := resolveStage(f, *stage)
		if err != nil {
			return err
		}
		lead.FunnelID = f.ID
		lead.Stage = s.ID
	}

	created, err := a.Repo.AddLead(lead)
	if err != nil {
		return err
	}
	funnelName, stageName := a.Repo.FunnelAndStageName(created)
	fmt.Fprintf(stdout, "  %s (ID: %s)\n", created.Name, created.ID)
	fmt.Fprintf(stdout, "  Funnel: %s / %s\n", funnelName, stageName)
	return nil
}

// ListLeadsCommand lists leads, optionally filtered.
// SearchLeadsCommand is shorthand for `leads --query`, taking the query as positional words.
func SearchLeadsCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		return fmt.Errorf("usage: crm search [--limit N] <query>")
	}
	return ListLeadsCommand(a, []string{"--query", query, "--limit", fmt.Sprint(*limit)})
}

func ListLeadsCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("leads", flag.ExitOnError)
	query := fs.String("query", "", "Search by name, phone or email")
	funnelID := fs.String("funnel", "", "Filter by funnel ID")
	stage := fs.String("stage", "", "Filter by stage ID or name (requires --funnel or uses first funnel)")
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	var leads []models.Lead
	switch {
	case *query != "":
		leads = a.Repo.SearchLeads(*query)
	case *stage != "":
		f, err := resolveFunnel(a, *funnelID)
		if err != nil {
			return err
		}
		s, err := resolveStage(f, *stage)
		if err != nil {
			return err
		}
		leads = a.Repo.LeadsByStage(f.ID, s.ID)
	case *funnelID != "":
		leads = a.Repo.LeadsByFunnel(*funnelID)
	default:
		leads = a.Repo.Leads()
	}

	if len(leads) == 0 {
		fmt.Fprintln(stdout, "No leads found")
		return nil
	}
	if *limit > 0 && len(leads) > *limit {
		leads = leads[:*limit]
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPHONE\tSTAGE\tSOURCE\tASSIGNED\tLAST CONTACT")
	fmt.Fprintln(w, "--\t----\t-----\t-----\t------\t--------\t------------")
	for _, l := range leads {
		_, stageName := a.Repo.FunnelAndStageName(l)
		lastContact := "-"
		if l.LastContact != nil {
			lastContact = formatTime(*l.LastContact)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ID, truncate(l.Name, 25), l.Phone, stageName, l.Source, a.Repo.AssigneeName(l.AssignedTo), lastContact)
	}
	_ = w.Flush()
	fmt.Fprintf(stdout, "\nShowing %d lead(s)\n", len(leads))
	return nil
}

// UpdateLeadCommand edits the fields of a lead that were given as flags.
func UpdateLeadCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("update-lead", flag.ExitOnError)
	name := fs.String("name", "", "Lead name")
	phone := fs.String("phone", "", "Phone number")
	email := fs.String("email", "", "Email address")
	notes := fs.String("notes", "", "Notes about the lead")
	assign := fs.String("assign", "", "User ID to assign the lead to")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("lead ID required")
	}
	lead, err := a.Repo.Lead(fs.Arg(0))
	if err != nil {
		return err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["name"] {
		lead.Name = *name
	}
	if set["phone"] {
		lead.Phone = *phone
	}
	if set["email"] {
		lead.Email = *email
	}
	if set["notes"] {
		lead.Notes = *notes
	}
	if set["assign"] {
		lead.AssignedTo = *assign
	}

	_, err = a.Repo.UpdateLead(lead)
	return err
}

// DeleteLeadCommand deletes a lead.
func DeleteLeadCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("delete-lead", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("lead ID required")
	}
	return a.Repo.DeleteLead(fs.Arg(0))
}

// MoveLeadCommand moves a lead to another stage, optionally in another funnel.
func MoveLeadCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("move", flag.ExitOnError)
	stage := fs.String("stage", "", "Target stage ID or name (required)")
	funnelID := fs.String("funnel", "", "Target funnel ID (default: the lead's funnel)")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("lead ID required")
	}
	if *stage == "" {
		return fmt.Errorf("--stage is required")
	}
	lead, err := a.Repo.Lead(fs.Arg(0))
	if err != nil {
		return err
	}
	target := *funnelID
	if target == "" {
		target = lead.FunnelID
	}
	f, err := a.Repo.Funnel(target)
	if err != nil {
		return err
	}
	s, err := resolveStage(f, *stage)
	if err != nil {
		return err
	}

	moved, err := a.Repo.MoveLead(lead.ID, s.ID, f.ID)
	if err != nil {
		return err
	}
	funnelName, stageName := a.Repo.FunnelAndStageName(moved)
	fmt.Fprintf(stdout, "  %s → %s / %s\n", moved.Name, funnelName, stageName)
	return nil
}

// ImportCommand imports leads from a CSV file.
func ImportCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	funnelID := fs.String("funnel", "", "Funnel ID (default: first funnel)")
	file := fs.String("file", "", "CSV file to import (required)")
	_ = fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("--file is required")
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", *file, err)
	}
	f, err := resolveFunnel(a, *funnelID)
	if err != nil {
		return err
	}

	_, err = a.Repo.ImportCSV(f.ID, string(data))
	return err
}

// ExportCommand writes leads as CSV.
func ExportCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	funnelID := fs.String("funnel", "", "Only export leads of this funnel")
	output := fs.String("output", "", "Output file (default: generated file name, - for stdout)")
	_ = fs.Parse(args)

	exp := a.Repo.ExportCSV(*funnelID)
	path := *output
	if path == "-" {
		fmt.Fprintln(stdout, exp.Content)
		return nil
	}
	if path == "" {
		path = strings.ReplaceAll(exp.Filename, ":", "-")
	}
	if err := os.WriteFile(path, []byte(exp.Content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "  Wrote %s\n", path)
	return nil
}

// StatsCommand prints the dashboard.
func StatsCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	_ = fs.Parse(args)

	fmt.Fprint(stdout, viz.RenderDashboard(a.Repo.Stats(), a.Repo.Funnels()))
	return nil
}

// resolveStage finds a stage by id, then by case-insensitive name.
func resolveStage(f models.Funnel, ref string) (models.Stage, error) {
	if s := f.Stage(ref); s != nil {
		return *s, nil
	}
	for _, s := range f.Stages {
		if strings.EqualFold(s.Name, ref) {
			return s, nil
		}
	}
	return models.Stage{}, fmt.Errorf("stage %q not found in funnel %s", ref, f.Name)
}
