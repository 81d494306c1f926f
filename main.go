// ABOUTME: Entry point for the leadpipe CLI, MCP server, board and web UI
// ABOUTME: Loads configuration, builds the application and routes to commands
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/harperreed/leadpipe/app"
	"github.com/harperreed/leadpipe/cli"
	"github.com/harperreed/leadpipe/config"
	"github.com/harperreed/leadpipe/notify"
)

const version = "0.1.0"

type command func(a *app.App, args []string) error

var crmCommands = map[string]command{
	"funnels":       cli.ListFunnelsCommand,
	"add-funnel":    cli.AddFunnelCommand,
	"rename-funnel": cli.RenameFunnelCommand,
	"delete-funnel": cli.DeleteFunnelCommand,
	"webhook":       cli.WebhookCommand,
	"funnel-users":  cli.FunnelUsersCommand,
	"stages":        cli.ListStagesCommand,
	"add-stage":     cli.AddStageCommand,
	"delete-stage":  cli.DeleteStageCommand,
	"move-stage":    cli.MoveStageCommand,
	"leads":         cli.ListLeadsCommand,
	"add-lead":      cli.AddLeadCommand,
	"update-lead":   cli.UpdateLeadCommand,
	"delete-lead":   cli.DeleteLeadCommand,
	"move":          cli.MoveLeadCommand,
	"import":        cli.ImportCommand,
	"export":        cli.ExportCommand,
	"search":        cli.SearchLeadsCommand,
	"stats":         cli.StatsCommand,
}

var chatCommands = map[string]command{
	"send":    cli.ChatSendCommand,
	"history": cli.ChatHistoryCommand,
	"logs":    cli.ChatLogsCommand,
}

var whatsappCommands = map[string]command{
	"config":     cli.WhatsappConfigCommand,
	"test":       cli.WhatsappTestCommand,
	"connect":    cli.WhatsappConnectCommand,
	"disconnect": cli.WhatsappDisconnectCommand,
	"status":     cli.WhatsappStatusCommand,
}

var userCommands = map[string]command{
	"list":   cli.ListUsersCommand,
	"update": cli.UpdateProfileCommand,
}

var vizCommands = map[string]command{
	"pipeline":  cli.VizPipelineCommand,
	"dashboard": cli.VizDashboardCommand,
}

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	envFile := flag.String("env", ".env", "Environment file to load if present")
	dbPath := flag.String("db-path", "", "Database path (default: ~/.local/share/leadpipe/leadpipe.db)")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("leadpipe version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	command := args[0]
	commandArgs := args[1:]

	var opts []app.Option
	var notes *notify.Recorder
	switch command {
	case "mcp", "web":
		// stdout belongs to the protocol or the access log.
	case "tui":
		notes = &notify.Recorder{}
		opts = append(opts, app.WithNotifier(notes))
	default:
		opts = append(opts, app.WithNotifier(cli.NewConsoleNotifier(os.Stdout)))
	}

	a, err := app.New(cfg, opts...)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	err = run(a, notes, command, commandArgs)
	if closeErr := a.Close(); closeErr != nil {
		log.Printf("warning: failed to save state: %v", closeErr)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(a *app.App, notes *notify.Recorder, command string, args []string) error {
	switch command {
	case "mcp":
		return cli.MCPCommand(a, version)
	case "tui":
		return cli.TUICommand(a, notes, args)
	case "web":
		return cli.WebCommand(a, args)
	case "sync":
		return cli.SyncCommand(a, args)
	case "login":
		return cli.LoginCommand(a, args)
	case "logout":
		return cli.LogoutCommand(a, args)
	case "whoami":
		return cli.WhoamiCommand(a, args)
	case "crm":
		return dispatch(a, "crm", crmCommands, args)
	case "chat":
		return dispatch(a, "chat", chatCommands, args)
	case "whatsapp":
		return dispatch(a, "whatsapp", whatsappCommands, args)
	case "users":
		return dispatch(a, "users", userCommands, args)
	case "viz":
		return dispatch(a, "viz", vizCommands, args)
	}

	fmt.Printf("Unknown command: %s\n\n", command)
	printUsage()
	return fmt.Errorf("unknown command %q", command)
}

func dispatch(a *app.App, group string, commands map[string]command, args []string) error {
	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("%s requires a subcommand", group)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		printUsage()
		return fmt.Errorf("unknown %s command: %s", group, args[0])
	}
	return cmd(a, args[1:])
}

func printUsage() {
	fmt.Printf(`leadpipe v%s - Lead funnels with WhatsApp chat

USAGE:
  leadpipe [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --env <file>           Environment file (default: .env)
  --db-path <path>       Database path (default: ~/.local/share/leadpipe/leadpipe.db)

COMMANDS:
  login / logout / whoami   Local session
  users                     List users, update your profile
  crm                       Funnels, stages and leads
  chat                      WhatsApp conversations
  whatsapp                  Provider configuration and pairing
  viz                       Pipeline graph and dashboard
  tui                       Interactive kanban board
  web                       Web dashboard with lead webhook
  mcp                       Start MCP server on stdio
  sync                      Charm sync (status, now, wipe, auto)

SESSION:
  leadpipe login --email <email> --password <password>
  leadpipe users list
  leadpipe users update [--name] [--email] [--avatar]

CRM COMMANDS:
  leadpipe crm funnels                      List funnels
  leadpipe crm add-funnel --name <name> [--stages "A,B,C"] [--users "1,2"]
  leadpipe crm rename-funnel --name <name> <id>
  leadpipe crm delete-funnel <id>           Fails while the funnel has leads
  leadpipe crm webhook [--active=false] [--url <url>] <id>
  leadpipe crm funnel-users --users "1,2" <id>
  leadpipe crm stages [--funnel <id>]
  leadpipe crm add-stage [--funnel <id>] --name <name>
  leadpipe crm delete-stage [--funnel <id>] <stage-id>
  leadpipe crm move-stage [--funnel <id>] --dir up|down <stage-id>
  leadpipe crm leads [--query <text>] [--funnel <id>] [--stage <id|name>]
  leadpipe crm add-lead --name <name> --phone <phone> [--email] [--notes] [--funnel] [--stage] [--assign]
  leadpipe crm update-lead [flags] <id>
  leadpipe crm delete-lead <id>
  leadpipe crm move --stage <id|name> [--funnel <id>] <lead-id>
  leadpipe crm import --file <csv> [--funnel <id>]
  leadpipe crm export [--funnel <id>] [--output <file>|-]
  leadpipe crm search [--limit N] <query>
  leadpipe crm stats

CHAT COMMANDS:
  leadpipe chat send --lead <id> --message <text> [--attach-type --attach-url --attach-name] [--wait]
  leadpipe chat history <lead-id>
  leadpipe chat logs [--query <text>] [--direction all|incoming|outgoing] [--oldest]

WHATSAPP COMMANDS:
  leadpipe whatsapp config [--url <url> --key <key> --provider <name> --enabled]
  leadpipe whatsapp test [--url <url>] [--key <key>]
  leadpipe whatsapp connect [--user <id>] [--wait=false]
  leadpipe whatsapp disconnect [--user <id>]
  leadpipe whatsapp status

VIZ COMMANDS:
  leadpipe viz pipeline [--funnel <id>] [--output <file>]
  leadpipe viz dashboard

EXAMPLES:
  leadpipe login --email admin@example.com --password demo
  leadpipe crm add-lead --name "Ana Lima" --phone "+5511999990000"
  leadpipe chat send --lead <id> --message "Hi Ana!" --wait
  LEADPIPE_BACKEND=badger leadpipe tui

`, version)
}
