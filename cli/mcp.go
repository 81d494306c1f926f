// ABOUTME: MCP server subcommand
// ABOUTME: Starts the MCP server exposing funnel, lead and chat tools on stdio
package cli

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/leadpipe/app"
	"github.com/harperreed/leadpipe/handlers"
)

// NewMCPServer registers every tool against a.
func NewMCPServer(a *app.App, version string) *mcp.Server {
	funnelHandlers := handlers.NewFunnelHandlers(a.Repo)
	leadHandlers := handlers.NewLeadHandlers(a.Repo)
	chatHandlers := handlers.NewChatHandlers(a.Repo, a.Messaging, a.Session)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "leadpipe",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_funnels",
		Description: "List every sales funnel with its stages and lead counts",
	}, funnelHandlers.ListFunnels)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_funnel",
		Description: "Create a sales funnel, optionally with custom stage names",
	}, funnelHandlers.CreateFunnel)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_funnel",
		Description: "Delete a funnel that has no leads",
	}, funnelHandlers.DeleteFunnel)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_lead",
		Description: "Add a lead with name and phone to a funnel",
	}, leadHandlers.AddLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_leads",
		Description: "Search leads by name, phone or email, optionally within a funnel or stage",
	}, leadHandlers.FindLeads)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "move_lead",
		Description: "Move a lead to another stage, and optionally another funnel",
	}, leadHandlers.MoveLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_lead",
		Description: "Delete a lead",
	}, leadHandlers.DeleteLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "import_leads_csv",
		Description: "Import leads from CSV text into a funnel's first stage",
	}, leadHandlers.ImportLeadsCSV)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_leads_csv",
		Description: "Export leads as CSV, optionally limited to one funnel",
	}, leadHandlers.ExportLeadsCSV)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "send_message",
		Description: "Send a WhatsApp message to a lead as the logged-in user",
	}, chatHandlers.SendMessage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "chat_history",
		Description: "Show a lead's WhatsApp conversation, oldest first",
	}, chatHandlers.ChatHistory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "crm_stats",
		Description: "Dashboard counts of leads by stage, source and funnel",
	}, leadHandlers.CRMStats)

	return server
}

// MCPCommand starts the MCP server on stdio
func MCPCommand(a *app.App, version string) error {
	a.Log.Info("Starting leadpipe MCP server...")
	return NewMCPServer(a, version).Run(context.Background(), &mcp.StdioTransport{})
}
