// ABOUTME: WhatsApp provider CLI commands
// ABOUTME: Configure the provider, test it, and connect or disconnect users
package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/harperreed/leadpipe/app"
	"github.com/harperreed/leadpipe/models"
)

// WhatsappConfigCommand shows the provider configuration, or replaces it when
// --url is given. Replacing requires an admin login.
func WhatsappConfigCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("whatsapp config", flag.ExitOnError)
	apiURL := fs.String("url", "", "Provider API URL")
	apiKey := fs.String("key", "", "Provider API key")
	provider := fs.String("provider", models.DefaultMessageProvider, "baileys, whatsapp-web.js, venom, wppconnect or custom")
	enabled := fs.Bool("enabled", true, "Send traffic to the provider")
	_ = fs.Parse(args)

	if *apiURL == "" {
		cfg := a.Provider.Config()
		if cfg == nil {
			fmt.Fprintln(stdout, "WhatsApp provider not configured")
			return nil
		}
		fmt.Fprintf(stdout, "Provider:     %s\n", cfg.Provider)
		fmt.Fprintf(stdout, "API URL:      %s\n", cfg.APIURL)
		fmt.Fprintf(stdout, "API key:      %s\n", maskKey(cfg.APIKey))
		fmt.Fprintf(stdout, "Enabled:      %v\n", cfg.Enabled)
		fmt.Fprintf(stdout, "Last updated: %s\n", formatTime(cfg.LastUpdated))
		return nil
	}

	_, err := a.Provider.UpdateConfig(a.Session.CurrentUser(), models.ProviderConfig{
		APIURL:   *apiURL,
		APIKey:   *apiKey,
		Provider: *provider,
		Enabled:  *enabled,
	})
	return err
}

// WhatsappTestCommand checks a provider endpoint. Without flags it tests the
// saved configuration.
func WhatsappTestCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("whatsapp test", flag.ExitOnError)
	apiURL := fs.String("url", "", "Provider API URL (default: saved)")
	apiKey := fs.String("key", "", "Provider API key (default: saved)")
	_ = fs.Parse(args)

	url, key := *apiURL, *apiKey
	if cfg := a.Provider.Config(); cfg != nil {
		if url == "" {
			url = cfg.APIURL
		}
		if key == "" {
			key = cfg.APIKey
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.HTTPTimeout)
	defer cancel()
	res := a.Provider.TestConnection(ctx, url, key)
	fmt.Fprintln(stdout, res.Message)
	if !res.OK() {
		return fmt.Errorf("connection test failed")
	}
	return nil
}

// WhatsappConnectCommand pairs a user and prints the QR code URL to scan.
func WhatsappConnectCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("whatsapp connect", flag.ExitOnError)
	userID := fs.String("user", "", "User ID (default: logged-in user)")
	wait := fs.Bool("wait", true, "Wait until the pairing completes")
	_ = fs.Parse(args)

	id, err := targetUser(a, *userID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.HTTPTimeout)
	defer cancel()
	qr, err := a.Provider.Connect(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Scan this QR code with WhatsApp:\n  %s\n", qr)

	if !*wait {
		return nil
	}
	waitCtx, waitCancel := context.WithTimeout(context.Background(), a.Config.ConnectDelay+30*time.Second)
	defer waitCancel()
	return a.Scheduler.Wait(waitCtx)
}

// WhatsappDisconnectCommand unpairs a user.
func WhatsappDisconnectCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("whatsapp disconnect", flag.ExitOnError)
	userID := fs.String("user", "", "User ID (default: logged-in user)")
	_ = fs.Parse(args)

	id, err := targetUser(a, *userID)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.HTTPTimeout)
	defer cancel()
	return a.Provider.Disconnect(ctx, id)
}

// WhatsappStatusCommand shows the provider state and which users are paired.
func WhatsappStatusCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("whatsapp status", flag.ExitOnError)
	_ = fs.Parse(args)

	cfg := a.Provider.Config()
	switch {
	case cfg == nil:
		fmt.Fprintln(stdout, "Provider: simulated (not configured)")
	case cfg.Active():
		fmt.Fprintf(stdout, "Provider: %s at %s\n", cfg.Provider, cfg.APIURL)
	default:
		fmt.Fprintf(stdout, "Provider: %s (disabled)\n", cfg.Provider)
	}
	fmt.Fprintln(stdout)

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tWHATSAPP")
	for _, u := range a.Repo.Users() {
		state := "disconnected"
		if u.WhatsappConnected {
			state = "connected"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.Name, state)
	}
	return w.Flush()
}

func targetUser(a *app.App, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	u, err := a.Session.Require()
	if err != nil {
		return "", fmt.Errorf("%w (log in or pass --user)", err)
	}
	return u.ID, nil
}

func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
