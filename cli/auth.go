// ABOUTME: Login session and user profile CLI commands
// ABOUTME: Login, logout, whoami, list users and update the current profile
package cli

import (
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/harperreed/leadpipe/app"
)

// LoginCommand signs in by email.
func LoginCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email address (required)")
	password := fs.String("password", "", "Password (required)")
	_ = fs.Parse(args)

	u, err := a.Session.Login(*email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "✓ Logged in as %s (%s)\n", u.Name, u.Role)
	return nil
}

// LogoutCommand ends the session.
func LogoutCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	_ = fs.Parse(args)

	if err := a.Session.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "✓ Logged out")
	return nil
}

// WhoamiCommand shows the logged-in user.
func WhoamiCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ExitOnError)
	_ = fs.Parse(args)

	u := a.Session.CurrentUser()
	if u == nil {
		fmt.Fprintln(stdout, "Not logged in")
		return nil
	}
	fmt.Fprintf(stdout, "%s <%s>\n", u.Name, u.Email)
	fmt.Fprintf(stdout, "  ID:       %s\n", u.ID)
	fmt.Fprintf(stdout, "  Role:     %s\n", u.Role)
	fmt.Fprintf(stdout, "  WhatsApp: %v\n", u.WhatsappConnected)
	return nil
}

// ListUsersCommand lists every user.
func ListUsersCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("users", flag.ExitOnError)
	_ = fs.Parse(args)

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tWHATSAPP")
	fmt.Fprintln(w, "--\t----\t-----\t----\t--------")
	for _, u := range a.Repo.Users() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n", u.ID, u.Name, u.Email, u.Role, u.WhatsappConnected)
	}
	return w.Flush()
}

// UpdateProfileCommand edits the logged-in user's profile.
func UpdateProfileCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("update-profile", flag.ExitOnError)
	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Email address")
	avatar := fs.String("avatar", "", "Avatar URL")
	_ = fs.Parse(args)

	u, err := a.Session.Require()
	if err != nil {
		return err
	}
	if *name != "" {
		u.Name = *name
	}
	if *email != "" {
		u.Email = *email
	}
	if *avatar != "" {
		u.Avatar = *avatar
	}
	_, err = a.Repo.UpdateUser(*u)
	return err
}
