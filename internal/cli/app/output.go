package app

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/aussiebroadwan/inventory/internal/cli/credstore"
	"github.com/aussiebroadwan/inventory/pkg/inventory"
	"github.com/aussiebroadwan/inventory/pkg/jwtx"
)

func (app *Application) printJSON(v any) error {
	enc := json.NewEncoder(app.io.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (app *Application) printServers(servers []inventory.Server) error {
	tw := tabwriter.NewWriter(app.io.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tIP\tSTATUS\tUPDATED")
	for _, s := range servers {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.IP, onOff(s.Status), s.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func (app *Application) printUsers(users []inventory.User) error {
	tw := tabwriter.NewWriter(app.io.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tNAME\tEMAIL\tROLE")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.FullName, u.Email, u.Role)
	}
	return tw.Flush()
}

func (app *Application) printUser(u *inventory.User) {
	fmt.Fprintf(app.io.Out, "ID:       %d\nUsername: %s\nName:     %s\nEmail:    %s\nRole:     %s\n",
		u.ID, u.Username, u.FullName, u.Email, u.Role)
	if u.Phone != "" {
		fmt.Fprintf(app.io.Out, "Phone:    %s\n", u.Phone)
	}
}

// printLogins lists saved credentials; the one for the configured backend is
// marked with an asterisk.
func (app *Application) printLogins(entries []credstore.Entry) error {
	tw := tabwriter.NewWriter(app.io.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tBASE URL\tUSER\tEXPIRES\tUPDATED")
	for _, e := range entries {
		mark := ""
		if e.BaseURL == app.cfg.BaseURL {
			mark = "*"
		}
		user := "-"
		if claims, err := jwtx.ParseUnverified(e.Credential.Token); err == nil && claims.Username != "" {
			user = claims.Username
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", mark, e.BaseURL, user,
			formatTime(e.Credential.ExpiresAt), formatTime(e.UpdatedAt))
	}
	return tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func onOff(status bool) string {
	if status {
		return "on"
	}
	return "off"
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
