package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aussiebroadwan/inventory/pkg/inventory"
)

func runServersList(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("servers list")
	var req inventory.ListServersRequest
	fs.IntVar(&req.Limit, "limit", 10, "page size")
	fs.IntVar(&req.Offset, "offset", 0, "rows to skip")
	fs.StringVar(&req.Status, "status", "", "only servers whose status is true or false")
	fs.StringVar(&req.Field, "field", "", "sort field (id, name, ip, status, created_at, updated_at)")
	fs.StringVar(&req.Order, "order", "", "sort order (asc, desc)")
	filter := fs.String("filter", "", "power state filter (on, off)")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := app.parse(fs, args); err != nil {
		return err
	}

	switch *filter {
	case "":
	case "on":
		req.Filter = &inventory.ServerFilter{Status: inventory.StatusOn}
	case "off":
		req.Filter = &inventory.ServerFilter{Status: inventory.StatusOff}
	default:
		return &inventory.ValidationError{Fields: map[string]string{"filter": "must be one of on, off"}}
	}

	page, err := app.client.Servers.List(ctx, req)
	if err != nil {
		return err
	}
	if *asJSON {
		return app.printJSON(page)
	}
	if err := app.printServers(page.Data); err != nil {
		return err
	}
	fmt.Fprintf(app.io.Out, "\nShowing %d of %d\n", len(page.Data), page.Total)
	return nil
}

func runServersStatus(ctx context.Context, app *Application, args []string) error {
	if err := app.parse(app.flags("servers status"), args); err != nil {
		return err
	}

	st, err := app.client.Servers.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.io.Out, "Online:  %d\nOffline: %d\n", st.Online, st.Offline)
	return nil
}

func runServersCreate(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("servers create")
	var req inventory.CreateServerRequest
	fs.StringVar(&req.Name, "name", "", "server name")
	fs.StringVar(&req.IP, "ip", "", "server IP address")
	fs.BoolVar(&req.Status, "on", false, "mark the server as on")
	if err := app.parse(fs, args); err != nil {
		return err
	}
	if err := app.required(fs, "name", "ip"); err != nil {
		return err
	}

	s, err := app.client.Servers.Create(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.io.Out, "Created server %d (%s)\n", s.ID, s.Name)
	return nil
}

func runServersUpdate(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("servers update")
	var req inventory.UpdateServerRequest
	fs.UintVar(&req.ID, "id", 0, "server id")
	fs.StringVar(&req.Name, "name", "", "server name")
	fs.StringVar(&req.IP, "ip", "", "server IP address")
	fs.BoolVar(&req.Status, "on", false, "mark the server as on")
	if err := app.parse(fs, args); err != nil {
		return err
	}
	if err := app.required(fs, "id", "name", "ip"); err != nil {
		return err
	}

	s, err := app.client.Servers.Update(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.io.Out, "Updated server %d (%s)\n", s.ID, s.Name)
	return nil
}

func runServersDelete(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("servers delete")
	id := fs.Uint("id", 0, "server id")
	if err := app.parse(fs, args); err != nil {
		return err
	}
	if err := app.required(fs, "id"); err != nil {
		return err
	}

	if err := app.client.Servers.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(app.io.Out, "Deleted server %d\n", *id)
	return nil
}

func runServersImport(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("servers import")
	path := fs.String("file", "", "xlsx workbook with Name, Status, IP columns")
	if err := app.parse(fs, args); err != nil {
		return err
	}
	if err := app.required(fs, "file"); err != nil {
		return err
	}

	f, err := os.Open(*path)
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	res, err := app.client.Servers.Import(ctx, filepath.Base(*path), f)
	if err != nil {
		return err
	}

	fmt.Fprintln(app.io.Out, res.Message)
	fmt.Fprintf(app.io.Out, "Imported: %d\nFailed:   %d\n", res.SuccessCount, res.FailureCount)
	if res.FailureCount > 0 {
		fmt.Fprintf(app.io.Out, "Failed lines: %v\n", res.FailureLines)
	}
	return nil
}

func runServersExport(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("servers export")
	dir := fs.String("dir", ".", "directory to write "+inventory.ExportFileName+" into")
	off := fs.Bool("off", false, "export servers that are off instead of on")
	pageSize := fs.Int("page-size", 0, "rows per page")
	fromPage := fs.Int("from-page", 0, "first page")
	toPage := fs.Int("to-page", 0, "last page")
	var form inventory.ExportForm
	fs.StringVar(&form.Sort, "sort", "", "sort order (asc, desc)")
	fs.StringVar(&form.SortBy, "sort-by", "", "sort field")
	if err := app.parse(fs, args); err != nil {
		return err
	}

	form.Status = !*off
	form.PageSize = ifSet(fs, "page-size", *pageSize)
	form.FromPage = ifSet(fs, "from-page", *fromPage)
	form.ToPage = ifSet(fs, "to-page", *toPage)
	if err := form.Validate(); err != nil {
		return err
	}

	path, err := app.client.Servers.DownloadExport(ctx, form.Request(), *dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.io.Out, "Exported to %s\n", path)
	return nil
}

func runServersUptime(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("servers uptime")
	id := fs.Uint("id", 0, "server id")
	date := fs.String("date", time.Now().Format(time.DateOnly), "day to report (YYYY-MM-DD)")
	if err := app.parse(fs, args); err != nil {
		return err
	}
	if err := app.required(fs, "id"); err != nil {
		return err
	}

	day, err := time.Parse(time.DateOnly, *date)
	if err != nil {
		return &inventory.ValidationError{Fields: map[string]string{"date": "must be formatted as YYYY-MM-DD"}}
	}

	hours, err := app.client.Servers.Uptime(ctx, *id, day)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.io.Out, "Server %d was up %s hours on %s\n", *id, formatHours(hours), *date)
	return nil
}
