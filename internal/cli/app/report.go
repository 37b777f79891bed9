package app

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/inventory/pkg/inventory"
)

func runReportSend(ctx context.Context, app *Application, args []string) error {
	fs := app.flags("report send")
	from := fs.String("from", "", "first day (YYYY-MM-DD)")
	to := fs.String("to", "", "last day (YYYY-MM-DD)")
	email := fs.String("email", "", "recipient address")
	if err := app.parse(fs, args); err != nil {
		return err
	}
	if err := app.required(fs, "from", "to", "email"); err != nil {
		return err
	}

	fields := map[string]string{}
	start, err := time.Parse(time.DateOnly, *from)
	if err != nil {
		fields["from"] = "must be formatted as YYYY-MM-DD"
	}
	end, err := time.Parse(time.DateOnly, *to)
	if err != nil {
		fields["to"] = "must be formatted as YYYY-MM-DD"
	}
	if len(fields) > 0 {
		return &inventory.ValidationError{Fields: fields}
	}

	res, err := app.client.Mail.SendReport(ctx, inventory.SendReportRequest{From: start, To: end, Email: *email})
	if err != nil {
		return err
	}
	fmt.Fprintln(app.io.Out, res.Message)
	return nil
}
