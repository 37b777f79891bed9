package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/aussiebroadwan/inventory/internal/cli/credstore"
	"github.com/aussiebroadwan/inventory/pkg/httpx"
	"github.com/aussiebroadwan/inventory/pkg/inventory"
	"github.com/aussiebroadwan/inventory/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// ErrUsage is returned when the command line could not be parsed. Usage has
// already been printed.
var ErrUsage = errors.New("usage error")

// IO bundles the streams a command reads from and writes to.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Application is the invctl command line client.
type Application struct {
	cfg    Config
	io     IO
	stdin  *bufio.Reader
	logger *slog.Logger

	store   *credstore.Store
	session *inventory.Session
	client  *inventory.Client
}

// New opens the credential store, restores any saved session and builds the
// SDK client.
func New(ctx context.Context, cfg Config, stdio IO) (*Application, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("INVENTORY_BASE_URL is required")
	}

	app := &Application{
		cfg: cfg,
		io:  stdio,
		logger: slogx.New(slogx.Config{
			Service: "invctl",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  stdio.Err,
		}),
	}

	store, err := credstore.Open(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credentials: %w", err)
	}
	app.store = store

	app.session = inventory.NewSession(
		inventory.WithStore(store.For(cfg.BaseURL)),
		inventory.WithRefreshBefore(cfg.RefreshBefore),
		inventory.OnReauthRequired(func(error) {
			fmt.Fprintln(app.io.Err, "Your session has expired. Run `invctl login` to sign in again.")
		}),
	)
	if err := app.session.Restore(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	app.client, err = inventory.New(cfg.BaseURL, app.session,
		inventory.WithTimeout(cfg.Timeout),
		inventory.WithUserAgent("invctl/"+BuildVersion),
		inventory.WithLogger(app.logger),
		inventory.WithRateLimit(httpx.ClientLimit),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return app, nil
}

// Close releases the credential store.
func (app *Application) Close() error {
	return app.store.Close()
}

// command is one leaf of the command tree.
type command struct {
	usage string
	run   func(ctx context.Context, app *Application, args []string) error
}

// commands is populated in init to break the initialization cycle through
// the command functions, which refer back to commands via flags.
var commands map[string]command

func init() {
	commands = map[string]command{
		"login":  {"login [-u username]", runLogin},
		"logout": {"logout", runLogout},
		"whoami": {"whoami [-all]", runWhoami},

		"servers list":   {"servers list [-limit n] [-offset n] [-status true|false] [-field f] [-order asc|desc] [-filter on|off] [-json]", runServersList},
		"servers status": {"servers status", runServersStatus},
		"servers create": {"servers create -name n -ip addr [-on]", runServersCreate},
		"servers update": {"servers update -id n -name n -ip addr [-on]", runServersUpdate},
		"servers delete": {"servers delete -id n", runServersDelete},
		"servers import": {"servers import -file servers.xlsx", runServersImport},
		"servers export": {"servers export [-dir .] [-off] [-page-size n] [-from-page n] [-to-page n] [-sort asc|desc] [-sort-by f]", runServersExport},
		"servers uptime": {"servers uptime -id n [-date YYYY-MM-DD]", runServersUptime},

		"users get":    {"users get (-username u | -id n)", runUsersGet},
		"users list":   {"users list [-json]", runUsersList},
		"users create": {"users create -username u -email e [-name full] [-role admin|user] [-password p]", runUsersCreate},
		"users update": {"users update -id n [-name full] [-email e] [-phone p] [-role r] [-password p]", runUsersUpdate},
		"users delete": {"users delete -id n", runUsersDelete},

		"report send": {"report send -from YYYY-MM-DD -to YYYY-MM-DD -email e", runReportSend},
	}
}

// Run dispatches args (without the program name) to a command.
func (app *Application) Run(ctx context.Context, args []string) error {
	name, rest, ok := lookup(args)
	if !ok {
		app.printUsage()
		return ErrUsage
	}

	cmd := commands[name]
	app.logger.Debug("running command", "command", name)
	return cmd.run(ctx, app, rest)
}

func lookup(args []string) (string, []string, bool) {
	if len(args) >= 2 {
		if _, ok := commands[args[0]+" "+args[1]]; ok {
			return args[0] + " " + args[1], args[2:], true
		}
	}
	if len(args) >= 1 {
		if _, ok := commands[args[0]]; ok {
			return args[0], args[1:], true
		}
	}
	return "", nil, false
}

func (app *Application) printUsage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(app.io.Err, "Usage: invctl <command> [flags]")
	fmt.Fprintln(app.io.Err)
	for _, name := range names {
		fmt.Fprintln(app.io.Err, "  "+commands[name].usage)
	}
}

// flags builds a FlagSet for the named command that reports to stderr.
func (app *Application) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(app.io.Err)
	fs.Usage = func() {
		fmt.Fprintln(app.io.Err, "Usage: invctl "+commands[name].usage)
		fs.PrintDefaults()
	}
	return fs
}

func (app *Application) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(app.io.Err, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		fs.Usage()
		return ErrUsage
	}
	return nil
}

// required reports a missing flag in the same way flag parsing errors do.
func (app *Application) required(fs *flag.FlagSet, names ...string) error {
	for _, n := range names {
		f := fs.Lookup(n)
		if f == nil || f.Value.String() == "" || f.Value.String() == "0" {
			fmt.Fprintf(app.io.Err, "flag -%s is required\n", n)
			fs.Usage()
			return ErrUsage
		}
	}
	return nil
}
