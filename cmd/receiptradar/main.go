// Command receiptradar parses receipts, records prices and answers price
// questions from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/joseph-ayodele/receiptradar/internal/backend"
	"github.com/joseph-ayodele/receiptradar/internal/common"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	err := a.run(ctx, os.Args[1:])
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// app holds per-invocation state shared by the subcommands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	envFile  *string
	logLevel *string

	cfg     *common.Config
	logger  *slog.Logger
	backend *backend.Backend
}

func (a *app) run(ctx context.Context, args []string) error {
	root := a.rootCommand()
	err := root.ParseAndRun(ctx, args, ff.WithEnvVarPrefix(common.EnvPrefix))
	if a.backend != nil {
		if cerr := a.backend.Close(); cerr != nil {
			a.logger.Warn("cli.backend.close_failed", "error", cerr)
		}
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ff.ErrHelp), errors.Is(err, ff.ErrNoExec):
		fmt.Fprintf(a.stderr, "%s\n", ffhelp.Command(root.GetSelected()))
		if errors.Is(err, ff.ErrHelp) {
			return nil
		}
		return err
	default:
		fmt.Fprintf(a.stderr, "error: %v\n", err)
		return err
	}
}

func (a *app) rootCommand() *ff.Command {
	fs := ff.NewFlagSet("receiptradar")
	a.envFile = fs.StringLong("env-file", ".env", "dotenv file read before RADAR_* variables")
	a.logLevel = fs.StringLong("log-level", "", "debug, info, warn or error (overrides RADAR_LOG_LEVEL)")

	return &ff.Command{
		Name:      "receiptradar",
		Usage:     "receiptradar [FLAGS] <SUBCOMMAND> ...",
		ShortHelp: "grocery receipt reconstruction and price tracking",
		Flags:     fs,
		Subcommands: []*ff.Command{
			a.parseCommand(fs),
			a.recordCommand(fs),
			a.analyzeCommand(fs),
			a.historyCommand(fs),
			a.compareCommand(fs),
			a.storesCommand(fs),
			a.correctCommand(fs),
			a.categoriesCommand(fs),
		},
	}
}

// setup loads configuration and the logger once per invocation.
func (a *app) setup() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := common.LoadConfigFrom(*a.envFile)
	if err != nil {
		return err
	}
	if *a.logLevel != "" {
		cfg.LogLevel = *a.logLevel
	}
	a.cfg = cfg
	a.logger = common.NewLogger(cfg.LogLevel, a.stderr)
	return nil
}

// open connects the configured backend on first use.
func (a *app) open(ctx context.Context) (*backend.Backend, error) {
	if err := a.setup(); err != nil {
		return nil, err
	}
	if a.backend != nil {
		return a.backend, nil
	}
	b, err := backend.Open(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.backend = b
	return b, nil
}
