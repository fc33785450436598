// Command reminders is the cron entry point: it sends due contract reminders,
// or prints them, the report, or seeds demo data.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/noahxzhu/contract-reminder/internal/config"
	"github.com/noahxzhu/contract-reminder/internal/credential"
	"github.com/noahxzhu/contract-reminder/internal/logger"
	"github.com/noahxzhu/contract-reminder/internal/mailer"
	"github.com/noahxzhu/contract-reminder/internal/notify"
	"github.com/noahxzhu/contract-reminder/internal/reminder"
	"github.com/noahxzhu/contract-reminder/internal/seed"
	"github.com/noahxzhu/contract-reminder/internal/storage"
)

type options struct {
	configPath string
	dryRun     bool
	report     bool
	seed       bool
	flush      bool
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, v *viper.Viper) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("reminders", pflag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "configs/config.yaml", "path to the YAML config file")
	fs.Int("window-days", 0, "lookahead window in days (default from config)")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "print reminder payloads as JSON without sending")
	fs.BoolVar(&opts.report, "report", false, "print the reminder report as JSON")
	fs.BoolVar(&opts.seed, "seed", false, "load demo vendors and contracts")
	fs.BoolVar(&opts.flush, "flush", false, "with --seed, delete existing vendors and contracts first")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.Changed("window-days") {
		if err := v.BindPFlag("reminders.window_days", fs.Lookup("window-days")); err != nil {
			return opts, err
		}
	}
	if opts.flush && !opts.seed {
		return opts, fmt.Errorf("--flush requires --seed")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	v := config.New()
	opts, err := parseFlags(args, v)
	if err != nil {
		return err
	}

	cfg, err := config.Load(v, opts.configPath)
	if err != nil {
		return err
	}

	// Logs go to stderr so stdout carries only command output.
	log := logger.Init(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: stderr})

	store, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	engine := reminder.NewEngine(store, reminder.WithLogger(log))
	window := cfg.Reminders.WindowDays

	switch {
	case opts.seed:
		res, err := seed.Seed(ctx, store, engine.Today(), opts.flush)
		if err != nil {
			return err
		}
		if res.Flushed {
			fmt.Fprintln(stdout, "Existing vendor/service data deleted.")
		}
		fmt.Fprintln(stdout, res.String())
		return nil

	case opts.dryRun:
		payloads, err := engine.BuildPayloads(ctx, window)
		if err != nil {
			return err
		}
		return writeJSON(stdout, payloads)

	case opts.report:
		report, err := engine.BuildReport(ctx, window)
		if err != nil {
			return err
		}
		return writeJSON(stdout, report)
	}

	fallback, err := mailer.FromConfig(cfg.Mail, log)
	if err != nil {
		return err
	}
	resolver := credential.NewResolver(store, cfg.Mail, fallback, credential.WithLogger(log))
	dispatcher := notify.NewDispatcher(engine, resolver, store, notify.WithLogger(log))

	res, err := dispatcher.Send(ctx, window)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Sent %d reminder(s)\n", res.Sent)
	return nil
}
