package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/urfave/cli/v2"

	"NotebookSync/internal/app"
	"NotebookSync/internal/config"
	"NotebookSync/internal/domain"
	"NotebookSync/internal/logging"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(out io.Writer) *cli.App {
	a := &cli.App{
		Name:    "notebooksync",
		Usage:   "Summarize workspace sources through a remote browser profile",
		Version: Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, EnvVars: []string{"NOTEBOOKSYNC_CONFIG"}, Usage: "YAML config file"},
			&cli.StringFlag{Name: "log-level", Usage: "debug|info|warn|error (overrides config)"},
		},
		Commands: []*cli.Command{
			runCmd(),
			importCmd(),
			statusCmd(),
		},
	}
	a.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return a
}

func loadConfig(c *cli.Context) config.Config {
	cfg := config.LoadPath(c.String("config"))
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	return cfg
}

func openApp(c *cli.Context, cfg config.Config) (*app.Application, error) {
	return app.New(cfg, logging.NewWithWriter(c.App.ErrWriter, cfg.Logging.Level))
}

// runCmd creates the run command.
func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Process every pending source of the workspace once, or repeatedly with --every",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "profile", Aliases: []string{"p"}, Required: true, Usage: "Browser profile handle"},
			&cli.BoolFlag{Name: "headless", Usage: "Start the profile without a window"},
			&cli.DurationFlag{Name: "every", Usage: "Re-run on this interval until interrupted"},
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Usage: "Workspace identifier (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			cfg := loadConfig(c)
			if c.Bool("headless") {
				cfg.Profiles.Headless = true
			}
			if ws := c.String("workspace"); ws != "" {
				cfg.Workspace.ID = ws
			}

			application, err := openApp(c, cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			profile := c.String("profile")
			if every := c.Duration("every"); every > 0 || cfg.Schedule.Interval > 0 {
				return application.Watch(c.Context, profile, every)
			}

			report, err := application.Run(c.Context, profile)
			fmt.Fprint(c.App.Writer, report.String())
			return err
		},
	}
}

// importCmd creates the import command.
func importCmd() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Seed the store with sources listed in a file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "format", Value: "tab", Usage: "Import format: html|pipe|tab"},
		},
		Action: func(c *cli.Context) error {
			application, err := openApp(c, loadConfig(c))
			if err != nil {
				return err
			}
			defer application.Close()

			format := c.String("format")
			if formats := application.ImportFormats(); !slices.Contains(formats, format) {
				return fmt.Errorf("unknown import format %q (available: %s)", format, strings.Join(formats, ", "))
			}

			res, err := application.Import(c.Context, format, c.String("file"))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "added=%d skipped=%d\n", res.Added, res.Skipped)
			return nil
		},
	}
}

// statusCmd creates the status command.
func statusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show record counts per status",
		Action: func(c *cli.Context) error {
			application, err := openApp(c, loadConfig(c))
			if err != nil {
				return err
			}
			defer application.Close()

			counts, err := application.Status(c.Context)
			if err != nil {
				return err
			}
			total := 0
			for _, s := range domain.Statuses() {
				fmt.Fprintf(c.App.Writer, "%-26s %d\n", s, counts[s])
				total += counts[s]
			}
			fmt.Fprintf(c.App.Writer, "%-26s %d\n", "TOTAL", total)
			return nil
		},
	}
}
