// Command markpress drives the document engine from the terminal: publish and
// retract posts, reconcile the local cache, and mirror a local drafts
// directory into the remote repository.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	markpress "github.com/halim714/markpress"
	"github.com/halim714/markpress/internal/commands"
	documentcmd "github.com/halim714/markpress/internal/commands/document"
	"github.com/halim714/markpress/internal/drafts"
	"github.com/halim714/markpress/internal/logging"
)

func main() {
	cmd := &cli.Command{
		Name:  "markpress",
		Usage: "Markdown editor persisting documents to a Git-hosted repository",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "owner",
				Usage:   "Owner of the private document repository",
				Sources: cli.EnvVars("MARKPRESS_OWNER"),
			},
			&cli.StringFlag{
				Name:    "repo",
				Usage:   "Name of the private document repository",
				Sources: cli.EnvVars("MARKPRESS_REPO"),
			},
			&cli.StringFlag{
				Name:    "branch",
				Value:   "main",
				Usage:   "Branch written by the editor",
				Sources: cli.EnvVars("MARKPRESS_BRANCH"),
			},
			&cli.StringFlag{
				Name:    "dir",
				Value:   "documents",
				Usage:   "Directory inside the private repository holding documents",
				Sources: cli.EnvVars("MARKPRESS_DIR"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Access token for the private repository",
				Sources: cli.EnvVars("MARKPRESS_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "site-owner",
				Usage:   "Owner of the public site repository",
				Sources: cli.EnvVars("MARKPRESS_SITE_OWNER"),
			},
			&cli.StringFlag{
				Name:    "site-repo",
				Usage:   "Name of the public site repository",
				Sources: cli.EnvVars("MARKPRESS_SITE_REPO"),
			},
			&cli.StringFlag{
				Name:    "site-token",
				Usage:   "Access token for the public site repository",
				Sources: cli.EnvVars("MARKPRESS_SITE_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "site-base-url",
				Usage:   "Base URL of the published site",
				Sources: cli.EnvVars("MARKPRESS_SITE_BASE_URL"),
			},
			&cli.StringFlag{
				Name:    "cache",
				Value:   "markpress.db",
				Usage:   "Path to the local document cache",
				Sources: cli.EnvVars("MARKPRESS_CACHE"),
			},
			&cli.DurationFlag{
				Name:    "debounce",
				Value:   2 * time.Second,
				Usage:   "Auto-save debounce window",
				Sources: cli.EnvVars("MARKPRESS_DEBOUNCE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (trace, debug, info, warn, error)",
				Sources: cli.EnvVars("MARKPRESS_LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			publishCommand(),
			unpublishCommand(),
			reconcileCommand(),
			watchCommand(),
			listCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatalf("markpress: %v", err)
	}
}

func buildConfig(cmd *cli.Command) markpress.Config {
	cfg := markpress.DefaultConfig()
	cfg.Private.Owner = cmd.String("owner")
	cfg.Private.Repo = cmd.String("repo")
	cfg.Private.Branch = cmd.String("branch")
	cfg.Private.Dir = cmd.String("dir")
	cfg.Private.Token = cmd.String("token")
	cfg.Cache.Path = cmd.String("cache")
	cfg.Autosave.Debounce = cmd.Duration("debounce")
	cfg.Logging.Provider = "console"
	cfg.Logging.Level = cmd.String("log-level")

	if cmd.String("site-repo") != "" {
		cfg.Site.Enabled = true
		cfg.Site.Repo.Owner = cmd.String("site-owner")
		cfg.Site.Repo.Repo = cmd.String("site-repo")
		cfg.Site.Repo.Branch = "main"
		cfg.Site.Repo.Token = cmd.String("site-token")
		cfg.Site.BaseURL = cmd.String("site-base-url")
	}
	return cfg
}

func buildModule(cmd *cli.Command) (*markpress.Module, error) {
	return markpress.New(buildConfig(cmd))
}

func documentArg(cmd *cli.Command) (uuid.UUID, error) {
	raw := cmd.Args().First()
	if raw == "" {
		return uuid.Nil, fmt.Errorf("a document id argument is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse document id %q: %w", raw, err)
	}
	return id, nil
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "Publish a document to the public site",
		ArgsUsage: "<document-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := documentArg(cmd)
			if err != nil {
				return err
			}
			mod, err := buildModule(cmd)
			if err != nil {
				return err
			}
			defer mod.Close(ctx)

			logger := commands.CommandLogger(mod.LoggerProvider(), "document")
			handler := documentcmd.NewPublishDocumentHandler(mod.Editor(), logger,
				commands.WithTelemetry(commands.DefaultTelemetry[documentcmd.PublishDocumentCommand](logger)))
			if err := handler.Execute(ctx, documentcmd.PublishDocumentCommand{DocumentID: id}); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "published %s\n", id)
			return nil
		},
	}
}

func unpublishCommand() *cli.Command {
	return &cli.Command{
		Name:      "unpublish",
		Usage:     "Remove a document's public post",
		ArgsUsage: "<document-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := documentArg(cmd)
			if err != nil {
				return err
			}
			mod, err := buildModule(cmd)
			if err != nil {
				return err
			}
			defer mod.Close(ctx)

			logger := commands.CommandLogger(mod.LoggerProvider(), "document")
			handler := documentcmd.NewUnpublishDocumentHandler(mod.Editor(), logger,
				commands.WithTelemetry(commands.DefaultTelemetry[documentcmd.UnpublishDocumentCommand](logger)))
			if err := handler.Execute(ctx, documentcmd.UnpublishDocumentCommand{DocumentID: id}); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "unpublished %s\n", id)
			return nil
		},
	}
}

func reconcileCommand() *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Resynchronise the local cache with the remote repository",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Plan changes without applying them",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			mod, err := buildModule(cmd)
			if err != nil {
				return err
			}
			defer mod.Close(ctx)

			logger := commands.CommandLogger(mod.LoggerProvider(), "reconcile")
			handler := documentcmd.NewReconcileHandler(mod.Reconciler(), logger,
				commands.WithTelemetry(commands.DefaultTelemetry[documentcmd.ReconcileCommand](logger)))
			if err := handler.Execute(ctx, documentcmd.ReconcileCommand{DryRun: cmd.Bool("dry-run")}); err != nil {
				return err
			}

			report := handler.LastReport()
			if report == nil {
				return fmt.Errorf("reconcile produced no report")
			}
			for _, change := range report.Changes {
				status := "applied"
				if report.DryRun {
					status = "planned"
				}
				if change.Err != nil {
					status = "failed: " + change.Err.Error()
				}
				fmt.Fprintf(os.Stdout, "%-8s %-40s %s (%s)\n", change.Action, change.Filename, status, change.Reason)
			}
			fmt.Fprintf(os.Stdout, "%d change(s), %d applied, took %s\n",
				len(report.Changes), report.Applied(), report.Duration)
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Mirror a local drafts directory into the remote repository",
		ArgsUsage: "<directory>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			root := cmd.Args().First()
			if root == "" {
				return fmt.Errorf("a directory argument is required")
			}
			mod, err := buildModule(cmd)
			if err != nil {
				return err
			}
			defer mod.Close(ctx)

			watcher, err := drafts.NewWatcher(mod.Editor(), root, logging.ModuleLogger(mod.LoggerProvider(), "drafts"))
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "watching %s; press Ctrl-C to stop\n", root)
			return watcher.Run(ctx)
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List documents",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			mod, err := buildModule(cmd)
			if err != nil {
				return err
			}
			defer mod.Close(ctx)

			summaries, source, err := mod.Editor().List(ctx)
			if err != nil {
				return err
			}
			if source == "cache" {
				fmt.Fprintln(os.Stdout, "(remote unreachable; listing from cache)")
			}
			for _, s := range summaries {
				title := s.Title
				if title == "" {
					title = "(untitled)"
				}
				fmt.Fprintf(os.Stdout, "%s  %-9s %-40s %s\n", s.ID, s.Status, title, s.Filename)
			}
			return nil
		},
	}
}
