package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/qidian-downloader/internal/browser"
	"github.com/jonathan/qidian-downloader/internal/observability"
)

func newCatalogCommand() *cobra.Command {
	flags := &sessionFlags{}
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the table of contents of a book",
		Long:  "Logs in and resolves the table of contents of a book without downloading any chapter.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCatalog(cmd, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func runCatalog(cmd *cobra.Command, flags *sessionFlags) error {
	cfg, err := flags.resolveConfig(cmd)
	if err != nil {
		return err
	}
	creds, err := cfg.Credentials()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	printer := observability.NewPrinter(os.Stdout)

	e, err := newEngine(cfg, logger, nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	session, err := browser.Launch(ctx, launchOptions(cfg, logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("failed to close browser", "error", err)
		}
	}()

	cat, err := e.TableOfContents(ctx, session, creds, cfg.BookID)
	if err != nil {
		return err
	}
	printer.PrintCatalog(cat)
	return nil
}
