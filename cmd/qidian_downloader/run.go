package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/qidian-downloader/internal/browser"
	"github.com/jonathan/qidian-downloader/internal/observability"
	"github.com/jonathan/qidian-downloader/internal/rendering"
)

type runOptions struct {
	sessionFlags
	outputDir    string
	templatePath string
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Download a book into one HTML file",
		Long: `Logs in, resolves the table of contents and extracts every chapter in order.
The HTML file is written to --out only when every chapter was extracted.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDownload(cmd, opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.outputDir, "out", "o", "", "Output directory (default: current directory)")
	cmd.Flags().StringVar(&opts.templatePath, "template", "", "Path to an html/template file replacing the built-in layout")
	return cmd
}

func runDownload(cmd *cobra.Command, opts *runOptions) error {
	cfg, err := opts.resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("out") {
		cfg.OutputDir = opts.outputDir
	}

	// Credentials are checked before a browser is started.
	creds, err := cfg.Credentials()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	printer := observability.NewPrinter(os.Stdout)

	e, err := newEngine(cfg, logger, printer.PrintProgress)
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

	doc, err := e.Run(ctx, session, creds, cfg.BookID)
	if err != nil {
		return err
	}

	path, err := rendering.WriteHTML(doc, cfg.OutputDir, opts.templatePath)
	if err != nil {
		return fmt.Errorf("failed to save book: %w", err)
	}
	printer.PrintDocumentSummary(doc, path)
	return nil
}
