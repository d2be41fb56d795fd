package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/icetools/iceflow/pkg/config"
	"github.com/icetools/iceflow/pkg/errors"
	"github.com/icetools/iceflow/pkg/icepanel"
	"github.com/icetools/iceflow/pkg/pipeline"
	"github.com/icetools/iceflow/pkg/render"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version.
// This is typically called by the main package during initialization with values
// injected via ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// exportOpts holds the command-line flags for the root command.
type exportOpts struct {
	flowName    string // flow selector; mutually exclusive with diagramName
	diagramName string // diagram selector; mutually exclusive with flowName
	exportType  string // image format when converting: "png" or "svg"
	convert     bool   // run the external mermaid-cli after emission
	dataDir     string // output directory override
	flatten     bool   // flatten diagram containment instead of nesting subgraphs
}

// Execute runs the iceflow CLI and returns an error if the export fails.
// This is the main entry point for the CLI application.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
//
// The logger is attached to the context and accessible via loggerFromContext.
func Execute(ctx context.Context) error {
	var verbose bool
	opts := exportOpts{exportType: pipeline.ExportPNG}

	root := &cobra.Command{
		Use:           "iceflow",
		Short:         "iceflow exports IcePanel flows and diagrams as Mermaid markup",
		Long:          `iceflow fetches flows and diagrams from an IcePanel landscape and writes them as Mermaid sequence diagrams and flowcharts, optionally converting the markup to PNG or SVG via an external mermaid-cli.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), &opts)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("iceflow %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.Flags().StringVar(&opts.flowName, "flow-name", "", "name of the flow to export")
	root.Flags().StringVar(&opts.diagramName, "diagram-name", "", "name of the diagram to export")
	root.Flags().StringVar(&opts.exportType, "export-type", opts.exportType, "image format when converting: png (default), svg")
	root.Flags().BoolVarP(&opts.convert, "convert", "c", false, "convert the markup to an image via mermaid-cli")
	root.Flags().StringVarP(&opts.dataDir, "data-dir", "d", "", "output directory (overrides config)")
	root.Flags().BoolVar(&opts.flatten, "flatten", false, "flatten diagram containment instead of nesting subgraphs")

	return root.ExecuteContext(ctx)
}

// validateSelectors checks the flow/diagram selector flags before any
// configuration or network work. Exactly one selector must be set, and
// the chosen name must be safe to use in URLs and file names.
func validateSelectors(opts *exportOpts) error {
	switch {
	case opts.flowName != "" && opts.diagramName != "":
		return errors.New(errors.ErrCodeConfig, "--flow-name and --diagram-name are mutually exclusive")
	case opts.flowName == "" && opts.diagramName == "":
		return errors.New(errors.ErrCodeConfig, "one of --flow-name or --diagram-name is required")
	case opts.flowName != "":
		return errors.ValidateName("flow", opts.flowName)
	default:
		return errors.ValidateName("diagram", opts.diagramName)
	}
}

// runExport loads configuration, builds the pipeline, and runs the export.
func runExport(ctx context.Context, opts *exportOpts) error {
	logger := loggerFromContext(ctx)

	if err := validateSelectors(opts); err != nil {
		return err
	}
	if !pipeline.ValidExportTypes[opts.exportType] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid export type %q (must be 'png' or 'svg')", opts.exportType)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}

	client := icepanel.NewClient(cfg.APIKey, cfg.LandscapeID, cfg.Version)

	var renderer render.Renderer = render.Skip{}
	if opts.convert {
		if !cfg.RenderEnabled() {
			return errors.New(errors.ErrCodeConfig, "MMDC_CMD is not set; cannot convert markup to an image")
		}
		renderer = render.NewMMDC(cfg.MmdcCmd)
	}

	runner := pipeline.NewRunner(client, cfg, renderer, logger)

	kind, target := "flow", opts.flowName
	if target == "" {
		kind, target = "diagram", opts.diagramName
	}
	logger.Debugf("Exporting %s %q from %s", kind, target, client.Scope())

	prog := newProgress(logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Fetching %s %q", kind, target))
	spinner.Start()

	result, err := runner.Export(ctx, pipeline.Options{
		FlowName:    opts.flowName,
		DiagramName: opts.diagramName,
		ExportType:  opts.exportType,
		Convert:     opts.convert,
		Flatten:     opts.flatten,
	})
	spinner.Stop()
	if err != nil {
		// Render failures leave the markup behind; point at it.
		if result != nil && result.MarkupPath != "" {
			printWarning("Markup kept at %s", result.MarkupPath)
		}
		return err
	}

	prog.done(fmt.Sprintf("Exported %s %q", kind, result.Name))
	printSuccess("Exported %s %s", kind, StyleHighlight.Render(result.Name))
	printFile(result.MarkupPath)
	if result.ImagePath != "" {
		printFile(result.ImagePath)
	}
	return nil
}
