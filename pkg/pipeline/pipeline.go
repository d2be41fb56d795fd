// Package pipeline runs the complete export: fetch → normalize →
// emit → write → (optional) render.
//
// The stages run in strict sequence with no shared state between runs.
// The fetched structures live in memory only for the duration of the
// translation; the markup file is written atomically once emission has
// completed in full, so a failed run never leaves a truncated diagram
// file behind.
package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/icetools/iceflow/pkg/config"
	"github.com/icetools/iceflow/pkg/diagram"
	"github.com/icetools/iceflow/pkg/errors"
	"github.com/icetools/iceflow/pkg/icepanel"
	pkgio "github.com/icetools/iceflow/pkg/io"
	"github.com/icetools/iceflow/pkg/mermaid"
	"github.com/icetools/iceflow/pkg/render"
)

// MarkupExt is the file extension of emitted Mermaid files.
const MarkupExt = "mmd"

// Export image formats supported by the external renderer.
const (
	ExportPNG = "png"
	ExportSVG = "svg"
)

// ValidExportTypes is the set of supported image formats.
var ValidExportTypes = map[string]bool{ExportPNG: true, ExportSVG: true}

// API is the slice of the IcePanel client the pipeline consumes.
// *icepanel.Client satisfies it; tests substitute fakes.
type API interface {
	Scope() string
	FindFlowByName(ctx context.Context, name string) (string, error)
	GetFlow(ctx context.Context, id string) (*icepanel.Flow, error)
	FindDiagramByName(ctx context.Context, name string) (string, error)
	GetDiagram(ctx context.Context, id string) (*icepanel.Diagram, error)
	ListModelObjects(ctx context.Context) (map[string]icepanel.ModelObject, error)
	ListModelConnections(ctx context.Context) ([]icepanel.ModelConnection, error)
}

// Options selects what to export and how.
type Options struct {
	FlowName    string // flow selector; mutually exclusive with DiagramName
	DiagramName string // diagram selector; mutually exclusive with FlowName
	ExportType  string // image format when rendering (png or svg)
	Convert     bool   // invoke the external renderer after emission
	Flatten     bool   // flatten diagram containment instead of nesting
}

// Result reports what a run produced. ImagePath is empty when
// rendering was skipped.
type Result struct {
	Name       string
	MarkupPath string
	ImagePath  string
}

// Runner executes exports against one API scope with one fixed
// configuration.
type Runner struct {
	api      API
	cfg      *config.Config
	renderer render.Renderer
	logger   *log.Logger
}

// NewRunner creates a Runner. The renderer is only invoked for runs
// with Convert set.
func NewRunner(api API, cfg *config.Config, renderer render.Renderer, logger *log.Logger) *Runner {
	return &Runner{api: api, cfg: cfg, renderer: renderer, logger: logger}
}

// Export runs the full pipeline for the selector in opts. Exactly one
// of FlowName or DiagramName must be set; the CLI validates this
// before any network call, and the runner re-checks it as a guard.
func (r *Runner) Export(ctx context.Context, opts Options) (*Result, error) {
	switch {
	case opts.FlowName != "" && opts.DiagramName != "":
		return nil, errors.New(errors.ErrCodeConfig, "flow and diagram selectors are mutually exclusive")
	case opts.FlowName != "":
		return r.exportFlow(ctx, opts)
	case opts.DiagramName != "":
		return r.exportDiagram(ctx, opts)
	default:
		return nil, errors.New(errors.ErrCodeConfig, "either a flow name or a diagram name is required")
	}
}

func (r *Runner) exportFlow(ctx context.Context, opts Options) (*Result, error) {
	r.logger.Infof("Resolving flow %q in %s", opts.FlowName, r.api.Scope())
	id, err := r.api.FindFlowByName(ctx, opts.FlowName)
	if err != nil {
		return nil, err
	}

	flow, err := r.api.GetFlow(ctx, id)
	if err != nil {
		return nil, err
	}
	r.logger.Debugf("Fetched flow %s with %d steps", flow.ID, len(flow.Steps))

	dia, err := r.api.GetDiagram(ctx, flow.DiagramID)
	if err != nil {
		return nil, err
	}

	model, err := r.api.ListModelObjects(ctx)
	if err != nil {
		return nil, err
	}

	seq, err := diagram.BuildSequence(flow, dia, model)
	if err != nil {
		return nil, err
	}
	r.logger.Debugf("Normalized %d participants, %d interactions", len(seq.Participants), len(seq.Interactions))

	return r.finish(ctx, opts, seq.Name, mermaid.Sequence(seq))
}

func (r *Runner) exportDiagram(ctx context.Context, opts Options) (*Result, error) {
	r.logger.Infof("Resolving diagram %q in %s", opts.DiagramName, r.api.Scope())
	id, err := r.api.FindDiagramByName(ctx, opts.DiagramName)
	if err != nil {
		return nil, err
	}

	dia, err := r.api.GetDiagram(ctx, id)
	if err != nil {
		return nil, err
	}
	r.logger.Debugf("Fetched diagram %s with %d objects, %d connections", dia.ID, len(dia.Objects), len(dia.Links()))

	model, err := r.api.ListModelObjects(ctx)
	if err != nil {
		return nil, err
	}

	// Some diagrams report no connections of their own; the model
	// layer still knows about them.
	var conns []icepanel.ModelConnection
	if len(dia.Links()) == 0 {
		r.logger.Debug("Diagram has no connections, falling back to model connections")
		conns, err = r.api.ListModelConnections(ctx)
		if err != nil {
			return nil, err
		}
	}

	g, err := diagram.BuildGraph(dia, model, conns, diagram.GraphOptions{Flatten: opts.Flatten})
	if err != nil {
		return nil, err
	}
	r.logger.Debugf("Normalized %d nodes, %d links", len(g.Nodes), len(g.Links))

	return r.finish(ctx, opts, g.Name, mermaid.Flowchart(g))
}

// finish writes the emitted markup atomically and renders it if
// requested. A render failure surfaces as RENDER_ERROR but never
// removes the markup file.
func (r *Runner) finish(ctx context.Context, opts Options, name, markup string) (*Result, error) {
	result := &Result{
		Name:       name,
		MarkupPath: filepath.Join(r.cfg.DataDir, FileName(name, MarkupExt)),
	}

	if err := pkgio.WriteFileAtomic(result.MarkupPath, []byte(markup)); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "write markup to %s", result.MarkupPath)
	}
	r.logger.Infof("Wrote markup to %s", result.MarkupPath)

	if !opts.Convert {
		return result, nil
	}

	exportType := opts.ExportType
	if exportType == "" {
		exportType = ExportPNG
	}
	result.ImagePath = filepath.Join(r.cfg.DataDir, FileName(name, exportType))

	if err := r.renderer.Render(ctx, result.MarkupPath, result.ImagePath); err != nil {
		return result, err
	}
	r.logger.Infof("Rendered image to %s", result.ImagePath)
	return result, nil
}

// FileName derives a safe output filename from a flow or diagram name:
// everything but letters, digits, spaces, dots, and underscores is
// stripped, trailing whitespace is trimmed, and the extension appended.
func FileName(name, ext string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == ' ' || r == '.' || r == '_':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	base := strings.TrimRight(b.String(), " ")
	if base == "" {
		base = "diagram"
	}
	return base + "." + ext
}
