// Package render invokes the external Mermaid renderer.
//
// Rendering is deliberately out of process: the tool emits markup and
// delegates image generation to the mermaid-cli binary (mmdc) named in
// the configuration. The contract is narrow so an in-process renderer
// could be swapped in without touching normalization or emission: a
// renderer either succeeds or fails with RENDER_ERROR, and it never
// touches the already-written markup file.
package render

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/icetools/iceflow/pkg/errors"
)

// Renderer turns a markup file into an image file.
type Renderer interface {
	// Render converts markupPath into outputPath. The markup file is
	// left in place regardless of the outcome.
	Render(ctx context.Context, markupPath, outputPath string) error
}

// MMDC shells out to the mermaid-cli binary at Cmd.
type MMDC struct {
	Cmd string
}

// NewMMDC creates a renderer for the given mermaid-cli path.
func NewMMDC(cmd string) *MMDC {
	return &MMDC{Cmd: cmd}
}

// Render runs `mmdc -i markupPath -o outputPath`. mmdc derives the
// image format from the output extension. A missing binary or a
// non-zero exit becomes RENDER_ERROR carrying the tool's stderr.
func (m *MMDC) Render(ctx context.Context, markupPath, outputPath string) error {
	if _, err := exec.LookPath(m.Cmd); err != nil {
		return errors.Wrap(errors.ErrCodeRender, err, "renderer %q not found", m.Cmd)
	}

	cmd := exec.CommandContext(ctx, m.Cmd, "-i", markupPath, "-o", outputPath)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(errBuf.String())
		if detail == "" {
			detail = strings.TrimSpace(out.String())
		}
		return errors.Wrap(errors.ErrCodeRender, err, "%s failed: %s", m.Cmd, detail)
	}
	return nil
}

// Skip is the renderer used when no external renderer is configured.
// It never starts a subprocess.
type Skip struct{}

// Render is a no-op.
func (Skip) Render(ctx context.Context, markupPath, outputPath string) error {
	return nil
}
