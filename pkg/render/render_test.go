package render

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/icetools/iceflow/pkg/errors"
)

// stubRenderer writes a shell script standing in for mmdc.
func stubRenderer(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "mmdc")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMMDCSuccess(t *testing.T) {
	dir := t.TempDir()
	markup := filepath.Join(dir, "flow.mmd")
	output := filepath.Join(dir, "flow.png")
	if err := os.WriteFile(markup, []byte("sequenceDiagram\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Copies input to output like a well-behaved converter.
	cmd := stubRenderer(t, `while [ $# -gt 0 ]; do
  case "$1" in
    -i) in="$2"; shift ;;
    -o) out="$2"; shift ;;
  esac
  shift
done
cp "$in" "$out"`)

	r := NewMMDC(cmd)
	if err := r.Render(context.Background(), markup, output); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if _, err := os.Stat(output); err != nil {
		t.Errorf("output file missing: %v", err)
	}
}

func TestMMDCFailureKeepsMarkup(t *testing.T) {
	dir := t.TempDir()
	markup := filepath.Join(dir, "flow.mmd")
	if err := os.WriteFile(markup, []byte("sequenceDiagram\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := stubRenderer(t, `echo "puppeteer crashed" >&2
exit 1`)

	r := NewMMDC(cmd)
	err := r.Render(context.Background(), markup, filepath.Join(dir, "flow.png"))
	if !errors.Is(err, errors.ErrCodeRender) {
		t.Fatalf("error = %v, want RENDER_ERROR", err)
	}
	if !strings.Contains(err.Error(), "puppeteer crashed") {
		t.Errorf("error %q does not carry tool stderr", err)
	}

	// The emitted markup must survive a failed render.
	if _, statErr := os.Stat(markup); statErr != nil {
		t.Errorf("markup file deleted on render failure: %v", statErr)
	}
}

func TestMMDCMissingBinary(t *testing.T) {
	r := NewMMDC(filepath.Join(t.TempDir(), "no-such-mmdc"))
	err := r.Render(context.Background(), "in.mmd", "out.png")
	if !errors.Is(err, errors.ErrCodeRender) {
		t.Fatalf("error = %v, want RENDER_ERROR", err)
	}
}

func TestSkipDoesNothing(t *testing.T) {
	if err := (Skip{}).Render(context.Background(), "in.mmd", "out.png"); err != nil {
		t.Fatalf("Skip.Render returned %v", err)
	}
}
