// Package output renders command results as text, JSON, or markdown,
// adapting to whether stdout is a terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Mode selects the output format.
type Mode string

const (
	// ModeAuto picks text on a terminal and markdown when piped.
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeJSON     Mode = "json"
	ModeMarkdown Mode = "markdown"
)

// Renderer writes command output in the selected mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	isTTY  bool
	mode   Mode
	styles *Styles
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
// Color honors NO_COLOR and friends via termenv.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	r := newRenderer(out, errOut, isTTY, mode)
	if termenv.EnvNoColor() {
		r.styles = newStyles(false)
	}
	return r
}

// NewRendererWithTTY creates a renderer with an explicit TTY setting.
// Tests use it to pin rendering behavior.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	return newRenderer(out, errOut, isTTY, mode)
}

func newRenderer(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	switch mode {
	case ModeText, ModeJSON, ModeMarkdown:
	default:
		mode = ModeAuto
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		isTTY:  isTTY,
		mode:   mode,
		styles: newStyles(isTTY),
	}
}

// EffectiveMode resolves ModeAuto: text on a terminal, markdown when
// piped.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// Writer returns the destination for primary output.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the destination for progress and diagnostics.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

// IsTTY reports whether output goes to a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Styles returns the style set matching the TTY state.
func (r *Renderer) Styles() *Styles { return r.styles }

// Println writes a line to the output writer.
func (r *Renderer) Println(args ...any) {
	_, _ = fmt.Fprintln(r.out, args...)
}

// Printf writes formatted output to the output writer.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Header prints a styled heading. Level 1 is for command titles,
// deeper levels for sections.
func (r *Renderer) Header(level int, text string) {
	style := r.styles.Header1
	if level > 1 {
		style = r.styles.Header2
	}
	r.Println(style.Render(text))
}

// Success prints a check-marked line.
func (r *Renderer) Success(msg string) {
	r.Println(r.styles.Success.Render("✓") + " " + msg)
}

// Warning prints a warning line.
func (r *Renderer) Warning(msg string) {
	r.Println(r.styles.Warning.Render("!") + " " + msg)
}

// Muted prints a dimmed line.
func (r *Renderer) Muted(msg string) {
	r.Println(r.styles.Muted.Render(msg))
}

// StatusLine prints an indented name with a status mark and optional
// detail: file-creation lines, per-step progress, and the like.
func (r *Renderer) StatusLine(name, status, detail string) {
	line := fmt.Sprintf("  %s %s", r.statusMark(status), name)
	if detail != "" {
		line += " " + r.styles.Muted.Render(detail)
	}
	r.Println(line)
}

func (r *Renderer) statusMark(status string) string {
	switch status {
	case "success", "completed":
		return r.styles.StatusSuccess.Render("✓")
	case "failed", "error":
		return r.styles.StatusFailed.Render("✗")
	case "skipped":
		return r.styles.Muted.Render("-")
	default:
		return r.styles.Muted.Render("·")
	}
}

// StepLine prints one ordered plan entry.
func (r *Renderer) StepLine(i int, id, detail string) {
	line := fmt.Sprintf("%3d. %s", i, r.styles.StepID.Render(id))
	if detail != "" {
		line += "  " + r.styles.Muted.Render(detail)
	}
	r.Println(line)
}
