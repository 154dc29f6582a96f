// Package testutil provides helpers for CLI tests.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapflow/internal/cli/output"
)

// SetupTestProject creates a temporary project with a config file, a
// sample pipeline, and the CSV it loads. Returns the project root.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	for _, dir := range []string{
		filepath.Join(tmpDir, "pipelines"),
		filepath.Join(tmpDir, "data"),
	} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	cfg := `project: test_project
profile: dev

profiles:
  dev:
    variables:
      run_date: "2024-03-18"
    connectors:
      warehouse:
        type: duckdb
        params:
          path: ` + filepath.Join(tmpDir, "dev.duckdb") + `
`
	if err := os.WriteFile(filepath.Join(tmpDir, "leapflow.yaml"), []byte(cfg), 0600); err != nil {
		t.Fatalf("failed to create leapflow.yaml: %v", err)
	}

	pipeline := `SOURCE orders TYPE csv PARAMS {
    "path": "data/orders.csv",
    "header": true
};

LOAD raw_orders FROM orders MODE replace;

CREATE TABLE order_totals AS
SELECT customer_id, SUM(amount) AS total
FROM raw_orders
GROUP BY customer_id;
`
	WritePipeline(t, tmpDir, "orders.flow", pipeline)

	csv := `order_id,customer_id,amount
1,c_001,19.90
2,c_002,42.00
3,c_001,7.50
`
	if err := os.WriteFile(filepath.Join(tmpDir, "data", "orders.csv"), []byte(csv), 0600); err != nil {
		t.Fatalf("failed to create orders.csv: %v", err)
	}

	return tmpDir
}

// WritePipeline writes a .flow file under dir/pipelines and returns its path.
func WritePipeline(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, "pipelines", name)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatalf("failed to create pipelines dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
	return path
}

// TestRenderer wraps a Renderer with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a renderer with the given mode and TTY state,
// capturing output in buffers.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a test renderer in text mode with a
// simulated TTY.
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the captured stdout as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the captured stderr as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertContains checks that the string contains the expected substring.
func AssertContains(t *testing.T, s, expected string) {
	t.Helper()
	if !strings.Contains(s, expected) {
		t.Errorf("string %q does not contain expected %q", s, expected)
	}
}

// AssertNotContains checks that the string does not contain the substring.
func AssertNotContains(t *testing.T, s, unexpected string) {
	t.Helper()
	if strings.Contains(s, unexpected) {
		t.Errorf("string %q unexpectedly contains %q", s, unexpected)
	}
}
