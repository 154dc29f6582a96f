package output

// PlanStep is one step of a compiled plan in JSON output.
type PlanStep struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Name      string   `json:"name"`
	DependsOn []string `json:"depends_on,omitempty"`
	Detail    string   `json:"detail,omitempty"`
}

// PlanOutput is the JSON document for the plan command.
type PlanOutput struct {
	Pipeline string     `json:"pipeline"`
	Profile  string     `json:"profile,omitempty"`
	Steps    []PlanStep `json:"steps"`
}

// Diagnostic is a span-annotated error in JSON output.
type Diagnostic struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidateOutput is the JSON document for the validate command.
type ValidateOutput struct {
	Pipeline string       `json:"pipeline"`
	Valid    bool         `json:"valid"`
	Errors   []Diagnostic `json:"errors,omitempty"`
}

// LintDiagnostic is one lint finding.
type LintDiagnostic struct {
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
}

// LintFileResult groups lint findings per file.
type LintFileResult struct {
	Path        string           `json:"path"`
	Diagnostics []LintDiagnostic `json:"diagnostics"`
}

// LintSummary totals lint findings by severity.
type LintSummary struct {
	Files    int `json:"files"`
	Total    int `json:"total"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
	Hints    int `json:"hints"`
}

// LintOutput is the JSON document for the lint command.
type LintOutput struct {
	Results []LintFileResult `json:"results"`
	Summary LintSummary      `json:"summary"`
}

// VarInfo describes one variable expression found in a pipeline.
type VarInfo struct {
	Name       string `json:"name"`
	Default    string `json:"default,omitempty"`
	HasDefault bool   `json:"has_default"`
	Value      string `json:"value,omitempty"`
	Resolved   bool   `json:"resolved"`
}

// VarsOutput is the JSON document for the vars command.
type VarsOutput struct {
	Pipeline  string    `json:"pipeline"`
	Profile   string    `json:"profile,omitempty"`
	Variables []VarInfo `json:"variables"`
}
