// Package config loads leapflow.yaml project configuration.
//
// A project file names the pipeline's profiles; each profile carries a
// variables map (the bindings handed to substitution) and a connectors
// map (the databases plans run against). The active profile is chosen
// by flag, environment variable, or the file's own profile key.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapflow/pkg/connector"
	"github.com/leapstack-labs/leapflow/pkg/subst"
	"github.com/leapstack-labs/leapflow/pkg/value"
)

// Config holds all project configuration options.
type Config struct {
	Project          string             `koanf:"project"`
	Profile          string             `koanf:"profile"`
	StatePath        string             `koanf:"state_path"`
	DefaultConnector string             `koanf:"default_connector"`
	Verbose          bool               `koanf:"verbose"`
	Output           string             `koanf:"output"`
	Profiles         map[string]Profile `koanf:"profiles"`

	// ProjectRoot is the directory leapflow.yaml was found in, or the
	// working directory when no file exists. Relative paths in the
	// config resolve against it.
	ProjectRoot string `koanf:"-"`

	// ConfigFile is the path of the loaded config file, if any.
	ConfigFile string `koanf:"-"`
}

// Profile holds one environment's variable bindings and connectors.
type Profile struct {
	Variables  map[string]any             `koanf:"variables"`
	Connectors map[string]ConnectorConfig `koanf:"connectors"`
}

// ConnectorConfig holds one connector's type and parameters.
type ConnectorConfig struct {
	Type   string         `koanf:"type"`
	Params map[string]any `koanf:"params"`
}

// Default configuration values.
const (
	DefaultProfile   = "dev"
	DefaultStateFile = ".leapflow/state.db"
	DefaultOutput    = "auto" // Auto-detect: TTY=table, non-TTY=markdown
)

// ActiveProfile resolves the selected profile. A project with no
// profiles yields an empty profile; a project with profiles must
// contain the selected one.
func (c *Config) ActiveProfile() (Profile, error) {
	name := c.Profile
	if name == "" {
		name = DefaultProfile
	}
	if len(c.Profiles) == 0 {
		return Profile{}, nil
	}
	profile, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile %q is not defined in %s (available: %s)",
			name, ConfigFileName, strings.Join(profileNames(c.Profiles), ", "))
	}
	return profile, nil
}

// Validate checks the active profile's connectors against the
// connector registry.
func (c *Config) Validate() error {
	profile, err := c.ActiveProfile()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(profile.Connectors))
	for name := range profile.Connectors {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cc := profile.Connectors[name]
		if cc.Type == "" {
			return fmt.Errorf("connector %q has no type", name)
		}
		if !connector.IsRegistered(strings.ToLower(cc.Type)) {
			return &connector.UnknownConnectorError{Type: cc.Type, Available: connector.List()}
		}
	}
	return nil
}

// Vars converts the profile's variables into substitution bindings.
// Values keep their YAML types; ${VAR} references in string values are
// expanded from the process environment first.
func (p Profile) Vars() subst.Vars {
	vars := make(subst.Vars, len(p.Variables))
	for name, raw := range p.Variables {
		if s, ok := raw.(string); ok {
			raw = ExpandEnv(s)
		}
		vars[name] = value.FromAny(raw)
	}
	return vars
}

// Connector returns the named connector's configuration, with ${VAR}
// references in string params expanded.
func (p Profile) Connector(name string) (connector.Config, error) {
	cc, ok := p.Connectors[name]
	if !ok {
		if len(p.Connectors) == 0 {
			return connector.Config{}, fmt.Errorf("connector %q is not defined: the active profile has no connectors", name)
		}
		names := make([]string, 0, len(p.Connectors))
		for n := range p.Connectors {
			names = append(names, n)
		}
		sort.Strings(names)
		return connector.Config{}, fmt.Errorf("connector %q is not defined in the active profile (available: %s)",
			name, strings.Join(names, ", "))
	}
	if cc.Type == "" {
		return connector.Config{}, fmt.Errorf("connector %q has no type", name)
	}

	cfg := connector.Config{Type: cc.Type}
	if len(cc.Params) > 0 {
		params, _ := value.FromAny(expandAnyEnv(cc.Params)).(*value.Object)
		cfg.Params = params
	}
	return cfg, nil
}

func profileNames(profiles map[string]Profile) []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// expandAnyEnv expands ${VAR} references in every string leaf of a
// decoded YAML tree.
func expandAnyEnv(v any) any {
	switch val := v.(type) {
	case string:
		return ExpandEnv(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = expandAnyEnv(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = expandAnyEnv(elem)
		}
		return out
	default:
		return v
	}
}
