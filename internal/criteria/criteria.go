// Package criteria loads the diagnosis criteria: regulation versions, directive sections and the
// risk tier table used to classify scores.
package criteria

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/climatewash/internal/types"
)

//go:embed default.yaml
var defaultCriteria []byte

// Version is a named set of criteria sections
type Version struct {
	Name     string   `yaml:"name" json:"name"`
	Sections []string `yaml:"sections" json:"sections"`
}

// Directive groups the sections contributed by one regulation
type Directive struct {
	Label    string   `yaml:"label" json:"label"`
	Sections []string `yaml:"sections" json:"sections"`
}

// Criteria is the full diagnosis configuration
type Criteria struct {
	DefaultVersion string             `yaml:"default_version" json:"default_version"`
	Versions       map[string]Version `yaml:"versions" json:"versions"`
	Directives     struct {
		Empowerment Directive `yaml:"empowerment" json:"empowerment"`
		GreenClaims Directive `yaml:"green_claims" json:"green_claims"`
	} `yaml:"directives" json:"directives"`
	DirectiveLabels struct {
		Both            string `yaml:"both" json:"both"`
		EmpowermentOnly string `yaml:"empowerment_only" json:"empowerment_only"`
	} `yaml:"directive_labels" json:"directive_labels"`
	RiskLevels []types.RiskLevel `yaml:"risk_levels" json:"risk_levels"`

	table *Table
}

// Selection is the criteria applied to one diagnosis
type Selection struct {
	Version    string
	Directives string
	Sections   []string
}

// Default returns the embedded criteria
func Default() (*Criteria, error) {
	return Parse(defaultCriteria)
}

// Load reads criteria from path, falling back to the embedded default when path is empty
func Load(path string) (*Criteria, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to read criteria file", Cause: err}
	}
	c, err := Parse(data)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "invalid criteria file", Cause: err}
	}
	return c, nil
}

// Parse decodes and validates YAML criteria
func Parse(data []byte) (*Criteria, error) {
	var c Criteria
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse criteria: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the versions and builds the risk table
func (c *Criteria) Validate() error {
	if len(c.Versions) == 0 {
		return &ValidationError{Field: "versions", Message: "at least one version is required"}
	}
	if c.DefaultVersion == "" {
		return &ValidationError{Field: "default_version", Message: "default version is required"}
	}
	if _, ok := c.Versions[c.DefaultVersion]; !ok {
		return &ValidationError{Field: "default_version", Message: fmt.Sprintf("unknown version %q", c.DefaultVersion)}
	}

	table, err := NewTable(c.RiskLevels)
	if err != nil {
		return err
	}
	c.table = table
	return nil
}

// Table returns the validated risk tier table
func (c *Criteria) Table() *Table {
	return c.table
}

// VersionIDs returns the configured version ids in sorted order
func (c *Criteria) VersionIDs() []string {
	ids := make([]string, 0, len(c.Versions))
	for id := range c.Versions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Select resolves the sections for a version and directive choice.
// An empty version selects the default.
func (c *Criteria) Select(version string, greenClaims bool) (Selection, error) {
	if version == "" {
		version = c.DefaultVersion
	}
	v, ok := c.Versions[version]
	if !ok {
		return Selection{}, &ValidationError{Field: "version", Message: fmt.Sprintf("unknown version %q", version)}
	}

	sections := make([]string, 0, len(v.Sections)+len(c.Directives.Empowerment.Sections)+len(c.Directives.GreenClaims.Sections))
	sections = append(sections, v.Sections...)
	sections = append(sections, c.Directives.Empowerment.Sections...)

	label := c.DirectiveLabels.EmpowermentOnly
	if greenClaims {
		sections = append(sections, c.Directives.GreenClaims.Sections...)
		label = c.DirectiveLabels.Both
	}

	return Selection{Version: version, Directives: label, Sections: sections}, nil
}
