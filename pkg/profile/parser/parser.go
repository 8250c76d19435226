// Package parser reads sampling-profile YAML documents, with the same
// ${VAR}/$VAR substitution the teacher's scenario parser supports so a
// profile can reference environment-specific hosts without hardcoding
// them.
package parser

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jihwankim/remoteperf/pkg/profile"
)

var varRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// Parser parses profile YAML, substituting variables before unmarshal.
type Parser struct {
	Variables map[string]string
}

// New creates a Parser with optional pre-seeded variables.
func New(variables map[string]string) *Parser {
	if variables == nil {
		variables = make(map[string]string)
	}
	return &Parser{Variables: variables}
}

// ParseFile reads and parses a profile from path.
func (p *Parser) ParseFile(path string) (*profile.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}
	return p.Parse(data)
}

// Parse parses a profile from YAML bytes.
func (p *Parser) Parse(data []byte) (*profile.Profile, error) {
	substituted := p.substituteVariables(string(data))

	var out profile.Profile
	if err := yaml.Unmarshal([]byte(substituted), &out); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateRequiredFields(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Parser) substituteVariables(content string) string {
	return varRe.ReplaceAllStringFunc(content, func(match string) string {
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}
		if v, ok := p.Variables[name]; ok {
			return v
		}
		if v := os.Getenv(name); v != "" {
			return v
		}
		return match
	})
}

// SetVariable sets one substitution variable.
func (p *Parser) SetVariable(key, value string) { p.Variables[key] = value }

func validateRequiredFields(pr *profile.Profile) error {
	if pr.APIVersion == "" {
		return fmt.Errorf("apiVersion is required")
	}
	if pr.Kind == "" {
		return fmt.Errorf("kind is required")
	}
	if len(pr.Targets) == 0 {
		return fmt.Errorf("targets is required and must have at least one entry")
	}
	if len(pr.Samplers) == 0 {
		return fmt.Errorf("samplers is required and must have at least one entry")
	}
	for i, t := range pr.Targets {
		if t.Family == "" {
			return fmt.Errorf("targets[%d].family is required", i)
		}
		if t.Host == "" {
			return fmt.Errorf("targets[%d].host is required", i)
		}
	}
	for i, s := range pr.Samplers {
		if s.Kind == "" {
			return fmt.Errorf("samplers[%d].kind is required", i)
		}
	}
	return nil
}
