package match

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var embeddedRules []byte

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules returns the built-in rule table covering energy poverty,
// health, geography, and measurement vocabulary.
func DefaultRules() ([]Rule, error) {
	return parseRules(embeddedRules)
}

// LoadRules reads a rule table from a YAML file, replacing the built-in
// table entirely.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return parseRules(data)
}

func parseRules(data []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rules file defines no rules")
	}
	return f.Rules, nil
}
