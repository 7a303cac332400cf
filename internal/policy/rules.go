package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/strataml/strata/pkg/blockfmt"
)

// Rule files override the built-in tables per scale class:
//
//	small:
//	  default: q5_0
//	  rules:
//	    - role: output
//	      type: q8_0
//
// Classes absent from the file keep their built-in rules.

type ruleFile struct {
	Small  *classConfig `yaml:"small"`
	Medium *classConfig `yaml:"medium"`
	Large  *classConfig `yaml:"large"`
}

type classConfig struct {
	Default string       `yaml:"default"`
	Rules   []ruleConfig `yaml:"rules"`
}

type ruleConfig struct {
	Role string `yaml:"role"`
	Type string `yaml:"type"`
}

// LoadRules reads a YAML rule file and merges it over the built-in
// rule set.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRules(data)
}

// ParseRules merges YAML rule data over the built-in rule set.
func ParseRules(data []byte) (*RuleSet, error) {
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("policy: parse rules: %w", err)
	}

	rs := DefaultRules()
	for class, cc := range map[ScaleClass]*classConfig{
		ScaleSmall:  rf.Small,
		ScaleMedium: rf.Medium,
		ScaleLarge:  rf.Large,
	} {
		if cc == nil {
			continue
		}
		if cc.Default != "" {
			t, err := blockfmt.ParseType(cc.Default)
			if err != nil {
				return nil, fmt.Errorf("policy: %s default: %w", class, err)
			}
			rs.Defaults[class] = t
		}
		if len(cc.Rules) > 0 {
			rules := make([]Rule, 0, len(cc.Rules))
			for _, rc := range cc.Rules {
				t, err := blockfmt.ParseType(rc.Type)
				if err != nil {
					return nil, fmt.Errorf("policy: %s rule %q: %w", class, rc.Role, err)
				}
				rules = append(rules, Rule{Role: Role(rc.Role), Type: t})
			}
			rs.Rules[class] = rules
		}
	}
	return rs, nil
}
