// Package policy assigns a block family to each tensor from the
// model's scale class and the tensor's structural role. The assignment
// is computed once per quantization run and never re-evaluated.
package policy

import (
	"fmt"

	"github.com/strataml/strata/pkg/blockfmt"
)

// ScaleClass partitions models by total parameter count.
type ScaleClass int

const (
	ScaleSmall  ScaleClass = iota // <= 2e9 params
	ScaleMedium                   // <= 1e10 params
	ScaleLarge                    // above
)

const (
	smallMaxParams  = 2_000_000_000
	mediumMaxParams = 10_000_000_000
)

func (c ScaleClass) String() string {
	switch c {
	case ScaleSmall:
		return "small"
	case ScaleMedium:
		return "medium"
	case ScaleLarge:
		return "large"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Classify maps a total parameter count to its scale class. Both upper
// boundaries are inclusive.
func Classify(totalParams uint64) ScaleClass {
	switch {
	case totalParams <= smallMaxParams:
		return ScaleSmall
	case totalParams <= mediumMaxParams:
		return ScaleMedium
	default:
		return ScaleLarge
	}
}

// Role is a tensor's structural role tag, supplied by the model
// loader. The codec never inspects tensor names itself.
type Role string

const (
	RoleAttnV      Role = "attn_v"
	RoleAttnOutput Role = "attn_output"
	RoleAttnQKV    Role = "attn_qkv"
	RoleFFNGate    Role = "ffn_gate"
	RoleFFNDown    Role = "ffn_down"
	RoleTokenEmbd  Role = "token_embd"
	RoleOutput     Role = "output"
	RoleOther      Role = "other"
)

// Rule maps one role to a block family. Rules are evaluated in order;
// the first match wins.
type Rule struct {
	Role Role
	Type blockfmt.Type
}

// RuleSet holds the ordered rule table and default family for each
// scale class.
type RuleSet struct {
	Rules    map[ScaleClass][]Rule
	Defaults map[ScaleClass]blockfmt.Type
}

// Policy is the immutable per-run assignment table: a scale class
// resolved once from the parameter count plus that class's rules.
type Policy struct {
	class ScaleClass
	rules []Rule
	def   blockfmt.Type
}

// New builds the policy for a model of the given size using the
// built-in rule set.
func New(totalParams uint64) *Policy {
	return NewWithRules(totalParams, DefaultRules())
}

// NewWithRules builds the policy from an explicit rule set, typically
// loaded from a config file.
func NewWithRules(totalParams uint64, rs *RuleSet) *Policy {
	class := Classify(totalParams)
	return &Policy{
		class: class,
		rules: rs.Rules[class],
		def:   rs.Defaults[class],
	}
}

// Class returns the resolved scale class.
func (p *Policy) Class() ScaleClass { return p.class }

// Assign returns the block family for a tensor with the given role.
func (p *Policy) Assign(role Role) blockfmt.Type {
	for _, r := range p.rules {
		if r.Role == role {
			return r.Type
		}
	}
	return p.def
}

// DefaultRules returns the built-in rule tables. Small models carry
// the least redundancy, so their sensitive tensors stay widest; large
// models push the bulk feed-forward weights onto the outlier-aware
// 3-bit family where the capacity overhead amortizes best.
func DefaultRules() *RuleSet {
	return &RuleSet{
		Rules: map[ScaleClass][]Rule{
			ScaleSmall: {
				{RoleOutput, blockfmt.TypeQ8_0},
				{RoleTokenEmbd, blockfmt.TypeQ8_0},
				{RoleAttnV, blockfmt.TypeQ8_0},
				{RoleFFNDown, blockfmt.TypeQ5_1},
			},
			ScaleMedium: {
				{RoleOutput, blockfmt.TypeQ8_0},
				{RoleTokenEmbd, blockfmt.TypeQ5_1},
				{RoleAttnV, blockfmt.TypeQ5_0},
				{RoleFFNDown, blockfmt.TypeQ5_0},
				{RoleFFNGate, blockfmt.TypeQ3H},
			},
			ScaleLarge: {
				{RoleOutput, blockfmt.TypeQ8_0},
				{RoleTokenEmbd, blockfmt.TypeQ4_1},
				{RoleAttnV, blockfmt.TypeQ5_0},
				{RoleAttnOutput, blockfmt.TypeQ4_0},
				{RoleFFNGate, blockfmt.TypeQ3H},
				{RoleFFNDown, blockfmt.TypeQ3H},
			},
		},
		Defaults: map[ScaleClass]blockfmt.Type{
			ScaleSmall:  blockfmt.TypeQ5_0,
			ScaleMedium: blockfmt.TypeQ4_0,
			ScaleLarge:  blockfmt.TypeQ4_0,
		},
	}
}
