package policy

import (
	"testing"

	"github.com/strataml/strata/pkg/blockfmt"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		params uint64
		want   ScaleClass
	}{
		{1_700_000_000, ScaleSmall},
		{2_000_000_000, ScaleSmall}, // boundary is inclusive
		{2_000_000_001, ScaleMedium},
		{4_000_000_000, ScaleMedium},
		{10_000_000_000, ScaleMedium}, // boundary is inclusive
		{10_000_000_001, ScaleLarge},
		{123_000_000_000, ScaleLarge},
	}
	for _, tc := range tests {
		if got := Classify(tc.params); got != tc.want {
			t.Errorf("Classify(%d) = %s, want %s", tc.params, got, tc.want)
		}
	}
}

func TestAssign(t *testing.T) {
	large := New(123_000_000_000)
	if large.Class() != ScaleLarge {
		t.Fatalf("class = %s, want large", large.Class())
	}
	tests := []struct {
		role Role
		want blockfmt.Type
	}{
		{RoleOutput, blockfmt.TypeQ8_0},
		{RoleFFNDown, blockfmt.TypeQ3H},
		{RoleFFNGate, blockfmt.TypeQ3H},
		{RoleAttnV, blockfmt.TypeQ5_0},
		{RoleOther, blockfmt.TypeQ4_0},         // class default
		{Role("attn_norm"), blockfmt.TypeQ4_0}, // unknown role: default
	}
	for _, tc := range tests {
		if got := large.Assign(tc.role); got != tc.want {
			t.Errorf("large.Assign(%s) = %s, want %s", tc.role, got, tc.want)
		}
	}

	small := New(500_000_000)
	if got := small.Assign(RoleAttnV); got != blockfmt.TypeQ8_0 {
		t.Errorf("small.Assign(attn_v) = %s, want q8_0", got)
	}
	if got := small.Assign(RoleOther); got != blockfmt.TypeQ5_0 {
		t.Errorf("small default = %s, want q5_0", got)
	}
}

func TestAssignFirstMatchWins(t *testing.T) {
	rs := &RuleSet{
		Rules: map[ScaleClass][]Rule{
			ScaleSmall: {
				{RoleFFNDown, blockfmt.TypeQ8_0},
				{RoleFFNDown, blockfmt.TypeQ4_0}, // shadowed
			},
		},
		Defaults: map[ScaleClass]blockfmt.Type{ScaleSmall: blockfmt.TypeQ5_0},
	}
	p := NewWithRules(1_000_000_000, rs)
	if got := p.Assign(RoleFFNDown); got != blockfmt.TypeQ8_0 {
		t.Errorf("first matching rule must win, got %s", got)
	}
}

func TestParseRules(t *testing.T) {
	data := []byte(`
small:
  default: q4_1
  rules:
    - role: output
      type: q8_0
    - role: ffn_down
      type: q3h
`)
	rs, err := ParseRules(data)
	if err != nil {
		t.Fatal(err)
	}
	p := NewWithRules(1_000_000_000, rs)
	if got := p.Assign(RoleOutput); got != blockfmt.TypeQ8_0 {
		t.Errorf("Assign(output) = %s, want q8_0", got)
	}
	if got := p.Assign(RoleFFNDown); got != blockfmt.TypeQ3H {
		t.Errorf("Assign(ffn_down) = %s, want q3h", got)
	}
	if got := p.Assign(RoleOther); got != blockfmt.TypeQ4_1 {
		t.Errorf("default = %s, want q4_1", got)
	}

	// Untouched classes keep their built-in tables.
	large := NewWithRules(123_000_000_000, rs)
	if got := large.Assign(RoleFFNDown); got != blockfmt.TypeQ3H {
		t.Errorf("large table should be unchanged, got %s", got)
	}
}

func TestParseRulesRejectsUnknownType(t *testing.T) {
	if _, err := ParseRules([]byte("small:\n  default: q9_9\n")); err == nil {
		t.Error("unknown family name should fail")
	}
}
