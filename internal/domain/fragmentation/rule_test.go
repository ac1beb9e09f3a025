package fragmentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/turtacn/molfrag/pkg/errors"
)

func TestAllRules_EveryRuleHasHandlerAndDescription(t *testing.T) {
	rules := AllRules()
	assert.Equal(t, []Rule{RuleCOD, RuleCODOO, RuleOXE, RuleOXEPD, RuleOXH, RuleOXHPD}, rules)
	for _, r := range rules {
		assert.True(t, r.IsValid(), r)
		assert.NotEmpty(t, r.Description(), r)
		entry, ok := ruleTable[r]
		require.True(t, ok, r)
		assert.NoError(t, entry.pattern.Validate(), r)
	}
	assert.Len(t, ruleTable, len(rules))
}

func TestRule_IsValid(t *testing.T) {
	assert.False(t, Rule("not_a_rule").IsValid())
	assert.False(t, Rule("").IsValid())
	assert.Empty(t, Rule("bogus").Description())
	assert.Equal(t, "oxe", RuleOXE.String())
}

func TestParseRule(t *testing.T) {
	r, err := ParseRule(" OXHPD ")
	require.NoError(t, err)
	assert.Equal(t, RuleOXHPD, r)

	_, err = ParseRule("not_a_rule")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsInvalidRule(err))
	assert.Contains(t, err.Error(), `"not_a_rule"`)
}

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]string{"oxh", "cod"})
	require.NoError(t, err)
	assert.Equal(t, []Rule{RuleOXH, RuleCOD}, rules)

	_, err = ParseRules([]string{"cod", "nope"})
	assert.True(t, pkgerrors.IsInvalidRule(err))

	rules, err = ParseRules(nil)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestParseErrorPolicy(t *testing.T) {
	cases := map[string]ErrorPolicy{"": PolicyRemove, "remove": PolicyRemove, "IGNORE": PolicyIgnore, "fix": PolicyFix}
	for in, want := range cases {
		got, err := ParseErrorPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseErrorPolicy("repair")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeValidation))
}

func TestOptions_Validate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	cases := []struct {
		name string
		mut  func(*Options)
		code pkgerrors.ErrorCode
	}{
		{"no rules", func(o *Options) { o.Rules = nil }, pkgerrors.ErrCodeInvalidRule},
		{"unknown rule", func(o *Options) { o.Rules = []Rule{"not_a_rule"} }, pkgerrors.ErrCodeInvalidRule},
		{"fix policy", func(o *Options) { o.ErrorPolicy = PolicyFix }, pkgerrors.ErrCodeUnsupportedPolicy},
		{"unknown policy", func(o *Options) { o.ErrorPolicy = "repair" }, pkgerrors.ErrCodeValidation},
		{"ph low", func(o *Options) { o.PH = -1 }, pkgerrors.ErrCodeValidation},
		{"ph high", func(o *Options) { o.PH = 14.5 }, pkgerrors.ErrCodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := DefaultOptions()
			tc.mut(&o)
			err := o.Validate()
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.GetCode(err))
		})
	}
}

func TestOptions_OrderedRules(t *testing.T) {
	o := Options{Rules: []Rule{RuleOXHPD, RuleCOD, RuleOXHPD, RuleOXE}}
	assert.Equal(t, []Rule{RuleCOD, RuleOXE, RuleOXHPD}, o.orderedRules())
}
