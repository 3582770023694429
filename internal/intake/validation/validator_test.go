package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRules(t *testing.T, rules ...Rule) RuleSet {
	t.Helper()
	set, err := NewRuleSet(rules...)
	require.NoError(t, err)
	return set
}

func TestValidate_AllRulesPass(t *testing.T) {
	sut := NewValidator(mustRules(t, Rule{
		Name:      "wibble",
		Required:  true,
		MinLength: IntPtr(1),
		MaxLength: IntPtr(10),
		Regex:     `(.|\s)*\S(.|\s)*`,
	}))

	result := sut.Validate(map[string]string{"wibble": "abc"})

	assert.True(t, result.Passed)
	require.Contains(t, result.Fields, "wibble")
	assert.True(t, result.Fields["wibble"].Passed)
	assert.Empty(t, result.Fields["wibble"].Errors)
}

func TestValidate_AbsentOptionalFieldIsSkipped(t *testing.T) {
	sut := NewValidator(mustRules(t,
		Rule{Name: "phone", MinLength: IntPtr(6), Regex: `^[0-9]+$`},
		Rule{Name: "f_name", Required: true},
	))

	for _, value := range []string{"", "   ", "\t\n"} {
		result := sut.Validate(map[string]string{"phone": value, "f_name": "John"})

		assert.True(t, result.Passed, "value %q", value)
		assert.NotContains(t, result.Fields, "phone")
	}

	result := sut.Validate(map[string]string{"f_name": "John"})
	assert.True(t, result.Passed)
	assert.NotContains(t, result.Fields, "phone")
}

func TestValidate_AbsentRequiredFieldGetsSingleError(t *testing.T) {
	sut := NewValidator(mustRules(t, Rule{
		Name:      "email",
		Required:  true,
		MinLength: IntPtr(5),
		MaxLength: IntPtr(10),
		Regex:     `@`,
	}))

	for _, fields := range []map[string]string{
		{},
		{"email": ""},
		{"email": "    "},
	} {
		result := sut.Validate(fields)

		assert.False(t, result.Passed)
		assert.False(t, result.Fields["email"].Passed)
		assert.Equal(t, []string{"is required but not provided"}, result.Fields["email"].Errors)
	}
}

func TestValidate_PresentFieldAccumulatesErrors(t *testing.T) {
	sut := NewValidator(mustRules(t, Rule{
		Name:      "phone",
		MaxLength: IntPtr(3),
		Regex:     `^[0-9]+$`,
	}))

	result := sut.Validate(map[string]string{"phone": "abcdef"})

	assert.False(t, result.Passed)
	assert.Equal(t, []string{
		"exceeded max length of 3",
		"did not satisfy regex ^[0-9]+$",
	}, result.Fields["phone"].Errors)
}

func TestValidate_MinLength(t *testing.T) {
	sut := NewValidator(mustRules(t, Rule{Name: "f_name", Required: true, MinLength: IntPtr(3), Regex: `^[a-z]+$`}))

	result := sut.Validate(map[string]string{"f_name": "J"})

	assert.False(t, result.Passed)
	assert.Equal(t, []string{
		"failed to meet min length of 3",
		"did not satisfy regex ^[a-z]+$",
	}, result.Fields["f_name"].Errors)
}

func TestValidate_NonRequiredPresentFieldIsStillChecked(t *testing.T) {
	sut := NewValidator(mustRules(t, Rule{Name: "dialing_code", MaxLength: IntPtr(4)}))

	result := sut.Validate(map[string]string{"dialing_code": "+12345"})

	assert.False(t, result.Passed)
	assert.Equal(t, []string{"exceeded max length of 4"}, result.Fields["dialing_code"].Errors)
}

func TestValidate_LengthCountsRunes(t *testing.T) {
	sut := NewValidator(mustRules(t, Rule{Name: "f_name", MaxLength: IntPtr(4)}))

	result := sut.Validate(map[string]string{"f_name": "Zoë"})

	assert.True(t, result.Passed)
}

func TestValidate_RegexIsSearch(t *testing.T) {
	sut := NewValidator(mustRules(t, Rule{Name: "email", Regex: `@`}))

	assert.True(t, sut.Validate(map[string]string{"email": "a@b.com"}).Passed)
	assert.False(t, sut.Validate(map[string]string{"email": "ab.com"}).Passed)
}

func TestValidate_OverallIsConjunction(t *testing.T) {
	sut := NewValidator(mustRules(t,
		Rule{Name: "a", Required: true},
		Rule{Name: "b", Required: true},
		Rule{Name: "c"},
	))

	result := sut.Validate(map[string]string{"a": "x"})

	assert.False(t, result.Passed)
	assert.True(t, result.Fields["a"].Passed)
	assert.False(t, result.Fields["b"].Passed)
	assert.Equal(t, []string{"b"}, result.FailedFields())
	assert.Equal(t, "b: is required but not provided", result.Summary())
}

func TestValidate_FieldsWithoutRulesAreIgnored(t *testing.T) {
	sut := NewValidator(mustRules(t, Rule{Name: "a", Required: true}))

	result := sut.Validate(map[string]string{"a": "x", "unexpected": ""})

	assert.True(t, result.Passed)
	assert.NotContains(t, result.Fields, "unexpected")
}

func TestValidate_DefaultEmailRules(t *testing.T) {
	rules, err := DefaultRules("email")
	require.NoError(t, err)
	sut := NewValidator(rules)

	t.Run("accepts a complete referral", func(t *testing.T) {
		result := sut.Validate(map[string]string{
			"email":        "A@B.com",
			"f_name":       "John",
			"phone":        "12345678910",
			"dialing_code": "1",
			"greenId":      "12345678-1234-1234-1234-123456789123",
		})
		assert.True(t, result.Passed, result.Summary())
	})

	t.Run("rejects a referral without email", func(t *testing.T) {
		result := sut.Validate(map[string]string{
			"f_name":  "John",
			"phone":   "12345678910",
			"greenId": "g1",
		})
		assert.False(t, result.Passed)
		assert.Equal(t, []string{"email"}, result.FailedFields())
	})
}
