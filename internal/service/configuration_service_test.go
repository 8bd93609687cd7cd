package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quotecraft/machine-quote-api/internal/models"
)

func numberConfig(rules ...models.ValidationRule) *models.ConfigurationDetail {
	return &models.ConfigurationDetail{
		Configuration:   models.Configuration{ID: "c1", Name: "Spindle Speed", Type: models.ConfigTypeNumber, IsActive: true},
		Options:         []models.ConfigurationOption{},
		ValidationRules: rules,
	}
}

func TestEvaluateValueRequired(t *testing.T) {
	detail := numberConfig()
	detail.IsRequired = true

	result := EvaluateValue(detail, "")
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "Configuration 'Spindle Speed' is required")

	// Only the empty string counts as absent; whitespace is a value.
	assert.True(t, EvaluateValue(detail, "   ").IsValid)
}

func TestEvaluateValueMinMax(t *testing.T) {
	detail := numberConfig(
		models.ValidationRule{ID: "r1", RuleType: models.RuleMinValue, RuleValue: "100", ErrorMessage: "too low", IsActive: true},
		models.ValidationRule{ID: "r2", RuleType: models.RuleMaxValue, RuleValue: "5000", ErrorMessage: "too high", IsActive: true},
	)

	cases := []struct {
		name   string
		value  string
		errors []string
	}{
		{"below minimum", "50", []string{"too low"}},
		{"above maximum", "9000", []string{"too high"}},
		{"within bounds", "1200", nil},
		{"boundary is inclusive", "100", nil},
		{"unparsable value skips numeric rules", "fast", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := EvaluateValue(detail, tc.value)
			if len(tc.errors) == 0 {
				assert.True(t, result.IsValid)
				assert.Empty(t, result.Errors)
				return
			}
			assert.False(t, result.IsValid)
			assert.Equal(t, tc.errors, result.Errors)
		})
	}
}

func TestEvaluateValueAccumulatesAllErrors(t *testing.T) {
	detail := numberConfig(
		models.ValidationRule{ID: "r1", RuleType: models.RuleMinValue, RuleValue: "100", ErrorMessage: "too low", IsActive: true},
	)
	detail.IsRequired = true

	result := EvaluateValue(detail, "5")
	assert.False(t, result.IsValid)
	assert.Equal(t, []string{"too low"}, result.Errors)

	result = EvaluateValue(detail, "")
	assert.Equal(t, []string{"Configuration 'Spindle Speed' is required"}, result.Errors)
}

func TestEvaluateValueRegex(t *testing.T) {
	detail := &models.ConfigurationDetail{
		Configuration: models.Configuration{ID: "c1", Name: "Serial", Type: models.ConfigTypeText, IsActive: true},
		ValidationRules: []models.ValidationRule{
			{ID: "r1", RuleType: models.RuleRegex, RuleValue: `^[A-Z]{2}-\d{4}$`, ErrorMessage: "bad serial format", IsActive: true},
		},
	}

	result := EvaluateValue(detail, "AB-1234")
	assert.True(t, result.IsValid)

	result = EvaluateValue(detail, "nope")
	assert.False(t, result.IsValid)
	assert.Equal(t, []string{"bad serial format"}, result.Errors)
}

func TestEvaluateValueInvalidRegexWarnsInsteadOfFailing(t *testing.T) {
	detail := &models.ConfigurationDetail{
		Configuration: models.Configuration{ID: "c1", Name: "Serial", Type: models.ConfigTypeText, IsActive: true},
		ValidationRules: []models.ValidationRule{
			{ID: "r1", RuleType: models.RuleRegex, RuleValue: `([`, ErrorMessage: "bad", IsActive: true},
		},
	}

	result := EvaluateValue(detail, "anything")
	assert.True(t, result.IsValid)
	assert.Contains(t, result.Warnings, "rule r1 has an invalid pattern")
}

func TestEvaluateValueCustomRuleWarns(t *testing.T) {
	detail := numberConfig(
		models.ValidationRule{ID: "r1", RuleType: models.RuleCustom, RuleValue: "check-compat", ErrorMessage: "verify compatibility manually", IsActive: true},
	)

	result := EvaluateValue(detail, "42")
	assert.True(t, result.IsValid)
	assert.Equal(t, []string{"Custom validation for 'Spindle Speed' not implemented"}, result.Warnings)
}

func TestEvaluateValueInactiveRulesAreSkipped(t *testing.T) {
	detail := numberConfig(
		models.ValidationRule{ID: "r1", RuleType: models.RuleMinValue, RuleValue: "100", ErrorMessage: "too low", IsActive: false},
	)

	result := EvaluateValue(detail, "5")
	assert.True(t, result.IsValid)
}

func TestEvaluateValueSingleChoiceMembership(t *testing.T) {
	detail := &models.ConfigurationDetail{
		Configuration: models.Configuration{ID: "c1", Name: "Voltage", Type: models.ConfigTypeSingleChoice, IsActive: true},
		Options: []models.ConfigurationOption{
			{ID: "o1", Value: "230V", IsActive: true},
			{ID: "o2", Value: "400V", IsActive: true},
			{ID: "o3", Value: "110V", IsActive: false},
		},
	}

	assert.True(t, EvaluateValue(detail, "230V").IsValid)
	assert.False(t, EvaluateValue(detail, "110V").IsValid)

	result := EvaluateValue(detail, "999V")
	assert.False(t, result.IsValid)
	assert.Equal(t, []string{"Invalid option '999V' for configuration 'Voltage'"}, result.Errors)
}

func TestEvaluateValueMultipleChoiceMembership(t *testing.T) {
	detail := &models.ConfigurationDetail{
		Configuration: models.Configuration{ID: "c1", Name: "Extras", Type: models.ConfigTypeMultipleChoice, IsActive: true},
		Options: []models.ConfigurationOption{
			{ID: "o1", Value: "coolant", IsActive: true},
			{ID: "o2", Value: "laser", IsActive: true},
		},
	}

	result := EvaluateValue(detail, "coolant, laser")
	assert.True(t, result.IsValid)

	result = EvaluateValue(detail, "coolant, plasma")
	assert.False(t, result.IsValid)
	assert.Equal(t, []string{"Invalid option 'plasma' for configuration 'Extras'"}, result.Errors)

	// Empty segments between commas are ignored.
	assert.True(t, EvaluateValue(detail, "coolant,,laser,").IsValid)
}
