package validation

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Error messages are part of the rejection report consumers see; keep them stable.
const msgRequired = "is required but not provided"

// FieldResult is the outcome of one rule against one field.
type FieldResult struct {
	Passed bool     `json:"passed"`
	Errors []string `json:"errors"`
}

// Result aggregates the per-field outcomes. Fields that were absent and not
// required have no entry.
type Result struct {
	Passed bool                   `json:"passed"`
	Fields map[string]FieldResult `json:"fields"`
}

// FailedFields returns the names of failing fields in sorted order.
func (r Result) FailedFields() []string {
	var names []string
	for name, field := range r.Fields {
		if len(field.Errors) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Summary renders failures as "field: error; error" joined by " | ".
func (r Result) Summary() string {
	var parts []string
	for _, name := range r.FailedFields() {
		parts = append(parts, name+": "+strings.Join(r.Fields[name].Errors, "; "))
	}
	return strings.Join(parts, " | ")
}

// Validator checks record fields against a rule provider.
type Validator struct {
	rules Provider
}

func NewValidator(rules Provider) *Validator {
	return &Validator{rules: rules}
}

// Validate runs every rule. Missing, empty and whitespace-only values count as
// absent: absent optional fields are skipped, absent required fields get a
// single error and no further checks. Present fields accumulate one error per
// failed constraint.
func (v *Validator) Validate(fields map[string]string) Result {
	results := make(map[string]FieldResult)

	for _, rule := range v.rules.Rules() {
		value, ok := fields[rule.Name]
		if !ok || strings.TrimSpace(value) == "" {
			if rule.Required {
				results[rule.Name] = FieldResult{Passed: false, Errors: []string{msgRequired}}
			}
			continue
		}

		errs := []string{}
		length := utf8.RuneCountInString(value)
		if rule.MaxLength != nil && length > *rule.MaxLength {
			errs = append(errs, fmt.Sprintf("exceeded max length of %d", *rule.MaxLength))
		}
		if rule.MinLength != nil && length < *rule.MinLength {
			errs = append(errs, fmt.Sprintf("failed to meet min length of %d", *rule.MinLength))
		}
		if rule.re != nil && !rule.re.MatchString(value) {
			errs = append(errs, fmt.Sprintf("did not satisfy regex %s", rule.Regex))
		}

		results[rule.Name] = FieldResult{Passed: len(errs) == 0, Errors: errs}
	}

	passed := true
	for _, field := range results {
		if len(field.Errors) > 0 {
			passed = false
			break
		}
	}
	return Result{Passed: passed, Fields: results}
}
