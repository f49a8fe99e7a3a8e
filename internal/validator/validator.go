package validator

import (
	"fmt"
	"maps"
	"slices"

	"qpdiff/internal/profile"
	"qpdiff/internal/rules"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Path    string   // Location in the document (e.g., "rules[2].severity")
	Message string   // Human-readable error message
	Value   string   // The offending value (if any)
	Allowed []string // For enumerated values, the allowed values
}

// ValidationResult contains all validation outcomes
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// Validate checks a profile document against the catalog. It collects all
// errors rather than stopping at the first one. Entries of a document with
// a parent may omit the severity.
func Validate(doc profile.Document, catalog *rules.Catalog) ValidationResult {
	var errors []ValidationError

	for _, f := range []struct{ path, value string }{
		{"key", doc.Key},
		{"name", doc.Name},
		{"language", doc.Language},
	} {
		if f.value == "" {
			errors = append(errors, ValidationError{Path: f.path, Message: "required"})
		}
	}

	first := make(map[rules.RuleKey]int, len(doc.Rules))
	for i, entry := range doc.Rules {
		at := fmt.Sprintf("rules[%d]", i)

		key, err := rules.ParseRuleKey(entry.Rule)
		if err != nil {
			errors = append(errors, ValidationError{Path: at + ".rule", Message: "invalid rule key", Value: entry.Rule})
			continue
		}
		if j, dup := first[key]; dup {
			errors = append(errors, ValidationError{
				Path:    at + ".rule",
				Message: fmt.Sprintf("duplicate of rules[%d]", j),
				Value:   entry.Rule,
			})
			continue
		}
		first[key] = i

		errors = append(errors, validateSeverity(at, entry.Severity, doc.Parent != "")...)

		rule, ok := catalog.Get(key)
		if !ok {
			errors = append(errors, ValidationError{Path: at + ".rule", Message: "unknown rule", Value: entry.Rule})
			continue
		}
		errors = append(errors, validateParams(at, rule, entry.Params)...)
	}

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateSeverity(at, severity string, inherited bool) []ValidationError {
	if severity == "" {
		if inherited {
			return nil
		}
		return []ValidationError{{Path: at + ".severity", Message: "required"}}
	}
	if _, err := rules.ParseSeverity(severity); err != nil {
		allowed := make([]string, len(rules.AllSeverities))
		for i, s := range rules.AllSeverities {
			allowed[i] = s.String()
		}
		return []ValidationError{{
			Path:    at + ".severity",
			Message: "invalid severity",
			Value:   severity,
			Allowed: allowed,
		}}
	}
	return nil
}

// validateParams reports unknown parameter names in name order.
func validateParams(at string, rule *rules.Rule, params map[string]string) []ValidationError {
	var errors []ValidationError
	for _, name := range slices.Sorted(maps.Keys(params)) {
		if _, ok := rule.Param(name); ok {
			continue
		}
		allowed := make([]string, len(rule.Params))
		for i, p := range rule.Params {
			allowed[i] = p.Name
		}
		errors = append(errors, ValidationError{
			Path:    at + ".params",
			Message: "unknown parameter",
			Value:   name,
			Allowed: allowed,
		})
	}
	return errors
}
