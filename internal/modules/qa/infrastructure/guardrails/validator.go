package guardrails

import (
	"fmt"
	"regexp"
	"strings"
)

type ValidationResult struct {
	IsValid        bool
	Reason         string
	SanitizedInput string
}

var sqlInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bUNION\b.*\bSELECT\b`),
	regexp.MustCompile(`(?i)\bDROP\b.*\bTABLE\b`),
	regexp.MustCompile(`(?i)\bINSERT\b.*\bINTO\b`),
	regexp.MustCompile(`(?i)\bDELETE\b.*\bFROM\b`),
	regexp.MustCompile(`--|#|/\*|\*/`),
}

var promptInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore.*previous.*instructions?`),
	regexp.MustCompile(`(?i)forget.*previous.*instructions?`),
	regexp.MustCompile(`(?i)you are now`),
	regexp.MustCompile(`(?i)system:`),
	regexp.MustCompile(`(?i)assistant:`),
	regexp.MustCompile(`(?i)disregard.*above`),
}

var collectionNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Validator screens user queries before any model call. It is purely
// lexical: no network access, safe to run on every delivery.
type Validator struct {
	maxQueryLength int
	minQueryLength int
}

func NewValidator(minQueryLength, maxQueryLength int) *Validator {
	if minQueryLength <= 0 {
		minQueryLength = 3
	}
	if maxQueryLength <= 0 {
		maxQueryLength = 1000
	}
	return &Validator{maxQueryLength: maxQueryLength, minQueryLength: minQueryLength}
}

// ValidateQuery checks emptiness, length bounds and injection patterns.
// The sanitized form (whitespace collapsed) is what downstream stages use.
func (v *Validator) ValidateQuery(query string) ValidationResult {
	if strings.TrimSpace(query) == "" {
		return ValidationResult{IsValid: false, Reason: "Query cannot be empty"}
	}

	sanitized := SanitizeText(query)

	if len(sanitized) < v.minQueryLength {
		return ValidationResult{
			IsValid: false,
			Reason:  fmt.Sprintf("Query too short (minimum %d characters)", v.minQueryLength),
		}
	}
	if len(sanitized) > v.maxQueryLength {
		return ValidationResult{
			IsValid: false,
			Reason:  fmt.Sprintf("Query too long (maximum %d characters)", v.maxQueryLength),
		}
	}

	for _, p := range sqlInjectionPatterns {
		if p.MatchString(sanitized) {
			return ValidationResult{IsValid: false, Reason: "Potential SQL injection detected"}
		}
	}
	for _, p := range promptInjectionPatterns {
		if p.MatchString(sanitized) {
			return ValidationResult{IsValid: false, Reason: "Potential prompt injection detected"}
		}
	}

	return ValidationResult{IsValid: true, SanitizedInput: sanitized}
}

func (v *Validator) ValidateCollectionName(collection string) ValidationResult {
	if strings.TrimSpace(collection) == "" {
		return ValidationResult{IsValid: false, Reason: "Collection name cannot be empty"}
	}
	if !collectionNamePattern.MatchString(collection) {
		return ValidationResult{
			IsValid: false,
			Reason:  "Collection name can only contain alphanumeric characters, underscores, and hyphens",
		}
	}
	if len(collection) > 100 {
		return ValidationResult{IsValid: false, Reason: "Collection name too long (maximum 100 characters)"}
	}
	return ValidationResult{IsValid: true, SanitizedInput: strings.TrimSpace(collection)}
}

// ValidateParameters bounds-checks per-message retrieval overrides. Nil means
// the caller did not override the configured default.
func (v *Validator) ValidateParameters(maxChunks *int, confidenceThreshold *float64) ValidationResult {
	if maxChunks != nil {
		if *maxChunks < 1 {
			return ValidationResult{IsValid: false, Reason: "max_chunks must be at least 1"}
		}
		if *maxChunks > 50 {
			return ValidationResult{IsValid: false, Reason: "max_chunks cannot exceed 50"}
		}
	}
	if confidenceThreshold != nil {
		if *confidenceThreshold < 0.0 || *confidenceThreshold > 1.0 {
			return ValidationResult{IsValid: false, Reason: "confidence_threshold must be between 0.0 and 1.0"}
		}
	}
	return ValidationResult{IsValid: true}
}

// SanitizeText collapses runs of whitespace and strips null bytes.
func SanitizeText(text string) string {
	if text == "" {
		return ""
	}
	sanitized := strings.Join(strings.Fields(text), " ")
	sanitized = strings.ReplaceAll(sanitized, "\x00", "")
	return strings.TrimSpace(sanitized)
}
