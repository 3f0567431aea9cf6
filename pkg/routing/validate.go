package routing

import (
	"fmt"
	"slices"
	"strings"
)

// RecommendedModel is the low-latency model every config should define.
const RecommendedModel = "llama-fast"

// ValidationResult is the outcome of Validate. Valid is true iff Errors is
// empty; warnings never affect it.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate checks cfg against the fixed rule set. It never mutates cfg and
// reports every problem rather than stopping at the first.
func Validate(cfg Config) ValidationResult {
	errs := []string{}
	warnings := []string{}

	if len(cfg.ModelList) == 0 {
		errs = append(errs, "at least one model must be configured")
	}

	for i, m := range cfg.ModelList {
		if m.ModelName == "" {
			errs = append(errs, fmt.Sprintf("model_list[%d]: model name cannot be empty", i))
		}
		if !strings.HasPrefix(m.Params.APIBase, "http") {
			errs = append(errs, fmt.Sprintf("invalid api_base for %s: must start with http(s)", m.ModelName))
		}
	}

	if !slices.Contains(cfg.ModelNames(), RecommendedModel) {
		warnings = append(warnings, fmt.Sprintf("recommended: add '%s' model for quick responses", RecommendedModel))
	}

	return ValidationResult{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	}
}
