package rules

import (
	"fmt"

	sigma "github.com/bradleyjkemp/sigma-go"
	"github.com/google/uuid"
)

// Problem is one validation finding. Warnings do not block conversion.
type Problem struct {
	Path    string
	Field   string
	Message string
	Warning bool
}

func (p Problem) String() string {
	if p.Path != "" {
		return fmt.Sprintf("%s: %s: %s", p.Path, p.Field, p.Message)
	}
	return fmt.Sprintf("%s: %s", p.Field, p.Message)
}

func (p Problem) withPath(path string) Problem {
	p.Path = path
	return p
}

var knownLevels = map[string]bool{
	"informational": true,
	"low":           true,
	"medium":        true,
	"high":          true,
	"critical":      true,
}

var knownStatuses = map[string]bool{
	"stable":       true,
	"test":         true,
	"experimental": true,
	"deprecated":   true,
	"unsupported":  true,
}

// Validate checks a parsed rule for structural and stylistic problems.
// Structural problems (no title, no detection) make a rule unconvertible;
// the rest are warnings.
func Validate(rule sigma.Rule) []Problem {
	var problems []Problem

	if rule.Title == "" {
		problems = append(problems, Problem{Field: "title", Message: "rule has no title"})
	}
	if len(rule.Detection.Searches) == 0 {
		problems = append(problems, Problem{Field: "detection", Message: "rule defines no searches"})
	}
	if len(rule.Detection.Conditions) == 0 {
		problems = append(problems, Problem{Field: "detection", Message: "rule defines no condition"})
	}

	if rule.ID == "" {
		problems = append(problems, Problem{Field: "id", Message: "rule has no id", Warning: true})
	} else if _, err := uuid.Parse(rule.ID); err != nil {
		problems = append(problems, Problem{
			Field:   "id",
			Message: fmt.Sprintf("rule id %q is not a UUID", rule.ID),
			Warning: true,
		})
	}

	if rule.Level != "" && !knownLevels[rule.Level] {
		problems = append(problems, Problem{
			Field:   "level",
			Message: fmt.Sprintf("unknown level %q", rule.Level),
			Warning: true,
		})
	}
	if rule.Status != "" && !knownStatuses[rule.Status] {
		problems = append(problems, Problem{
			Field:   "status",
			Message: fmt.Sprintf("unknown status %q", rule.Status),
			Warning: true,
		})
	}

	return problems
}
