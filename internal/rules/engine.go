// Package rules provides a YAML-based ordered rule table for transaction
// categorization. The rule order in the file is the evaluation order, which
// makes the priority between overlapping keywords an explicit, reviewable
// artifact instead of code structure.
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/calybase/treasury/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var embeddedRules []byte

// Rule maps description keywords to a category for one direction of money
// flow. Rules should be created via YAML loading (NewEngine, LoadEmbedded,
// LoadFromFile), which validates all invariants:
//   - Category must be a valid domain.Category
//   - Category direction must agree with the rule's direction
//   - At least one non-empty keyword
//
// Direct struct construction bypasses validation; fields are exported for
// YAML unmarshaling and testing.
type Rule struct {
	Name      string           `yaml:"name"`
	Direction domain.Direction `yaml:"direction"`
	Keywords  []string         `yaml:"keywords"`
	Category  domain.Category  `yaml:"category"`
}

// ruleSet is the top-level YAML structure
type ruleSet struct {
	Rules []Rule `yaml:"rules"`
}

// Engine categorizes transaction descriptions against the ordered rule
// table. The direction split guarantees the sign/category invariant: a
// positive amount can only ever receive an income category.
type Engine struct {
	income  []Rule
	expense []Rule
}

// NewEngine creates a rules engine from YAML data
func NewEngine(rulesData []byte) (*Engine, error) {
	var rs ruleSet
	if err := yaml.Unmarshal(rulesData, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse YAML rules (check syntax, indentation, and field names): %w", err)
	}

	e := &Engine{}
	for i, rule := range rs.Rules {
		dir, ok := domain.CategoryDirection(rule.Category)
		if !ok {
			return nil, fmt.Errorf("rule %d (%s): invalid category %q", i, rule.Name, rule.Category)
		}
		if rule.Direction != domain.DirectionIncome && rule.Direction != domain.DirectionExpense {
			return nil, fmt.Errorf("rule %d (%s): invalid direction %q (must be 'income' or 'expense')", i, rule.Name, rule.Direction)
		}
		if dir != rule.Direction {
			return nil, fmt.Errorf("rule %d (%s): category %q is an %s category but rule direction is %s",
				i, rule.Name, rule.Category, dir, rule.Direction)
		}
		if len(rule.Keywords) == 0 {
			return nil, fmt.Errorf("rule %d (%s): at least one keyword is required", i, rule.Name)
		}
		for _, kw := range rule.Keywords {
			if strings.TrimSpace(kw) == "" {
				return nil, fmt.Errorf("rule %d (%s): keywords cannot be empty", i, rule.Name)
			}
		}

		// File order within each direction is the evaluation order.
		if rule.Direction == domain.DirectionIncome {
			e.income = append(e.income, rule)
		} else {
			e.expense = append(e.expense, rule)
		}
	}

	return e, nil
}

// LoadEmbedded loads the embedded rules.yaml file
func LoadEmbedded() (*Engine, error) {
	engine, err := NewEngine(embeddedRules)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded rules (possible binary corruption): %w", err)
	}
	return engine, nil
}

// LoadFromFile loads rules from a filesystem path
func LoadFromFile(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	engine, err := NewEngine(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules from %q: %w", path, err)
	}
	return engine, nil
}

// Categorize returns the category for a transaction. The amount sign selects
// the rule direction; within a direction the first rule with a keyword
// contained in the lowercased description wins. No match yields
// other_income or other_expense.
func (e *Engine) Categorize(description string, amount float64) (domain.Category, string) {
	normalized := strings.ToLower(strings.TrimSpace(description))

	table := e.expense
	fallback := domain.CategoryOtherExpense
	if amount > 0 {
		table = e.income
		fallback = domain.CategoryOtherIncome
	}

	for _, rule := range table {
		for _, kw := range rule.Keywords {
			if strings.Contains(normalized, strings.ToLower(kw)) {
				return rule.Category, rule.Name
			}
		}
	}

	return fallback, ""
}

// Rules returns a copy of the rule table in evaluation order, income rules
// first. For inspection and debugging.
func (e *Engine) Rules() []Rule {
	result := make([]Rule, 0, len(e.income)+len(e.expense))
	result = append(result, e.income...)
	result = append(result, e.expense...)
	return result
}
