// Package vo holds the building blocks of every value object in the store:
// validated text rules, audit versions and typed identifiers.
package vo

import (
	"regexp"
	"unicode/utf8"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
)

// TextRule describes how a raw string is validated before it becomes a
// value object. Zero Min/Max and a nil Pattern disable the
// corresponding check. Lengths are counted in runes.
type TextRule struct {
	Name    string
	Pattern *regexp.Regexp
	Min     int
	Max     int
}

// Check returns an *common.InvalidValueError naming the rule when s violates
// any of its constraints.
func (r TextRule) Check(s string) error {
	n := utf8.RuneCountInString(s)
	if r.Min > 0 && n < r.Min {
		return common.NewInvalidValue(r.Name)
	}
	if r.Max > 0 && n > r.Max {
		return common.NewInvalidValue(r.Name)
	}
	if r.Pattern != nil && !r.Pattern.MatchString(s) {
		return common.NewInvalidValue(r.Name)
	}
	return nil
}

// Text builds the parse function of a string-backed value object.
//
//	type RoleName string
//	var ParseRoleName = vo.Text[RoleName](vo.TextRule{Name: "RoleName", Pattern: re})
func Text[T ~string](rule TextRule) func(string) (T, error) {
	return func(s string) (T, error) {
		if err := rule.Check(s); err != nil {
			return "", err
		}
		return T(s), nil
	}
}
