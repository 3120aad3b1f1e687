package assignment

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/jordanlanch/leadsync/pkg/models"
)

var conditionPattern = regexp.MustCompile(`^\s*([a-z_][a-z0-9_]*)\s*==\s*("(?:[^"\\]|\\.)*")\s*$`)

// Condition is an equality test against one lead field
type Condition struct {
	Field string
	Value string
}

// EqualsCondition renders the condition text stored on a rule
func EqualsCondition(field, value string) string {
	return fmt.Sprintf("%s == %s", field, strconv.Quote(value))
}

// ParseCondition parses `field == "value"`
func ParseCondition(raw string) (Condition, error) {
	m := conditionPattern.FindStringSubmatch(raw)
	if m == nil {
		return Condition{}, fmt.Errorf("unsupported assignment condition %q", raw)
	}
	value, err := strconv.Unquote(m[2])
	if err != nil {
		return Condition{}, fmt.Errorf("malformed value in assignment condition %q: %w", raw, err)
	}
	return Condition{Field: m[1], Value: value}, nil
}

// Matches reports whether the lead's field equals the condition value
func (c Condition) Matches(lead *models.Lead) bool {
	v, ok := lead.StringField(c.Field)
	return ok && *v == c.Value
}
