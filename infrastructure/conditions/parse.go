package conditions

import (
	"fmt"
	"strings"
)

var named = map[string]Condition{
	"present":   Present,
	"absent":    Absent,
	"visible":   Visible,
	"hidden":    Hidden,
	"enabled":   Enabled,
	"disabled":  Disabled,
	"selected":  Selected,
	"clickable": Clickable,
}

// Parse - builds an element condition from its short textual form:
// visible, hidden, text=..., exact_text=..., value=..., class=..., attr:name=...,
// optionally prefixed with "not ".
func Parse(s string) (Condition, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "not "); ok {
		c, err := Parse(rest)
		if err != nil {
			return nil, err
		}
		return Not(c), nil
	}

	if c, ok := named[s]; ok {
		return c, nil
	}

	key, value, ok := strings.Cut(s, "=")
	if !ok {
		return nil, fmt.Errorf("unknown condition: %q", s)
	}
	switch {
	case key == "text":
		return Text(value), nil
	case key == "exact_text":
		return ExactText(value), nil
	case key == "value":
		return Value(value), nil
	case key == "class":
		return CSSClass(value), nil
	case strings.HasPrefix(key, "attr:"):
		return Attribute(strings.TrimPrefix(key, "attr:"), value), nil
	}
	return nil, fmt.Errorf("unknown condition: %q", s)
}
