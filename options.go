package studymcq

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"
)

var optionLineRe = regexp.MustCompile(`^([A-Da-d])\s*(?:[)\-.:,]\s*|\s+)(.+)$`)

// ParseOptionLines parses four "A) text" style lines into normalized, label-sorted options.
// Any malformed line, missing label or duplicate label fails the whole input.
func ParseOptionLines(input string) ([]string, error) {
	lines := lo.Filter(strings.Split(input, "\n"), func(line string, _ int) bool {
		return strings.TrimSpace(line) != ""
	})
	if len(lines) != len(OptionLabels) {
		return nil, fmt.Errorf("%w: expected %d lines, got %d", ErrInvalidFormat, len(OptionLabels), len(lines))
	}

	byLabel := make(map[string]string, len(lines))
	for _, line := range lines {
		m := optionLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, line)
		}
		label := strings.ToUpper(m[1])
		text := strings.TrimSpace(m[2])
		if text == "" {
			return nil, fmt.Errorf("%w: empty option %s", ErrInvalidFormat, label)
		}
		if _, dup := byLabel[label]; dup {
			return nil, fmt.Errorf("%w: duplicate label %s", ErrInvalidFormat, label)
		}
		byLabel[label] = text
	}

	labels := lo.Keys(byLabel)
	sort.Strings(labels)
	return lo.Map(labels, func(label string, _ int) string {
		return FormatOption(label, byLabel[label])
	}), nil
}

// FormatOption renders an option in the stored "A) text" form.
func FormatOption(label, text string) string {
	return label + ") " + text
}

// OptionText strips the "A) " prefix from a stored option.
func OptionText(option string) string {
	if m := optionLineRe.FindStringSubmatch(option); m != nil {
		return strings.TrimSpace(m[2])
	}
	return option
}

// IsOptionLabel reports whether label is one of A-D.
func IsOptionLabel(label string) bool {
	return lo.Contains(OptionLabels, label)
}
