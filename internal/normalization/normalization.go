package normalization

import (
	"strings"
)

func ParseInputString(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// TrimInputString keeps case, used for person/company names.
func TrimInputString(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
