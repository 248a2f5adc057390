package shared

import (
	"regexp"
	"strconv"
	"strings"
)

// ParseDecimal parses a number that may use a decimal comma (Spanish
// portals) or a decimal point, with optional thousands separators.
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "€")
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimSpace(s)

	if strings.Contains(s, ",") {
		// "1.234,56" -> "1234.56"
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	return strconv.ParseFloat(s, 64)
}

var spaceRE = regexp.MustCompile(`\s+`)

// NormSpace collapses all runs of whitespace to single spaces and trims.
func NormSpace(s string) string {
	return strings.TrimSpace(spaceRE.ReplaceAllString(s, " "))
}
