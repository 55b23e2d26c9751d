package extract

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`[\t\f\v]+`)
	reMultiSpace = regexp.MustCompile(`[ \x{00A0}]{2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reControl    = regexp.MustCompile(`[\x00-\x08\x0E-\x1F\x7F]`)
	reRule       = regexp.MustCompile(`(?m)^ *[_\-=*]{3,} *$`)
)

// Normalize collapses noisy whitespace left by document decoders.
// Line breaks survive; runs of blank lines collapse to one.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reControl.ReplaceAllString(s, "")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reRule.ReplaceAllString(s, "")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
