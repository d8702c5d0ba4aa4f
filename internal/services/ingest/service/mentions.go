package service

import (
	"regexp"
	"strings"
)

// mentionRE matches an @ handle: letters and digits, optionally continued by
// more of the same with interior spaces so multi word names are captured.
// Trailing spaces are trimmed after the match
var mentionRE = regexp.MustCompile(`@([A-Za-z0-9][A-Za-z0-9 ]*)`)

// Mentions extracts the distinct @-mentioned names from a comment body,
// in order of first appearance
func Mentions(body string) []string {
	matches := mentionRE.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimRight(m[1], " ")
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
