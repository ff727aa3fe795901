package mapping

import (
	"regexp"
	"strings"
)

var wildcardPattern = regexp.MustCompile(`\$[A-Za-z][A-Za-z0-9_]*`)

// Wildcards lists the $tokens in s, without the leading '$', in order.
func Wildcards(s string) []string {
	found := wildcardPattern.FindAllString(s, -1)
	out := make([]string, 0, len(found))
	for _, token := range found {
		out = append(out, token[1:])
	}
	return out
}

// HasWildcard reports whether s contains at least one $token.
func HasWildcard(s string) bool {
	return wildcardPattern.MatchString(s)
}

// Expand replaces each $token with its value. Unknown tokens expand to "",
// which leaves an empty segment that IsPathComplete rejects.
func Expand(s string, values map[string]string) string {
	return wildcardPattern.ReplaceAllStringFunc(s, func(token string) string {
		if v, ok := values[token[1:]]; ok {
			return v
		}
		if v, ok := values[strings.ToLower(token[1:])]; ok {
			return v
		}
		return ""
	})
}
