package rank

import "strings"

// Normalize canonicalizes a user-supplied domain or URL for lookup: trim
// surrounding whitespace, lower-case, strip a leading http:// or https://
// scheme, strip a leading www. label, and cut at the first slash so any
// path or query suffix is discarded. Scheme and www. are stripped only as
// prefixes; a www. appearing mid-string is part of the domain.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}
