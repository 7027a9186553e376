package eventbus

import "strings"

// matcher is a pattern compiled once at subscribe time. Patterns are
// glob-style over event_type: "*" matches everything, "entity.*" matches
// any event type with the "entity." prefix. There is no general glob
// syntax beyond a single trailing "*" segment, since that is all the
// required subscribers need.
type matcher struct {
	pattern string
	prefix  string
	matchAll bool
}

func compileMatcher(pattern string) matcher {
	if pattern == "*" {
		return matcher{pattern: pattern, matchAll: true}
	}

	prefix := strings.TrimSuffix(pattern, "*")

	return matcher{pattern: pattern, prefix: prefix}
}

func (m matcher) matches(eventType string) bool {
	if m.matchAll {
		return true
	}

	if strings.HasSuffix(m.pattern, "*") {
		return strings.HasPrefix(eventType, m.prefix)
	}

	return eventType == m.pattern
}
