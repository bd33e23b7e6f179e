package deskguard

import (
	"strings"
)

// ValidateAction checks that an action identifier is a dot-separated
// "resource.verb" string made of lowercase identifiers.
func ValidateAction(action string) error {
	if action == "" {
		return NewError(ErrValidation, "action cannot be empty")
	}

	parts := strings.Split(action, ".")
	if len(parts) < 2 {
		return NewError(ErrValidation, "action must have at least two parts (resource.verb)").
			WithField("action", action)
	}

	for _, part := range parts {
		if part == "" {
			return NewError(ErrValidation, "action parts cannot be empty").WithField("action", action)
		}
		for _, c := range part {
			if !isValidActionChar(c) {
				return NewError(ErrValidation, "action contains invalid character").WithField("action", action)
			}
		}
	}

	return nil
}

func isValidActionChar(c rune) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '_' || c == '-'
}

// normalizeRoutePath strips query strings and fragments, collapses repeated
// slashes and removes the trailing slash.
func normalizeRoutePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	segments := routeSegments(p)
	if len(segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(segments, "/")
}

func routeSegments(p string) []string {
	raw := strings.Split(p, "/")
	out := raw[:0]
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// routeAncestors returns p followed by each successively truncated prefix,
// closest first, ending with the root path.
//
//	routeAncestors("/a/b/c") // ["/a/b/c", "/a/b", "/a", "/"]
func routeAncestors(p string) []string {
	segments := routeSegments(p)
	out := make([]string, 0, len(segments)+1)
	for i := len(segments); i > 0; i-- {
		out = append(out, "/"+strings.Join(segments[:i], "/"))
	}
	return append(out, "/")
}
