package util

import "strings"

// Tokens that can show up as the last path segment without being a short
// code.
var excludedSegments = map[string]struct{}{
	"index.html": {},
	"redirect":   {},
}

// ExtractCode pulls a short code out of a location string. The fragment
// form ("...#abc") wins; otherwise the last non-empty path segment is used.
// Returns "" when no usable code is present.
func ExtractCode(location string) string {
	if i := strings.LastIndex(location, "#"); i >= 0 {
		if code := cleanSegment(location[i+1:]); code != "" {
			return code
		}
	}

	// Strip scheme, host and query, then walk the path from the back.
	path := location
	if i := strings.Index(path, "://"); i >= 0 {
		path = path[i+3:]
		if j := strings.Index(path, "/"); j >= 0 {
			path = path[j:]
		} else {
			return ""
		}
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	// Only the last non-empty segment is considered; an excluded token
	// there means no code, not "keep looking".
	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if strings.TrimSpace(segments[i]) == "" {
			continue
		}
		return cleanSegment(segments[i])
	}
	return ""
}

func cleanSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	if i := strings.IndexAny(segment, "/?"); i >= 0 {
		segment = segment[:i]
	}
	if segment == "" {
		return ""
	}
	if _, excluded := excludedSegments[segment]; excluded {
		return ""
	}
	return segment
}
