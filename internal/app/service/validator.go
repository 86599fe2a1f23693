package service

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	maxURLLength  = 2048
	maxCodeLength = 20
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// reservedCodes can never be claimed as custom short codes; they collide
// with routes the resolution surface itself uses.
var reservedCodes = map[string]struct{}{
	"www":      {},
	"api":      {},
	"admin":    {},
	"help":     {},
	"about":    {},
	"contact":  {},
	"index":    {},
	"redirect": {},
	"app":      {},
}

// NormalizeURL trims the input, defaults the scheme to https and verifies
// the result parses as an absolute http(s) URL. It is idempotent on its own
// output.
func NormalizeURL(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", fmt.Errorf("%w: url cannot be empty", ErrInvalidURL)
	}
	if len(trimmed) > maxURLLength {
		return "", fmt.Errorf("%w: url is too long (max %d characters)", ErrInvalidURL, maxURLLength)
	}

	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: only http and https urls are allowed", ErrInvalidURL)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w: url must contain a host", ErrInvalidURL)
	}

	return trimmed, nil
}

// NormalizeCode validates a user-chosen short code against format rules, the
// reserved-word list and the set of codes already in use.
func NormalizeCode(input string, existing map[string]struct{}) (string, error) {
	code := strings.TrimSpace(input)
	if code == "" {
		return "", fmt.Errorf("%w: custom code cannot be empty", ErrInvalidCode)
	}
	if !codePattern.MatchString(code) {
		return "", fmt.Errorf("%w: custom code may only contain letters, numbers, hyphens and underscores", ErrInvalidCode)
	}
	if len(code) > maxCodeLength {
		return "", fmt.Errorf("%w: custom code must be %d characters or less", ErrInvalidCode, maxCodeLength)
	}
	if _, reserved := reservedCodes[strings.ToLower(code)]; reserved {
		return "", fmt.Errorf("%w: %q is a reserved word", ErrInvalidCode, code)
	}
	if _, taken := existing[code]; taken {
		return "", fmt.Errorf("%w: custom code is already taken", ErrInvalidCode)
	}
	return code, nil
}
