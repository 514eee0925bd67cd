package architex

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// ValidProjectID reports whether id looks like a backend project id:
// a UUID or a 24 character hex object id. Placeholders leaked from
// string conversions ("undefined", "null") are rejected.
func ValidProjectID(id string) bool {
	id = strings.TrimSpace(id)
	switch id {
	case "", "undefined", "null", "new":
		return false
	}
	if objectIDPattern.MatchString(id) {
		return true
	}
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// ResolveProjectID returns the first valid id among candidates, in order.
// Callers pass the most authoritative source first (route parameter, then
// live canvas, then persisted state).
func ResolveProjectID(candidates ...string) (string, error) {
	for _, c := range candidates {
		if ValidProjectID(c) {
			return strings.TrimSpace(c), nil
		}
	}
	return "", ErrInvalidProjectID
}
