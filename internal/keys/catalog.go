package keys

import (
	"fmt"
	"strings"
)

// sanitizeKey replaces spaces with hyphens and lowercases the string.
func sanitizeKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "-"))
}

// Catalog returns the canonical S3 key for a named attraction catalog.
func Catalog(name string) string {
	if name == "" {
		name = "default"
	}
	return fmt.Sprintf("catalogs/%s.json", sanitizeKey(name))
}
