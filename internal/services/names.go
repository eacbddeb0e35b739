package services

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// The screen recorder this service was built around names its output
// with seven digit runs (date, time, trailing counter). The grouping
// below reproduces that scheme exactly; anything else falls back to a
// generated name.
var nameGroupRe = regexp.MustCompile(`[0-9]+|.mp4`)

// CanonicalName derives the storage filename from the client-supplied
// original name. It reports false when the name does not follow the
// recorder's convention. Pure and deterministic, never panics.
func CanonicalName(originalName string) (string, bool) {
	m := nameGroupRe.FindAllString(originalName, -1)
	if len(m) != 8 {
		return "", false
	}
	return strings.Join(m[0:3], ".") + "-" + strings.Join(m[3:6], ".") + m[6], true
}

// StorageName is CanonicalName with the generated-name fallback applied.
func StorageName(originalName string) string {
	if name, ok := CanonicalName(originalName); ok {
		return name
	}
	return GeneratedName()
}

// GeneratedName is the unique fallback storage name.
func GeneratedName() string {
	return uuid.New().String() + ".mp4"
}
