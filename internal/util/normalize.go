package util

import (
	"regexp"
	"strings"
)

var (
	uuidSegment    = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	numericSegment = regexp.MustCompile(`^[0-9]+$`)
)

// NormalizeOperation replaces variable path segments (UUIDs, numeric IDs)
// with ":id" so usage reporting groups logically identical operations.
// Non-path operation names pass through unchanged.
func NormalizeOperation(op string) string {
	if !strings.Contains(op, "/") {
		return op
	}

	segments := strings.Split(op, "/")
	for i, seg := range segments {
		if uuidSegment.MatchString(seg) || numericSegment.MatchString(seg) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}
