package service

import (
	"strconv"
	"strings"
)

// copyMarkers end the names of copied tasks. New copies get the first one.
var copyMarkers = []string{"копия", "copy"}

// CopyName derives the name of a task copy from the most recent name that
// contains the source name: a trailing number is incremented, a trailing
// copy marker gets " 2", anything else gets " копия".
func CopyName(latest string) string {
	latest = strings.TrimSpace(latest)
	fields := strings.Fields(latest)
	if len(fields) == 0 {
		return copyMarkers[0]
	}

	last := fields[len(fields)-1]
	if len(fields) > 1 {
		if n, err := strconv.Atoi(last); err == nil && n >= 0 {
			return strings.TrimSpace(strings.TrimSuffix(latest, last)) + " " + strconv.Itoa(n+1)
		}
	}
	for _, marker := range copyMarkers {
		if strings.EqualFold(last, marker) {
			return latest + " 2"
		}
	}
	return latest + " " + copyMarkers[0]
}
