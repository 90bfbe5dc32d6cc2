package nodeid

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// segmentRegex is used to parse a single segment of an identifier, e.g. `name` or `name[1]`.
var segmentRegex = regexp.MustCompile(`^([a-zA-Z0-9_-]+)(?:\[(\d+)\])?$`)

// ID is the unique identifier of a node within one graph.
type ID string

// String returns the identifier as a plain string.
func (id ID) String() string {
	return string(id)
}

// isValidSegmentName checks for undesirable but technically valid names.
func isValidSegmentName(name string) bool {
	return name != "-" && name != "_"
}

// Parse validates rawID and returns it as an ID.
func Parse(rawID string) (ID, error) {
	if rawID == "" {
		return "", fmt.Errorf("identifier cannot be empty")
	}

	for _, segment := range strings.Split(rawID, ".") {
		if segment == "" {
			return "", fmt.Errorf("identifier %q contains empty segment", rawID)
		}

		matches := segmentRegex.FindStringSubmatch(segment)
		if matches == nil {
			return "", fmt.Errorf("invalid segment format %q in identifier %q", segment, rawID)
		}
		if !isValidSegmentName(matches[1]) {
			return "", fmt.Errorf("invalid segment name %q in identifier %q", matches[1], rawID)
		}
	}

	return ID(rawID), nil
}

// MustParse is like Parse but panics on an invalid identifier. It is meant for
// tests and static tables.
func MustParse(rawID string) ID {
	id, err := Parse(rawID)
	if err != nil {
		panic(err)
	}
	return id
}

// Sort orders ids lexically in place.
func Sort(ids []ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// Strings converts ids to plain strings, preserving order.
func Strings(ids []ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
