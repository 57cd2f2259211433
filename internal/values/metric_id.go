package values

import (
	"cmp"
	"strings"
)

// LabelLocation is the label whose value becomes MetricID.Location.
const LabelLocation = "location"

// MetricID identifies a metric: a ':' separated id plus an optional location.
type MetricID struct {
	ID       string
	Location string
}

// NewMetricID returns a MetricID without a location.
func NewMetricID(id string) MetricID {
	return MetricID{ID: id}
}

// Compare orders ids by ID then Location.
func (m MetricID) Compare(other MetricID) int {
	if c := strings.Compare(m.ID, other.ID); c != 0 {
		return c
	}
	return strings.Compare(m.Location, other.Location)
}

// Key returns the store path of m: ID followed by Location.
func (m MetricID) Key() string {
	if m.Location == "" {
		return m.ID
	}
	return m.ID + ":" + m.Location
}

// CompareKey compares m.Key() with key without building it.
func (m MetricID) CompareKey(key string) int {
	if m.Location == "" || !strings.HasPrefix(key, m.ID) {
		return strings.Compare(m.ID, key)
	}
	rest := key[len(m.ID):]
	if rest == "" {
		return 1
	}
	if rest[0] != ':' {
		return cmp.Compare(byte(':'), rest[0])
	}
	return strings.Compare(m.Location, rest[1:])
}

// Less reports whether m sorts before other.
func (m MetricID) Less(other MetricID) bool {
	return m.Compare(other) < 0
}

func (m MetricID) String() string {
	if m.Location == "" {
		return m.ID
	}
	return m.ID + "@" + m.Location
}

// ParseMetricID is the inverse of MetricID.String.
func ParseMetricID(s string) MetricID {
	id, location, _ := strings.Cut(s, "@")
	return MetricID{ID: id, Location: location}
}
