package ingest

import "strings"

// Subject wildcards.
const (
	WildcardToken = "*"
	WildcardTail  = ">"
)

// Levels splits a subject into its '.' separated tokens.
func Levels(subject string) []string {
	if subject == "" {
		return nil
	}
	return strings.Split(subject, ".")
}

// Match reports whether subject matches pattern. '*' matches exactly one
// token and a trailing '>' matches one or more remaining tokens.
func Match(pattern, subject string) bool {
	return MatchLevels(Levels(pattern), Levels(subject))
}

// MatchLevels is Match over pre-split tokens.
func MatchLevels(pattern, levels []string) bool {
	for i, p := range pattern {
		if p == WildcardTail {
			return i == len(pattern)-1 && len(levels) > i
		}
		if i >= len(levels) {
			return false
		}
		if p != WildcardToken && p != levels[i] {
			return false
		}
	}
	return len(pattern) == len(levels)
}

// TopicToSubject maps a '/' separated topic path onto a subject.
func TopicToSubject(topic string) string {
	return strings.ReplaceAll(strings.Trim(topic, "/"), "/", ".")
}
