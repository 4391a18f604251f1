// Package testname contains the helpers used to take fully qualified test names apart.
// Test runners, the discovery listing and the symbol providers all report names
// in slightly different shapes, these functions are the common ground between them.
package testname

import (
	"regexp"
	"strings"
)

var (
	argumentsRegexp = regexp.MustCompile(`\(.*\)`)
	theoryRegexp    = regexp.MustCompile(`^([^(]*[^ (])( ?\(.*\))$`)
)

// SplitRespectingParens splits name on delimiter, except inside (...) spans.
// An unterminated ( keeps the rest of the string in the last segment.
func SplitRespectingParens(name string, delimiter rune) []string {
	var segments []string
	var current strings.Builder
	depth := 0

	for _, r := range name {
		switch {
		case r == '(':
			depth++
		case r == ')' && depth > 0:
			depth--
		case r == delimiter && depth == 0:
			segments = append(segments, current.String())
			current.Reset()
			continue
		}
		current.WriteRune(r)
	}

	return append(segments, current.String())
}

// StripArguments removes the argument list of a method name.
//
// The match is greedy and not anchored: everything between the first ( and the
// last ) is removed, which is what the runners' filter syntax expects.
func StripArguments(name string) string {
	return argumentsRegexp.ReplaceAllString(name, "")
}

// SplitTheory splits a parameterized test name into the method name and its parameter suffix.
// Both "Method(a: 1)" and "Method (a: 1)" are recognised; in the latter case the space stays
// with the parameters, so method+parameters always gives back the original name.
func SplitTheory(name string) (method, parameters string, ok bool) {
	matches := theoryRegexp.FindStringSubmatch(name)
	if matches == nil {
		return "", "", false
	}
	return matches[1], matches[2], true
}

// LastSegment returns the part of a fully qualified name after its last dot,
// dots inside argument lists are not taken into account.
func LastSegment(name string) string {
	segments := SplitRespectingParens(name, '.')
	return segments[len(segments)-1]
}
