// Package match resolves free-text tokens against a fixed set of labels.
//
// A token is valid when it is an unambiguous, case-insensitive match to one of
// the labels. An exact match always wins over partial matches.
package match

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNoMatch is returned when the input matches none of the candidates.
	ErrNoMatch = errors.New("input did not match any of the valid values")

	// ErrAmbiguousMatch is returned when the input matches more than one candidate.
	ErrAmbiguousMatch = errors.New("input matched more than one valid value")
)

// MatchError carries the offending input and the candidate set.
type MatchError struct {
	Input      string
	Candidates []string
	Matches    []string
	Err        error
}

func (e *MatchError) Error() string {
	if len(e.Matches) > 1 {
		return fmt.Sprintf("%q: %v (%s)", e.Input, e.Err, strings.Join(e.Matches, ", "))
	}
	return fmt.Sprintf("%q: %v", e.Input, e.Err)
}

func (e *MatchError) Unwrap() error {
	return e.Err
}

type options struct {
	forwardOnly bool
}

// Option configures Match.
type Option func(*options)

// ForwardOnly restricts partial matches to prefixes, so "y" matches "year"
// but "ear" does not.
func ForwardOnly() Option {
	return func(o *options) {
		o.forwardOnly = true
	}
}

// Match returns the single candidate that input refers to.
func Match(input string, candidates []string, opts ...Option) (string, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	check := fold(input)
	seen := make(map[string]struct{}, len(candidates))
	var matches []string

	for _, c := range candidates {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}

		cmp := fold(c)
		switch {
		case check == cmp:
			return c, nil
		case o.forwardOnly:
			if strings.HasPrefix(cmp, check) || strings.HasPrefix(check, cmp) {
				matches = append(matches, c)
			}
		case strings.Contains(cmp, check) || strings.Contains(check, cmp):
			matches = append(matches, c)
		}
	}

	switch len(matches) {
	case 0:
		return "", &MatchError{Input: input, Candidates: candidates, Err: ErrNoMatch}
	case 1:
		return matches[0], nil
	default:
		return "", &MatchError{Input: input, Candidates: candidates, Matches: matches, Err: ErrAmbiguousMatch}
	}
}

// fold normalizes to NFC and lower-cases, so composed and decomposed
// spellings of "Luleå" compare equal.
func fold(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}
