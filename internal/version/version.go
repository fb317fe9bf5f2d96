// Package version parses dotted OS release labels and classifies the difference between two releases.
package version

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var (
	// ErrAmbiguous is returned when two releases carry the same version, so no progression can be derived.
	ErrAmbiguous = errors.New("no version progression between releases")
	// ErrInvalid is returned when a label is not a dotted sequence of non-negative integers.
	ErrInvalid = errors.New("invalid version")
)

// Class is the kind of update a release represents relative to the one before it.
type Class int

const (
	// Minor is an update within the same major version.
	Minor Class = iota
	// Major is an update crossing to a new major version.
	Major
)

// String implements fmt.Stringer.
func (c Class) String() string {
	switch c {
	case Minor:
		return "minor"
	case Major:
		return "major"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// MarshalText encodes the class by name, so that plans read naturally in every output format.
func (c Class) MarshalText() ([]byte, error) {
	switch c {
	case Minor, Major:
		return []byte(c.String()), nil
	default:
		return nil, fmt.Errorf("unknown update class %d", int(c))
	}
}

// Tuple is a release label reduced to its numeric components, most significant first.
type Tuple []int

// Parse converts a dotted label such as "14.5.1" into a Tuple.
func Parse(s string) (Tuple, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty label", ErrInvalid)
	}

	parts := strings.Split(s, ".")
	t := make(Tuple, 0, len(parts))
	for _, p := range parts {
		// Atoi accepts signs, which are never part of a release number.
		if p == "" || strings.ContainsAny(p, "+-") {
			return nil, fmt.Errorf("%w: %q", ErrInvalid, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalid, s, err)
		}
		t = append(t, n)
	}
	return t, nil
}

// String returns the dotted form of the tuple.
func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, n := range t {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Classify determines whether latest is a major or minor update over previous.
//
// A greater leading component is a major update, whatever follows it.
// Any other difference is a minor update. Identical tuples return ErrAmbiguous.
func Classify(latest, previous Tuple) (Class, error) {
	if len(latest) == 0 || len(previous) == 0 {
		return 0, fmt.Errorf("%w: empty tuple", ErrInvalid)
	}

	if latest[0] > previous[0] {
		return Major, nil
	}
	if !slices.Equal(latest, previous) {
		return Minor, nil
	}
	return 0, fmt.Errorf("%w: both releases are %s", ErrAmbiguous, latest)
}

// ClassifyLabels parses both labels and classifies latest against previous.
func ClassifyLabels(latest, previous string) (Class, error) {
	l, err := Parse(latest)
	if err != nil {
		return 0, fmt.Errorf("latest release: %w", err)
	}
	p, err := Parse(previous)
	if err != nil {
		return 0, fmt.Errorf("previous release: %w", err)
	}
	return Classify(l, p)
}
