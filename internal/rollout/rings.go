// Package rollout decides which rings of the fleet receive an OS update, and until when they can defer it.
package rollout

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/macdeacon99/jamf-rings/internal/version"
)

// Name identifies a ring. Rings are always evaluated in the order of their names.
type Name int

const (
	// Test is the first ring, usually IT owned devices.
	Test Name = iota
	// First is the early adopters ring.
	First
	// Fast is the ring of users who can take an update quickly.
	Fast
	// Broad is the rest of the fleet.
	Broad
)

var names = [...]string{Test: "test", First: "first", Fast: "fast", Broad: "broad"}

// String implements fmt.Stringer.
func (n Name) String() string {
	if n < 0 || int(n) >= len(names) {
		return fmt.Sprintf("Name(%d)", int(n))
	}
	return names[n]
}

// MarshalText encodes the ring name.
func (n Name) MarshalText() ([]byte, error) {
	if n < 0 || int(n) >= len(names) {
		return nil, fmt.Errorf("unknown ring %d", int(n))
	}
	return []byte(names[n]), nil
}

// Ring is a cohort of devices receiving an update once enough days elapsed since its release.
// ID is the Jamf Pro computer group holding the devices of the ring, GroupName its optional name.
type Ring struct {
	Name       Name   `json:"name" yaml:"name" toml:"name"`
	ID         int    `json:"id" yaml:"id" toml:"id"`
	GroupName  string `json:"groupName,omitempty" yaml:"groupName,omitempty" toml:"groupName,omitempty"`
	MinorDelay int    `json:"minorDelay" yaml:"minorDelay" toml:"minorDelay"`
	MajorDelay int    `json:"majorDelay" yaml:"majorDelay" toml:"majorDelay"`
}

// Delay returns the number of days after release from which the ring receives an update of class c.
func (r Ring) Delay(c version.Class) int {
	if c == version.Major {
		return r.MajorDelay
	}
	return r.MinorDelay
}

// ErrMissingGroupID is returned when a ring has no Jamf Pro computer group ID.
var ErrMissingGroupID = errors.New("ring has no computer group ID")

// RingConfig is the configuration of a single ring.
type RingConfig struct {
	ID         int    `mapstructure:"id"`
	GroupName  string `mapstructure:"group_name"`
	MinorDelay int    `mapstructure:"minor_delay"`
	MajorDelay int    `mapstructure:"major_delay"`
}

// RingsConfig is the configuration of every ring.
type RingsConfig struct {
	Test  RingConfig `mapstructure:"test"`
	First RingConfig `mapstructure:"first"`
	Fast  RingConfig `mapstructure:"fast"`
	Broad RingConfig `mapstructure:"broad"`
}

// DefaultRings is the ring configuration used when none is provided.
var DefaultRings = RingsConfig{
	Test:  RingConfig{MinorDelay: 0, MajorDelay: 0},
	First: RingConfig{MinorDelay: 3, MajorDelay: 7},
	Fast:  RingConfig{MinorDelay: 7, MajorDelay: 14},
	Broad: RingConfig{MinorDelay: 14, MajorDelay: 30},
}

// Rings returns the configured rings, in evaluation order.
func (c RingsConfig) Rings() []Ring {
	ring := func(n Name, rc RingConfig) Ring {
		return Ring{Name: n, ID: rc.ID, GroupName: rc.GroupName, MinorDelay: rc.MinorDelay, MajorDelay: rc.MajorDelay}
	}
	return []Ring{
		ring(Test, c.Test),
		ring(First, c.First),
		ring(Fast, c.Fast),
		ring(Broad, c.Broad),
	}
}

// Validate checks the ring configuration.
//
// Delays must not be negative and IDs, when set, must be distinct.
// Delays decreasing along the ring order are accepted but logged, as such a ring only becomes
// active with the rings before it.
func (c RingsConfig) Validate(log *slog.Logger) error {
	var errs error
	seen := make(map[int]Name)
	rings := c.Rings()
	for i, r := range rings {
		if r.MinorDelay < 0 || r.MajorDelay < 0 {
			errs = errors.Join(errs, fmt.Errorf("ring %s: delays cannot be negative", r.Name))
		}
		if r.ID < 0 {
			errs = errors.Join(errs, fmt.Errorf("ring %s: group ID cannot be negative", r.Name))
		}
		if r.ID > 0 {
			if other, ok := seen[r.ID]; ok {
				errs = errors.Join(errs, fmt.Errorf("rings %s and %s share group ID %d", other, r.Name, r.ID))
			}
			seen[r.ID] = r.Name
		}

		if i == 0 {
			continue
		}
		prev := rings[i-1]
		for _, class := range []version.Class{version.Minor, version.Major} {
			if r.Delay(class) < prev.Delay(class) {
				log.Warn("Ring delay is lower than the delay of the ring before it",
					"ring", r.Name, "previous_ring", prev.Name, "class", class,
					"delay", r.Delay(class), "previous_delay", prev.Delay(class))
			}
		}
	}

	return errs
}

// CheckGroupIDs returns ErrMissingGroupID when a ring has no computer group assigned.
func (c RingsConfig) CheckGroupIDs() error {
	var errs error
	for _, r := range c.Rings() {
		if r.ID <= 0 {
			errs = errors.Join(errs, fmt.Errorf("%w: ring %s", ErrMissingGroupID, r.Name))
		}
	}
	return errs
}

// FinalDelays are the days after which the rollout of a release is considered complete, per update class.
type FinalDelays struct {
	Minor int `mapstructure:"minor"`
	Major int `mapstructure:"major"`
}

// DefaultFinalDelays matches the broad ring of DefaultRings.
var DefaultFinalDelays = FinalDelays{Minor: 14, Major: 30}

// For returns the final delay of class c.
func (f FinalDelays) For(c version.Class) int {
	if c == version.Major {
		return f.Major
	}
	return f.Minor
}

// Validate checks that no final delay is negative.
func (f FinalDelays) Validate() error {
	if f.Minor < 0 || f.Major < 0 {
		return errors.New("final delays cannot be negative")
	}
	return nil
}
