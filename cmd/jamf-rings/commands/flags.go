package commands

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	formatText = outputFormat("text")
	formatJSON = outputFormat("json")
	formatYAML = outputFormat("yaml")
	formatTOML = outputFormat("toml")
)

var outputFormats = []outputFormat{formatText, formatJSON, formatYAML, formatTOML}

// outputFormat is the --format flag value.
type outputFormat string

func (f *outputFormat) String() string {
	return string(*f)
}

func (f *outputFormat) Set(v string) error {
	v = strings.ToLower(v)
	if !slices.Contains(outputFormats, outputFormat(v)) {
		return fmt.Errorf("unknown format %q, expected one of %v", v, outputFormats)
	}
	*f = outputFormat(v)
	return nil
}

func (f *outputFormat) Type() string {
	return "format"
}

// dateFlag is a point in time given as RFC 3339, or as a date at midnight UTC.
type dateFlag time.Time

func (d *dateFlag) String() string {
	t := time.Time(*d)
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func (d *dateFlag) Set(v string) error {
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			*d = dateFlag(t.UTC())
			return nil
		}
	}
	return fmt.Errorf("invalid date %q, expected RFC 3339 or YYYY-MM-DD", v)
}

func (d *dateFlag) Type() string {
	return "date"
}
