package feed

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ErrMalformedFeed is returned when the feed document does not have the expected shape.
var ErrMalformedFeed = errors.New("malformed feed document")

// ReleaseDateLayout is the layout of release dates in the feed.
const ReleaseDateLayout = "2006-01-02T15:04:05Z"

// Record is one published OS release, as listed in the feed.
type Record struct {
	UpdateName               string    `json:"updateName" yaml:"updateName" toml:"updateName"`
	ReleaseDate              time.Time `json:"releaseDate" yaml:"releaseDate" toml:"releaseDate"`
	DaysSincePreviousRelease int64     `json:"daysSincePreviousRelease" yaml:"daysSincePreviousRelease" toml:"daysSincePreviousRelease"`
}

// Version returns the version part of the update name, which is its last word.
// "macOS Sonoma 14.5" gives "14.5".
func (r Record) Version() string {
	fields := strings.Fields(r.UpdateName)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// Records returns the security releases of one OS version section of the feed document.
//
// Sections are indexed in feed order, 0 being the most recent OS. Records are returned in feed
// order, newest first.
func Records(doc []byte, section int) ([]Record, error) {
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrMalformedFeed)
	}
	if section < 0 {
		return nil, fmt.Errorf("%w: negative section %d", ErrMalformedFeed, section)
	}

	sections := gjson.GetBytes(doc, "OSVersions")
	if !sections.IsArray() {
		return nil, fmt.Errorf("%w: no OSVersions array", ErrMalformedFeed)
	}
	s := sections.Get(fmt.Sprint(section))
	if !s.Exists() {
		return nil, fmt.Errorf("%w: no OS version section %d", ErrMalformedFeed, section)
	}
	releases := s.Get("SecurityReleases")
	if !releases.IsArray() {
		return nil, fmt.Errorf("%w: section %q has no SecurityReleases array", ErrMalformedFeed, s.Get("OSVersion").String())
	}

	var records []Record
	var err error
	releases.ForEach(func(i, v gjson.Result) bool {
		var r Record
		r, err = parseRecord(v)
		if err != nil {
			err = fmt.Errorf("%w: release %d: %v", ErrMalformedFeed, i.Int(), err)
			return false
		}
		records = append(records, r)
		return true
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

func parseRecord(v gjson.Result) (Record, error) {
	name := v.Get("UpdateName")
	if name.Type != gjson.String || strings.TrimSpace(name.String()) == "" {
		return Record{}, errors.New("missing UpdateName")
	}

	date := v.Get("ReleaseDate")
	if date.Type != gjson.String {
		return Record{}, fmt.Errorf("%s: missing ReleaseDate", name.String())
	}
	released, err := time.Parse(ReleaseDateLayout, date.String())
	if err != nil {
		return Record{}, fmt.Errorf("%s: invalid ReleaseDate: %v", name.String(), err)
	}

	return Record{
		UpdateName:               name.String(),
		ReleaseDate:              released.UTC(),
		DaysSincePreviousRelease: v.Get("DaysSincePreviousRelease").Int(),
	}, nil
}

// History returns the security releases of section, followed by those of older sections until
// at least two releases are listed.
//
// A section holding a single release, as when a new major OS is just published, is then followed
// by the releases of the previous OS. Sections which are not needed are not read.
func History(doc []byte, section int) ([]Record, error) {
	records, err := Records(doc, section)
	if err != nil {
		return nil, err
	}

	n := len(gjson.GetBytes(doc, "OSVersions").Array())
	for i := section + 1; i < n && len(records) < 2; i++ {
		older, err := Records(doc, i)
		if err != nil {
			return nil, err
		}
		records = append(records, older...)
	}
	return records, nil
}
