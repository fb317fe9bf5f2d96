package commands_test

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/macdeacon99/jamf-rings/internal/testutils"
)

const (
	testClientID     = "rings-client"
	testClientSecret = "rings-secret"
	smartGroupID     = 10
	policyID         = 20
)

// sonomaReleases are rolled out as a minor update, 5 days after the latest release on the date of atMinor.
var (
	sonomaReleases = []testutils.Release{
		{Name: "macOS Sonoma 14.5", Date: time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)},
		{Name: "macOS Sonoma 14.4.1", Date: time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)},
		{Name: "macOS Sonoma 14.4", Date: time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)},
	}
	atMinor = "2024-05-18"
)

// testConfig returns a configuration file content pointing to the given feed and Jamf Pro tenant.
func testConfig(feedURL, jamfURL, cacheDir string) map[string]any {
	return map[string]any{
		"feed": map[string]any{
			"url":        feedURL,
			"user_agent": "jamf-rings-tests",
			"timeout":    "2s",
		},
		"cache": map[string]any{
			"dir": cacheDir,
		},
		"rings": map[string]any{
			"test":  map[string]any{"id": 1},
			"first": map[string]any{"id": 2},
			"fast":  map[string]any{"id": 3},
			"broad": map[string]any{"id": 4},
		},
		"jamf": map[string]any{
			"url":            jamfURL,
			"client_id":      testClientID,
			"client_secret":  testClientSecret,
			"timeout":        "5s",
			"smart_group_id": smartGroupID,
			"policy_id":      policyID,
		},
	}
}

// set returns conf with the value at the dotted key replaced.
func set(conf map[string]any, key string, value any) map[string]any {
	parts := strings.Split(key, ".")
	m := conf
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
	return conf
}

type jsonPlan struct {
	TargetVersion   string    `json:"targetVersion"`
	Class           string    `json:"class"`
	CatchingUp      bool      `json:"catchingUp"`
	ElapsedDays     int       `json:"elapsedDays"`
	InstallDeadline time.Time `json:"installDeadline"`
	ActiveRings     []struct {
		Name string `json:"name"`
		ID   int    `json:"id"`
	} `json:"activeRings"`
}

func decodeJSONPlan(data []byte) (p jsonPlan, err error) {
	err = json.Unmarshal(data, &p)
	return p, err
}

func cachedFeed(cacheDir string) string {
	return filepath.Join(cacheDir, "macos_data_feed.json")
}
