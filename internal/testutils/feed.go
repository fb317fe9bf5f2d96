package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Release is one security release of a generated feed document.
type Release struct {
	Name string
	Date time.Time
}

// FeedDocument returns a feed document with a single OS section listing releases in the given order.
func FeedDocument(t *testing.T, releases ...Release) []byte {
	t.Helper()

	type securityRelease struct {
		UpdateName               string
		ReleaseDate              string
		DaysSincePreviousRelease int
	}

	var srs []securityRelease
	for i, r := range releases {
		days := 0
		if i+1 < len(releases) {
			days = int(r.Date.Sub(releases[i+1].Date).Hours() / 24)
		}
		srs = append(srs, securityRelease{
			UpdateName:               r.Name,
			ReleaseDate:              r.Date.UTC().Format("2006-01-02T15:04:05Z"),
			DaysSincePreviousRelease: days,
		})
	}

	doc, err := json.Marshal(map[string]any{
		"UpdateHash": "test",
		"OSVersions": []map[string]any{
			{"OSVersion": "Test OS", "SecurityReleases": srs},
		},
	})
	require.NoError(t, err, "Setup: could not marshal feed document")
	return doc
}

// FeedServer serves a feed document with an entity tag and counts the requests it answers.
type FeedServer struct {
	*httptest.Server

	requests atomic.Int64
}

// NewFeedServer starts a FeedServer, closed at the end of the test.
func NewFeedServer(t *testing.T, doc []byte, etag string) *FeedServer {
	t.Helper()

	s := &FeedServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		if etag != "" {
			w.Header().Set("ETag", etag)
			if r.Header.Get("If-None-Match") == etag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	}))
	t.Cleanup(s.Close)

	return s
}

// Requests returns the number of requests the server answered.
func (s *FeedServer) Requests() int64 {
	return s.requests.Load()
}
