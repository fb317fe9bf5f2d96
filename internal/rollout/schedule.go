package rollout

import (
	"time"

	"github.com/macdeacon99/jamf-rings/internal/feed"
	"github.com/macdeacon99/jamf-rings/internal/version"
)

const day = 24 * time.Hour

// ElapsedDays returns the number of whole days between since and now.
// A date in the future counts as day 0.
func ElapsedDays(since, now time.Time) int {
	d := now.Sub(since)
	if d < 0 {
		return 0
	}
	return int(d / day)
}

// ActiveRings returns the rings receiving an update of class c elapsedDays after its release.
//
// The first ring is always active. The following rings are walked in order, each one becoming
// active on the very day its delay elapses, and the walk stops at the first ring whose delay is
// not reached yet. Every ring before the frontier stays active.
func ActiveRings(elapsedDays int, c version.Class, rings []Ring) []Ring {
	if len(rings) == 0 {
		return nil
	}

	active := []Ring{rings[0]}
	for _, r := range rings[1:] {
		if elapsedDays < r.Delay(c) {
			break
		}
		active = append(active, r)
	}
	return active
}

// Deadline returns the date at which an update of class c released on release is forced, when
// activeCount rings are active.
//
// The deadline is set by the delay of the next ring to become active. When every ring is already
// active, the delay of the last ring is used.
func Deadline(release time.Time, activeCount int, c version.Class, rings []Ring) time.Time {
	if len(rings) == 0 {
		return release
	}
	i := min(max(activeCount, 0), len(rings)-1)
	return release.Add(time.Duration(rings[i].Delay(c)) * day)
}

// Selection is the release a rollout targets.
// CatchingUp is true when the previous release is kept as target because its rollout is not complete.
type Selection struct {
	Target      feed.Record
	ElapsedDays int
	CatchingUp  bool
}

// SelectTarget chooses between the latest release and the one before it.
//
// As long as the final delay of class c has not elapsed since the previous release, its rollout is
// still in flight. It stays the target so the fleet never skips it. Otherwise, the latest release
// becomes the target and its rollout starts from its own release date.
func SelectTarget(c version.Class, latest, previous feed.Record, final FinalDelays, now time.Time) Selection {
	sincePrevious := ElapsedDays(previous.ReleaseDate, now)
	if sincePrevious < final.For(c) {
		return Selection{Target: previous, ElapsedDays: sincePrevious, CatchingUp: true}
	}
	return Selection{Target: latest, ElapsedDays: ElapsedDays(latest.ReleaseDate, now)}
}
