package rollout

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/macdeacon99/jamf-rings/internal/feed"
	"github.com/macdeacon99/jamf-rings/internal/version"
	"github.com/ubuntu/decorate"
)

// ErrNotEnoughReleases is returned when the feed lists less than two releases.
var ErrNotEnoughReleases = errors.New("at least two releases are needed to plan a rollout")

// Plan is the rollout decided for the current run.
type Plan struct {
	TargetVersion     string        `json:"targetVersion" yaml:"targetVersion" toml:"targetVersion"`
	TargetUpdate      string        `json:"targetUpdate" yaml:"targetUpdate" toml:"targetUpdate"`
	TargetReleaseDate time.Time     `json:"targetReleaseDate" yaml:"targetReleaseDate" toml:"targetReleaseDate"`
	Class             version.Class `json:"class" yaml:"class" toml:"class"`
	CatchingUp        bool          `json:"catchingUp" yaml:"catchingUp" toml:"catchingUp"`
	ElapsedDays       int           `json:"elapsedDays" yaml:"elapsedDays" toml:"elapsedDays"`
	ActiveRings       []Ring        `json:"activeRings" yaml:"activeRings" toml:"activeRings"`
	InstallDeadline   time.Time     `json:"installDeadline" yaml:"installDeadline" toml:"installDeadline"`
}

// ActiveRingIDs returns the group IDs of the active rings, in ring order.
func (p Plan) ActiveRingIDs() []int {
	ids := make([]int, 0, len(p.ActiveRings))
	for _, r := range p.ActiveRings {
		ids = append(ids, r.ID)
	}
	return ids
}

// Frontier returns the last active ring.
func (p Plan) Frontier() Ring {
	if len(p.ActiveRings) == 0 {
		return Ring{}
	}
	return p.ActiveRings[len(p.ActiveRings)-1]
}

type timeProvider interface {
	Now() time.Time
}

type realTimeProvider struct{}

func (realTimeProvider) Now() time.Time {
	return time.Now().UTC()
}

// Planner computes rollout plans from feed releases.
type Planner struct {
	rings []Ring
	final FinalDelays

	timeProvider timeProvider
	log          *slog.Logger
}

type options struct {
	// Private members exported for tests.
	timeProvider timeProvider
	log          *slog.Logger
}

// Options represents an optional function to override Planner default values.
type Options func(*options)

// WithLogger sets the logger of the planner.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

type fixedTime time.Time

func (t fixedTime) Now() time.Time {
	return time.Time(t).UTC()
}

// AsOf makes the planner compute plans as if the current time was t.
func AsOf(t time.Time) Options {
	return func(o *options) {
		o.timeProvider = fixedTime(t)
	}
}

// New returns a Planner for the given ring configuration.
func New(rings RingsConfig, final FinalDelays, args ...Options) (Planner, error) {
	opts := options{
		timeProvider: realTimeProvider{},
		log:          slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}

	if err := rings.Validate(opts.log); err != nil {
		return Planner{}, fmt.Errorf("invalid ring configuration: %w", err)
	}
	if err := rings.CheckGroupIDs(); err != nil {
		return Planner{}, fmt.Errorf("invalid ring configuration: %w", err)
	}
	if err := final.Validate(); err != nil {
		return Planner{}, fmt.Errorf("invalid final delays: %w", err)
	}

	return Planner{
		rings:        rings.Rings(),
		final:        final,
		timeProvider: opts.timeProvider,
		log:          opts.log,
	}, nil
}

// Plan computes the rollout for releases, listed newest first.
//
// The two newest releases define the update class. The target is the previous release while its
// rollout is in flight, the latest one otherwise.
func (p Planner) Plan(releases []feed.Record) (plan Plan, err error) {
	defer decorate.OnError(&err, "could not plan rollout")

	if len(releases) < 2 {
		return Plan{}, fmt.Errorf("%w: got %d", ErrNotEnoughReleases, len(releases))
	}
	latest, previous := releases[0], releases[1]

	class, err := version.ClassifyLabels(latest.Version(), previous.Version())
	if err != nil {
		return Plan{}, fmt.Errorf("classification failed between %q and %q: %w", latest.UpdateName, previous.UpdateName, err)
	}
	p.log.Debug("Classified update", "latest", latest.UpdateName, "previous", previous.UpdateName, "class", class)

	now := p.timeProvider.Now()
	sel := SelectTarget(class, latest, previous, p.final, now)
	if sel.CatchingUp {
		p.log.Info("Previous rollout not finished, keeping it as target",
			"target", sel.Target.UpdateName, "elapsed_days", sel.ElapsedDays, "final_delay", p.final.For(class))
	} else {
		p.log.Info("Previous rollout finished, targeting latest release",
			"target", sel.Target.UpdateName, "elapsed_days", sel.ElapsedDays)
	}

	active := ActiveRings(sel.ElapsedDays, class, p.rings)
	deadline := Deadline(sel.Target.ReleaseDate, len(active), class, p.rings)

	return Plan{
		TargetVersion:     sel.Target.Version(),
		TargetUpdate:      sel.Target.UpdateName,
		TargetReleaseDate: sel.Target.ReleaseDate,
		Class:             class,
		CatchingUp:        sel.CatchingUp,
		ElapsedDays:       sel.ElapsedDays,
		ActiveRings:       active,
		InstallDeadline:   deadline,
	}, nil
}
