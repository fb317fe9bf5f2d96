package rollout

import "time"

type MockTimeProvider struct {
	CurrentTime time.Time
}

func (m MockTimeProvider) Now() time.Time {
	return m.CurrentTime
}

// WithTimeProvider sets the time provider of the planner.
func WithTimeProvider(tp timeProvider) Options {
	return func(o *options) {
		o.timeProvider = tp
	}
}
