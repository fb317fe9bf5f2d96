package feed

// WithWriter overrides how the cached files are written.
func WithWriter(write func(path string, data []byte) error) Options {
	return func(o *options) {
		o.write = write
	}
}
