package constants

// WithUserCacheDir overrides the lookup of the user cache directory.
func WithUserCacheDir(userCacheDir func() (string, error)) option {
	return func(o *options) {
		o.userCacheDir = userCacheDir
	}
}
