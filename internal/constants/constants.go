// Package constants is responsible for defining the constants used in the application.
// It also provides utility functions to get the default cache path.
package constants

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

var (
	// Version is the version of the application. It is set at build time.
	Version = "Dev"
)

const (
	// CmdName is the name of the command line tool.
	CmdName = "jamf-rings"

	// DefaultAppFolder is the name of the default root folder.
	DefaultAppFolder = "jamf-rings"

	// DefaultLogLevel is the default log level selected without any verbosity flags.
	DefaultLogLevel = slog.LevelWarn

	// DefaultFeedURL is the macOS data feed published by the SOFA project.
	DefaultFeedURL = "https://sofafeed.macadmins.io/v1/macos_data_feed.json"

	// DefaultUserAgent is sent with every feed request.
	DefaultUserAgent = CmdName

	// DefaultFeedTimeout bounds a single feed request.
	DefaultFeedTimeout = 3 * time.Second

	// DefaultJamfTimeout bounds a single Jamf Pro API request.
	DefaultJamfTimeout = 30 * time.Second

	// DefaultFeedFile is the base name of the cached feed document.
	DefaultFeedFile = "macos_data_feed.json"

	// DefaultETagFile is the base name of the file holding the entity tag of the cached feed document.
	DefaultETagFile = "macos_data_feed.etag"

	// DefaultEnvFile is loaded, when present, before the environment is read.
	DefaultEnvFile = ".env"
)

type options struct {
	userCacheDir func() (string, error)
}

type option func(*options)

// GetDefaultCachePath is the default path to the feed cache directory, under the user cache directory.
func GetDefaultCachePath(opts ...option) string {
	o := options{userCacheDir: os.UserCacheDir}
	for _, opt := range opts {
		opt(&o)
	}

	dir, err := o.userCacheDir()
	if err != nil {
		return DefaultAppFolder
	}
	return filepath.Join(dir, DefaultAppFolder)
}
