// Package commands implements the jamf-rings command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/macdeacon99/jamf-rings/internal/cli"
	"github.com/macdeacon99/jamf-rings/internal/constants"
	"github.com/macdeacon99/jamf-rings/internal/feed"
	"github.com/macdeacon99/jamf-rings/internal/jamf"
	"github.com/macdeacon99/jamf-rings/internal/metrics"
	"github.com/macdeacon99/jamf-rings/internal/rollout"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App represents the application.
type App struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config appConfig

	ctx     context.Context
	log     *slog.Logger
	metrics *metrics.Recorder
}

// appConfig holds the configuration for the application.
type appConfig struct {
	Verbosity int    `mapstructure:"verbose"`
	JSONLogs  bool   `mapstructure:"json-logs"`
	EnvFile   string `mapstructure:"env-file"`

	Feed       feed.Config         `mapstructure:"feed"`
	Cache      feed.CacheConfig    `mapstructure:"cache"`
	Rings      rollout.RingsConfig `mapstructure:"rings"`
	FinalDelay rollout.FinalDelays `mapstructure:"final_delay"`
	Jamf       jamf.Config         `mapstructure:"jamf"`

	MetricsFile string `mapstructure:"metrics_file"`
}

type options struct {
	ctx context.Context
}

// Options represents an optional function to override App default values.
type Options func(*options)

// WithContext sets the context cancelling the blocking operations of the commands.
func WithContext(ctx context.Context) Options {
	return func(o *options) {
		o.ctx = ctx
	}
}

// New creates a new App instance with default values.
func New(args ...Options) (*App, error) {
	opts := options{ctx: context.Background()}
	for _, opt := range args {
		opt(&opts)
	}

	a := App{
		ctx:     opts.ctx,
		log:     slog.Default(),
		metrics: metrics.New(),
	}

	a.cmd = &cobra.Command{
		Use:   constants.CmdName,
		Short: "Ring based macOS update rollouts for Jamf Pro",
		Long: `Plan and apply ring based macOS update rollouts for Jamf Pro.

The latest releases are read from a locally cached copy of the SOFA macOS data feed. Rings of
computer groups receive the update one after the other, after a configurable number of days.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.cmd.SilenceUsage = true
			cli.SetSlog(a.config.Verbosity, a.config.JSONLogs) // Set verbosity before loading config

			if err := a.loadEnvFile(); err != nil {
				return err
			}
			if err := cli.InitViperConfig(constants.CmdName, a.cmd, a.viper); err != nil {
				return err
			}
			if err := a.viper.Unmarshal(&a.config, cli.DecodeHook()); err != nil {
				return fmt.Errorf("unable to strictly decode configuration into struct: %w", err)
			}

			cli.SetSlog(a.config.Verbosity, a.config.JSONLogs) // Update logging after loading config if necessary
			a.log = slog.Default().With("run_id", uuid.NewString())
			a.log.Debug("Got app config", "config", a.config.redacted())

			return a.config.validate(a.log)
		},
	}
	a.viper = viper.New()
	a.cmd.CompletionOptions.HiddenDefaultCmd = true

	installRootCmd(&a)
	cli.InstallConfigFlag(a.cmd)
	cli.InstallEnvFileFlag(a.cmd, constants.CmdName)
	if err := a.cmd.MarkPersistentFlagFilename("config", "yaml", "yml", "toml", "json"); err != nil {
		return nil, err
	}
	if err := a.cmd.MarkPersistentFlagFilename("env-file"); err != nil {
		return nil, err
	}
	setDefaults(a.viper)

	if err := a.viper.BindPFlags(a.cmd.PersistentFlags()); err != nil {
		return nil, err
	}
	if err := a.viper.BindPFlag("cache.dir", a.cmd.PersistentFlags().Lookup("cache-dir")); err != nil {
		return nil, err
	}

	a.installFetch()
	a.installPlan()
	a.installApply()
	a.installVersion()

	return &a, nil
}

func installRootCmd(app *App) {
	cmd := app.cmd

	cmd.PersistentFlags().CountVarP(&app.config.Verbosity, "verbose", "v", "issue INFO (-v), DEBUG (-vv)")
	cmd.PersistentFlags().BoolVar(&app.config.JSONLogs, "json-logs", false, "enable JSON formatted logs")
	cmd.PersistentFlags().String("cache-dir", constants.GetDefaultCachePath(), "directory holding the cached feed document")

	if err := cmd.MarkPersistentFlagDirname("cache-dir"); err != nil {
		panic(fmt.Errorf("failed to mark cache-dir flag as directory: %w", err))
	}
}

// setDefaults registers every configuration key, so that they can all be set from the environment.
func setDefaults(vip *viper.Viper) {
	vip.SetDefault("feed.url", constants.DefaultFeedURL)
	vip.SetDefault("feed.user_agent", constants.DefaultUserAgent)
	vip.SetDefault("feed.timeout", constants.DefaultFeedTimeout)
	vip.SetDefault("feed.section", 0)

	vip.SetDefault("cache.feed_file", constants.DefaultFeedFile)
	vip.SetDefault("cache.etag_file", constants.DefaultETagFile)

	for name, r := range map[string]rollout.RingConfig{
		"test":  rollout.DefaultRings.Test,
		"first": rollout.DefaultRings.First,
		"fast":  rollout.DefaultRings.Fast,
		"broad": rollout.DefaultRings.Broad,
	} {
		vip.SetDefault("rings."+name+".id", r.ID)
		vip.SetDefault("rings."+name+".group_name", r.GroupName)
		vip.SetDefault("rings."+name+".minor_delay", r.MinorDelay)
		vip.SetDefault("rings."+name+".major_delay", r.MajorDelay)
	}
	vip.SetDefault("final_delay.minor", rollout.DefaultFinalDelays.Minor)
	vip.SetDefault("final_delay.major", rollout.DefaultFinalDelays.Major)

	vip.SetDefault("jamf.url", "")
	vip.SetDefault("jamf.client_id", "")
	vip.SetDefault("jamf.client_secret", "")
	vip.SetDefault("jamf.timeout", constants.DefaultJamfTimeout)
	vip.SetDefault("jamf.smart_group_id", 0)
	vip.SetDefault("jamf.policy_id", 0)

	vip.SetDefault("metrics_file", "")
}

// loadEnvFile loads the dotenv file given on the command line, or the default one when present.
func (a App) loadEnvFile() error {
	p, err := a.cmd.PersistentFlags().GetString("env-file")
	if err != nil {
		return err
	}
	if p != "" {
		return cli.LoadEnvFile(p, true)
	}
	return cli.LoadEnvFile(constants.DefaultEnvFile, false)
}

// validate checks the settings shared by every command.
func (c appConfig) validate(log *slog.Logger) error {
	var errs error
	if c.Cache.Dir == "" {
		errs = errors.Join(errs, errors.New("cache directory cannot be empty"))
	}
	if c.Feed.Section < 0 {
		errs = errors.Join(errs, errors.New("feed section cannot be negative"))
	}
	if err := c.Rings.Validate(log); err != nil {
		errs = errors.Join(errs, err)
	}
	if err := c.FinalDelay.Validate(); err != nil {
		errs = errors.Join(errs, err)
	}
	if errs != nil {
		return fmt.Errorf("invalid configuration: %w", errs)
	}
	return nil
}

// redacted returns the configuration without secrets, to be logged.
func (c appConfig) redacted() appConfig {
	if c.Jamf.ClientSecret != "" {
		c.Jamf.ClientSecret = "<redacted>"
	}
	return c
}

// Run executes the command and associated process, returning an error if any.
func (a App) Run() error {
	return a.cmd.ExecuteContext(a.ctx)
}

// UsageError returns if the error is a command parsing or runtime one.
func (a App) UsageError() bool {
	return !a.cmd.SilenceUsage
}

// RootCmd returns the root command.
func (a App) RootCmd() cobra.Command {
	return *a.cmd
}

// exportMetrics writes the metrics of the run when a metrics file is configured.
func (a App) exportMetrics() {
	if a.config.MetricsFile == "" {
		return
	}
	p, err := filepath.Abs(a.config.MetricsFile)
	if err != nil {
		a.log.Warn("Invalid metrics file path", "path", a.config.MetricsFile, "error", err)
		return
	}
	if err := a.metrics.WriteTextfile(p); err != nil {
		a.log.Warn("Could not export metrics", "path", p, "error", err)
		return
	}
	a.log.Info("Exported metrics", "path", p)
}

// openCache returns the feed cache described by the configuration.
func (a App) openCache() (*feed.Cache, error) {
	return feed.New(a.config.Feed, a.config.Cache, feed.WithLogger(a.log))
}
