// Package cli provides utility functions for command line interface applications.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// InitViperConfig initializes the Viper configuration for a command.
//
// Every key must have a default set before calling it, so that environment variables can be matched
// against the known keys.
func InitViperConfig(cmdName string, cmd *cobra.Command, vip *viper.Viper) error {
	if v, err := cmd.Flags().GetString("config"); err == nil && v != "" {
		vip.SetConfigFile(v)
	} else {
		vip.SetConfigName(cmdName)
		vip.AddConfigPath(".")

		if runtime.GOOS == "windows" {
			vip.AddConfigPath("C:\\ProgramData\\" + cmdName)
		} else {
			vip.AddConfigPath("/etc/" + cmdName)
			vip.AddConfigPath("/usr/local/etc/" + cmdName)
		}

		if binPath, err := os.Executable(); err != nil {
			slog.Warn("Failed to get current executable path, not adding it as a config dir", "error", err)
		} else {
			vip.AddConfigPath(filepath.Dir(binPath))
		}
	}
	if err := vip.ReadInConfig(); err != nil {
		var e viper.ConfigFileNotFoundError
		if errors.As(err, &e) {
			slog.Info("No configuration file.\nWe will only use the defaults, env variables or flags.", "error", e)
		} else {
			return fmt.Errorf("invalid configuration file: %w", err)
		}
	} else {
		slog.Info("Using configuration file", "file", vip.ConfigFileUsed())
	}

	// Handle environment.
	envPrefix := EnvPrefix(cmdName)
	vip.SetEnvPrefix(strings.TrimSuffix(envPrefix, "_"))
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vip.AutomaticEnv()

	// Visit manually env to bind every possibly related environment variable to be able to unmarshal
	// those into a struct. Keys themselves may contain underscores, so variables are matched against
	// the known keys first.
	// More context on https://github.com/spf13/viper/pull/1429.
	known := make(map[string]string)
	for _, k := range vip.AllKeys() {
		known[strings.ToUpper(strings.ReplaceAll(k, ".", "_"))] = k
	}
	for _, e := range os.Environ() {
		if !strings.HasPrefix(e, envPrefix) {
			continue
		}

		name, _, _ := strings.Cut(e, "=")
		suffix := strings.TrimPrefix(name, envPrefix)
		k, ok := known[suffix]
		if !ok {
			k = strings.ToLower(strings.ReplaceAll(suffix, "_", "."))
		}
		if err := vip.BindEnv(k, name); err != nil {
			return fmt.Errorf("could not bind environment variable: %w", err)
		}
	}

	return nil
}

// EnvPrefix returns the prefix of the environment variables read for cmdName, underscore included.
func EnvPrefix(cmdName string) string {
	return strings.ToUpper(strings.ReplaceAll(cmdName, "-", "_")) + "_"
}

// DecodeHook is the viper unmarshal option decoding durations and text unmarshalers.
func DecodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))
}

// LoadEnvFile loads the environment variables of a dotenv file, never overriding the existing ones.
// A missing file is only an error when required is set.
func LoadEnvFile(path string, required bool) error {
	if err := godotenv.Load(path); err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			slog.Debug("No environment file", "path", path)
			return nil
		}
		return fmt.Errorf("could not load environment file %q: %w", path, err)
	}
	slog.Info("Loaded environment file", "path", path)
	return nil
}

// InstallConfigFlag adds a config flag to the command.
func InstallConfigFlag(cmd *cobra.Command) *string {
	return cmd.PersistentFlags().String("config", "", "use a specific configuration file")
}

// InstallEnvFileFlag adds an env-file flag to the command.
// The usage reminds that variables are only read under the environment prefix of cmdName.
func InstallEnvFileFlag(cmd *cobra.Command, cmdName string) *string {
	usage := fmt.Sprintf("load environment variables from a dotenv file, variable names need the %s prefix", EnvPrefix(cmdName))
	return cmd.PersistentFlags().String("env-file", "", usage)
}
