package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/deploymenttheory/go-vmdk-inspect/internal/fsutil"
	"github.com/deploymenttheory/go-vmdk-inspect/internal/osutil"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name used for config files and directories
	AppName = "go-vmdk-inspect"

	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "VMDK_INSPECT"
)

// AppConfig holds the application configuration
type AppConfig struct {
	// Core settings
	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`

	// Output settings
	Output struct {
		Format string `mapstructure:"format"` // text, json or yaml
		Strict bool   `mapstructure:"strict"` // unrecognized files fail the command
	} `mapstructure:"output"`

	// Snapshot chain settings
	Chain struct {
		CacheSize int `mapstructure:"cache_size"` // parsed descriptions kept in memory
	} `mapstructure:"chain"`
}

// Global variables
var (
	// Global configuration instance
	Instance AppConfig

	// Status indicators
	ConfigLoaded bool
	ConfigFile   string

	// Viper instance
	v *viper.Viper

	// Ensure thread safety
	initOnce sync.Once
)

// Initialize sets up the configuration system
func Initialize(cfgFile string) error {
	var err error

	initOnce.Do(func() {
		v = viper.New()

		setDefaults(v)

		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
		} else {
			v.SetConfigName(AppName)
			v.SetConfigType("yaml")
			addSearchPaths(v)
		}

		// Set up environment variables
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		v.AutomaticEnv()

		// Read configuration file
		if readErr := v.ReadInConfig(); readErr != nil {
			if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
				// Only capture error if the config file was found but couldn't be read
				err = fmt.Errorf("error reading config file: %w", readErr)
			}
			// Config file not found, using defaults and environment variables
			ConfigLoaded = false
			ConfigFile = ""
		} else {
			ConfigLoaded = true
			ConfigFile = v.ConfigFileUsed()
		}

		// Unmarshal config into struct
		if unmarshalErr := v.Unmarshal(&Instance); unmarshalErr != nil {
			err = fmt.Errorf("error parsing config: %w", unmarshalErr)
		}
	})

	return err
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "human")

	// Logging to a file is opt-in for a CLI inspector; an empty default
	// keeps diagnostics on stderr only
	v.SetDefault("log_file", "")

	v.SetDefault("output.format", "text")
	v.SetDefault("output.strict", false)

	v.SetDefault("chain.cache_size", 64)
}

// addSearchPaths adds config search paths
func addSearchPaths(v *viper.Viper) {
	// Always check current directory first
	v.AddConfigPath(".")

	if osutil.IsDevEnvironment() {
		// In dev mode, only use current directory and user home
		configDir, err := fsutil.GetConfigDir(AppName)
		if err == nil {
			v.AddConfigPath(configDir)
		}
		return
	}

	if osutil.IsRunningInPipeline() {
		// In CI/Pipeline, only use current directory and explicit CI directories
		v.AddConfigPath(filepath.Join("/etc", AppName))
		return
	}

	// Standard operation - add user config directory
	configDir, err := fsutil.GetConfigDir(AppName)
	if err == nil {
		v.AddConfigPath(configDir)
	}

	// Add system-wide config directory
	systemConfigDir, err := fsutil.GetSystemConfigDir(AppName)
	if err == nil {
		v.AddConfigPath(systemConfigDir)
	}
}
