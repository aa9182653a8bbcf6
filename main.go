package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/deploymenttheory/go-vmdk-inspect/cmd"
	"github.com/deploymenttheory/go-vmdk-inspect/internal/config"
	"github.com/deploymenttheory/go-vmdk-inspect/internal/fsutil"
	"github.com/deploymenttheory/go-vmdk-inspect/internal/logger"
)

func main() {
	// Get app configuration file from environment if specified
	configFile := os.Getenv("VMDK_INSPECT_CONFIG")

	// 1. Initialize application configuration
	if err := config.Initialize(configFile); err != nil {
		// For app configuration errors, we print to stderr and exit since we can't continue
		fmt.Fprintf(os.Stderr, "Error initializing configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logging based on application configuration
	if err := initLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}

	// 3. Hand off to Cobra
	cmd.Execute()

	// Ensure logs are flushed before exit
	logger.Sync()
}

// initLogging initializes the logger based on configuration settings.
// A bare log file name is placed in the platform log directory.
func initLogging() error {
	logFile := config.Instance.LogFile
	if logFile != "" && logFile == filepath.Base(logFile) {
		logDir, err := fsutil.GetLogDir(config.AppName)
		if err != nil {
			return err
		}
		logFile = filepath.Join(logDir, logFile)
	}

	logConfig := logger.LoggerConfig{
		Debug:     config.Instance.Debug,
		LogFormat: config.Instance.LogFormat,
		LogFile:   logFile,
	}

	return logger.InitLogger(logConfig)
}
