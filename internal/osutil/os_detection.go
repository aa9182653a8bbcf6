package osutil

import (
	"os"
	"runtime"
)

// OS type constants
const (
	Windows = "windows"
	MacOS   = "darwin"
	Linux   = "linux"
)

// GetOSType returns the current operating system type
func GetOSType() string {
	return runtime.GOOS
}

// IsWindows returns true if running on Windows
func IsWindows() bool {
	return GetOSType() == Windows
}

// IsMacOS returns true if running on macOS (Darwin)
func IsMacOS() bool {
	return GetOSType() == MacOS
}

// IsLinux returns true if running on Linux
func IsLinux() bool {
	return GetOSType() == Linux
}

// IsUnix returns true if running on a Unix-like system
func IsUnix() bool {
	return IsMacOS() || IsLinux() || GetOSType() == "freebsd" ||
		GetOSType() == "openbsd" || GetOSType() == "netbsd"
}

// IsDevEnvironment checks if the application is running in a development
// environment based on environment variables
func IsDevEnvironment() bool {
	return os.Getenv("VMDK_INSPECT_ENV") == "development" ||
		os.Getenv("VMDK_INSPECT_DEV") == "true" ||
		os.Getenv("DEV") == "true" ||
		os.Getenv("DEBUG") == "true"
}

// IsRunningInPipeline returns true if running in a CI/CD pipeline environment
func IsRunningInPipeline() bool {
	return os.Getenv("CI") == "true" ||
		os.Getenv("PIPELINE") == "true" ||
		os.Getenv("GITHUB_ACTIONS") == "true" ||
		os.Getenv("JENKINS_URL") != ""
}
