package installer

import "runtime"

// HostPlatform identifies the running OS as darwin, linux, or unknown.
func HostPlatform() string {
	switch runtime.GOOS {
	case "darwin":
		return "darwin"
	case "linux":
		return "linux"
	default:
		return "unknown"
	}
}

// HostArch identifies the running CPU as x86_64, aarch64, or unknown.
func HostArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	default:
		return "unknown"
	}
}
