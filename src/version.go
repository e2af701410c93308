package seawolf

import (
	"fmt"
	"runtime/debug"
)

// Set at build time via `-ldflags "-X 'seawolf.SEAWOLF_VERSION=X'"`
var SEAWOLF_VERSION string

func getBuildSettingOrDefault(bi *debug.BuildInfo, key string, defaultValue string) string {
	for _, bs := range bi.Settings {
		if bs.Key == key {
			return bs.Value
		}
	}

	return defaultValue
}

func PrintVersion() {
	var buildInfo, _ = debug.ReadBuildInfo()

	var buildCommit = getBuildSettingOrDefault(buildInfo, "vcs.revision", "UNKNOWN")
	var buildTimeStr = getBuildSettingOrDefault(buildInfo, "vcs.time", "UNKNOWN")

	var version = SEAWOLF_VERSION
	if version == "" {
		version = "!UNKNOWN!"
	}

	fmt.Printf("Seawolf - Version %s (revision %s, built at %s)\n", version, buildCommit, buildTimeStr)
}
