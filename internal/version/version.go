/*
Copyright (C) 2026 OpenKiosk

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version provides build version information.
package version

import "runtime"

// Version is the current version of fleetd.
// This is set at build time via ldflags:
//
//	-X github.com/openkiosk/fleetd/internal/version.Version=X.Y.Z
var Version = "0.1.0"

// Commit is the git commit the binary was built from, set via ldflags.
var Commit = "unknown"

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
}

// Get returns the build information.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		GoVersion: runtime.Version(),
	}
}
