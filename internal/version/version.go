// Package version carries build metadata, set at link time:
//
//	go build -ldflags "-X github.com/MrSnakeDoc/linkdex/internal/version.Version=v0.1.0"
package version

import (
	"runtime"
	"time"
)

var (
	Version   = "dev"                           // ex: v0.1.0
	Commit    = "none"                          // ex: abcd123
	BuildDate = time.Now().Format(time.RFC3339) // ex: 2026-03-01T18:42:00Z
	GoVersion = runtime.Version()               // go version
)
