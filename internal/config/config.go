// Package config defines the user-visible pivot configuration and its
// validation: one persistent/command flag set, parsed into a plain
// struct by the command's RunE.
package config

import (
	"strings"
	"time"

	"github.com/nixpig/xenomorph/internal/xerr"
)

const scope = "config"

// Config is the fully parsed, validated configuration for one `pivot`
// invocation.
type Config struct {
	Image            string
	ExecCmd          string
	ExecArgs         []string
	OldRootMount     string // absolute, e.g. "/mnt/oldroot"
	KeepOldRoot      bool
	Force            bool
	Timeout          time.Duration
	NoInitCoord      bool
	SkipVerify       bool
	CacheDir         string
	WorkDir          string
	Verbose          bool
	DryRun           bool
}

// Defaults returns the pivot command's documented option defaults.
func Defaults() Config {
	return Config{
		ExecCmd:      "/bin/sh",
		OldRootMount: "/mnt/oldroot",
		KeepOldRoot:  true,
		Timeout:      30 * time.Second,
		CacheDir:     "/var/cache/xenomorph",
		WorkDir:      "/var/lib/xenomorph/rootfs",
	}
}

// Validate checks the invariants the pipeline requires before it runs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Image) == "" {
		return xerr.New(scope, xerr.KindMissingImage, "an image reference is required")
	}
	if c.Timeout <= 0 {
		return xerr.New(scope, xerr.KindInvalidTimeout, "timeout must be greater than zero")
	}
	if !strings.HasPrefix(c.OldRootMount, "/") {
		return xerr.New(scope, xerr.KindUnknownOption, "--keep-old-root must be an absolute path")
	}
	return nil
}

// RelativeOldRootMount strips the leading "/" from OldRootMount to form
// the path-relative-to-new-root that pivot_root and the pivot
// orchestrator expect.
func (c *Config) RelativeOldRootMount() string {
	return strings.TrimPrefix(c.OldRootMount, "/")
}
