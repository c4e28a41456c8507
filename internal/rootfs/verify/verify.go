// Package verify implements the rootfs verifier: checks that a
// directory is usable as a new root before the pivot orchestrator commits
// to it.
package verify

import (
	"fmt"
	"os"
	"path/filepath"
)

// essentialDirs are directories whose absence is fatal (valid=false).
var essentialDirs = []string{"bin", "lib", "dev", "proc", "sys"}

// recommendedDirs are directories whose absence is a warning only.
var recommendedDirs = []string{"etc", "tmp", "var", "usr", "sbin", "run"}

// essentialExecutables: at least one must exist, else error.
var essentialExecutables = []string{
	"bin/sh",
	"bin/bash",
	"sbin/init",
	"usr/bin/sh",
}

// Result is the outcome of Verify.
type Result struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Verify checks path against the essential-directory, recommended-
// directory, and essential-executable rules above.
func Verify(path string) Result {
	var res Result
	res.Valid = true

	for _, d := range essentialDirs {
		if !exists(filepath.Join(path, d)) {
			res.Valid = false
			res.Errors = append(res.Errors, fmt.Sprintf("missing essential directory: %s", d))
		}
	}

	for _, d := range recommendedDirs {
		if !exists(filepath.Join(path, d)) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("missing recommended directory: %s", d))
		}
	}

	if !hasEssentialExecutable(path) {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf(
			"no essential executable found, need one of: %v", essentialExecutables,
		))
	}

	return res
}

// IsValid is the quick predicate: true iff all essential dirs exist and at
// least one essential executable exists.
func IsValid(path string) bool {
	for _, d := range essentialDirs {
		if !exists(filepath.Join(path, d)) {
			return false
		}
	}
	return hasEssentialExecutable(path)
}

func hasEssentialExecutable(path string) bool {
	for _, e := range essentialExecutables {
		if exists(filepath.Join(path, e)) {
			return true
		}
	}
	return false
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
