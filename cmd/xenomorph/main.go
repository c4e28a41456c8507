package main

import (
	"fmt"
	"os"

	"github.com/nixpig/xenomorph/internal/cli"
)

func main() {
	defer recoverToExit()

	if err := cli.RootCmd().Execute(); err != nil {
		os.Stderr.Write(fmt.Appendf(nil, "failed to execute: %s\n", err))
		os.Exit(1)
	}
}

// recoverToExit turns a panic anywhere in the command tree into a
// logged message and exit code 1, instead of an unhandled crash with a
// raw Go stack trace on stderr.
func recoverToExit() {
	if r := recover(); r != nil {
		os.Stderr.Write(fmt.Appendf(nil, "panic: %v\n", r))
		os.Exit(1)
	}
}
