//go:build !linux

package main

import (
	"fmt"
	"os"

	"codesandbox/internal/sandbox/engine"
)

func main() {
	if _, err := parseOptions(os.Args[1:], os.Stderr); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, engine.HelperErrorPrefix+err.Error())
	}
	_, _ = fmt.Fprintln(os.Stderr, engine.HelperErrorPrefix+"only supported on linux")
	os.Exit(engine.HelperSetupExitCode)
}
