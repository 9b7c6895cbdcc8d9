// Command perpetual fulfills natural-language requests one approved tool
// call at a time, writing new tools when none of the installed ones fit.
//
// Usage:
//
//	perpetual run "What is the SHA-256 of hello?"
//	perpetual tools list
//	perpetual sessions
//	perpetual mcp
package main

import (
	"fmt"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	cmd := newRootCmd(a)
	err := cmd.Execute()
	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
