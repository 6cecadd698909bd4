// sustainctl scores assessments, inspects taxonomies and serves MCP clients
// from the command line.
package main

import (
	"fmt"
	"os"
)

// version is overridden at build time with -ldflags
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
