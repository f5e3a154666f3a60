// Command inquire asks the questions of a question file on the terminal or
// through a remote peer, and can act as that peer.
package main

import (
	"fmt"
	"os"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "inquire:", err)
		os.Exit(1)
	}
}
