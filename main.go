package main

import (
	"log"
	"os"

	"github.com/tpdiff/tpdiff/cli"
)

// Version information, set by goreleaser via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	c := cli.New()
	c.SetVersion(version, commit, date)
	if err := c.Run(os.Args); err != nil {
		// Test failures and harness errors exit through cli.Exit;
		// whatever reaches here is a usage or setup problem.
		log.Println(err)
		os.Exit(2)
	}
}
