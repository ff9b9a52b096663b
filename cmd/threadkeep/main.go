package main

import (
	"github.com/neilberkman/threadkeep/internal/interface/cli"
)

// Version information (set with -ldflags at release build time)
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	cli.SetVersion(Version, Commit, Date)
	cli.Execute()
}
