package main

import (
	"github.com/blutspende/go-sheetnet/cmd/sheetclient/commands"
)

// Version and BuildTime are filled in during build with -ldflags
var (
	Version   = "N/A"
	BuildTime = "N/A"
)

func main() {
	commands.Version = Version
	commands.BuildTime = BuildTime
	commands.Execute()
}
