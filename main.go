package main

import (
	"fmt"
	"os"

	"github.com/tphakala/birdsound-go/cmd"
	"github.com/tphakala/birdsound-go/internal/buildinfo"
)

// Build metadata, set with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   string
	buildDate string
)

func main() {
	rootCmd := cmd.RootCommand(buildinfo.NewContext(version, buildDate))
	if err := cmd.Execute(rootCmd); err != nil {
		fmt.Fprintln(os.Stderr, cmd.FormatError(err))
		os.Exit(1)
	}
}
