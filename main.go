package main

import (
	"fmt"
	"os"

	"github.com/petalnet/petalnet-go/cmd"
	"github.com/petalnet/petalnet-go/internal/buildinfo"
	"github.com/petalnet/petalnet-go/internal/conf"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   string
	buildDate string
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	build := buildinfo.NewContext(version, buildDate)
	if err := cmd.RootCommand(settings, build).Execute(); err != nil {
		os.Exit(1)
	}
}
