package main

import (
	_ "embed"
	"strings"

	"github.com/pimalab/pimadash/internal/cli"
	"github.com/pimalab/pimadash/internal/logging"
)

//go:embed VERSION
var versionFile string

//go:embed dashboard.html
var dashboardTemplate []byte

var executeCLI = cli.Execute

func run() error {
	version := strings.TrimSpace(versionFile)
	return executeCLI(version, dashboardTemplate)
}

func main() {
	if err := run(); err != nil {
		logging.Fatal("pimadash execution failed", "error", err)
	}
}
